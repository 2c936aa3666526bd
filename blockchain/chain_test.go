// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/chainparams"
	"github.com/spvkit/headerchain/clock"
	"github.com/spvkit/headerchain/wire"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory BlockStore good enough to exercise
// the chain engine without pulling in package store (which imports
// package blockchain and would create a cycle from here).
type fakeStore struct {
	mu     sync.Mutex
	blocks map[chainhash.Hash]*StoredBlock
	head   *StoredBlock
}

func newFakeStore() *fakeStore {
	return &fakeStore{blocks: make(map[chainhash.Hash]*StoredBlock)}
}

func (s *fakeStore) Put(stored *StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[stored.Hash()] = stored
	return nil
}

func (s *fakeStore) Get(hash chainhash.Hash) (*StoredBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.blocks[hash]
	if !ok {
		return nil, &ChainError{Reason: "not found"}
	}
	return stored, nil
}

func (s *fakeStore) ChainHead() (*StoredBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.head == nil {
		return nil, &ChainError{Reason: "no chain head"}
	}
	return s.head, nil
}

func (s *fakeStore) SetChainHead(stored *StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = stored
	return nil
}

func (s *fakeStore) Close() error { return nil }

// recordingListener captures every notification it receives, for
// assertions on call order and argument shape.
type recordingListener struct {
	newBest     []*StoredBlock
	reorgs      []reorgCall
}

type reorgCall struct {
	oldHead, newHead         *StoredBlock
	disconnected, connected []*StoredBlock
}

func (l *recordingListener) OnNewBestBlock(stored *StoredBlock) {
	l.newBest = append(l.newBest, stored)
}

func (l *recordingListener) OnReorganize(oldHead, newHead *StoredBlock, disconnected, connected []*StoredBlock) {
	l.reorgs = append(l.reorgs, reorgCall{oldHead, newHead, disconnected, connected})
}

// mineHeader finds a nonce satisfying bits' proof-of-work threshold.
// Under RegTestParams' pow limit (2^255-1) roughly half of all nonces
// qualify, so this terminates quickly.
func mineHeader(prevHash chainhash.Hash, merkleRoot chainhash.Hash, bits uint32, t uint32) wire.BlockHeader {
	h := wire.BlockHeader{
		Version:    1,
		PrevBlock:  prevHash,
		MerkleRoot: merkleRoot,
		Time:       t,
		Bits:       bits,
	}
	for nonce := uint32(0); ; nonce++ {
		h.SetNonce(nonce)
		met, err := IsMet(h.BlockHash(), bits)
		if err != nil {
			panic(err)
		}
		if met {
			return h
		}
	}
}

func newTestEngine(t *testing.T) (*ChainEngine, *fakeStore, chainparams.NetworkParameters) {
	t.Helper()
	params := chainparams.RegTestParams()
	st := newFakeStore()
	engine, err := NewChainEngine(params, st, nil)
	require.NoError(t, err)
	engine.SetClock(clock.Fixed(time.Unix(2000000000, 0)))
	return engine, st, params
}

func TestChainEngineBootstrapsGenesis(t *testing.T) {
	engine, _, params := newTestEngine(t)

	head, err := engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, int32(0), head.Height)
	require.Equal(t, params.GenesisHeader().BlockHash(), head.Hash())
}

// TestSimpleExtension pins spec §8 scenario 3: genesis plus one header
// produces a chain head at height 1.
func TestSimpleExtension(t *testing.T) {
	engine, _, params := newTestEngine(t)

	genesis := params.GenesisHeader()
	h1 := mineHeader(genesis.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), genesis.Time+60)

	accepted, err := engine.AcceptHeader(h1)
	require.NoError(t, err)
	require.Equal(t, AcceptedNewBest, accepted.Kind)
	require.Equal(t, int32(1), accepted.Stored.Height)

	head, err := engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, int32(1), head.Height)
	require.Equal(t, h1.BlockHash(), head.Hash())
}

func TestAcceptHeaderBuffersOrphan(t *testing.T) {
	engine, _, params := newTestEngine(t)

	genesis := params.GenesisHeader()
	// Skip straight to a height-2 header without ever delivering height 1.
	orphanParent := mineHeader(genesis.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), genesis.Time+60)
	orphan := mineHeader(orphanParent.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), orphanParent.Time+60)

	accepted, err := engine.AcceptHeader(orphan)
	require.NoError(t, err)
	require.Equal(t, AcceptedOrphan, accepted.Kind)
	require.Equal(t, orphanParent.BlockHash(), accepted.OrphanParent)

	// Chain head is unaffected by a buffered orphan.
	head, err := engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, int32(0), head.Height)

	// Delivering the missing parent flushes the orphan onto the chain.
	accepted, err = engine.AcceptHeader(orphanParent)
	require.NoError(t, err)
	require.Equal(t, AcceptedNewBest, accepted.Kind)

	head, err = engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, int32(2), head.Height)
	require.Equal(t, orphan.BlockHash(), head.Hash())
}

// TestReorganize pins spec §8 scenario 4: chain B, longer and with more
// cumulative work, displaces chain A, and the engine reports the
// disconnected/connected sets in the documented order.
func TestReorganize(t *testing.T) {
	engine, _, params := newTestEngine(t)
	listener := &recordingListener{}
	engine.listeners = []Listener{listener}

	genesis := params.GenesisHeader()

	// Chain A: two headers.
	a1 := mineHeader(genesis.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), genesis.Time+60)
	_, err := engine.AcceptHeader(a1)
	require.NoError(t, err)
	a2 := mineHeader(a1.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), a1.Time+60)
	_, err = engine.AcceptHeader(a2)
	require.NoError(t, err)

	head, err := engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, a2.BlockHash(), head.Hash())

	// Chain B: three headers branching off genesis, overtaking A once complete.
	b1 := mineHeader(genesis.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), genesis.Time+61)
	accepted, err := engine.AcceptHeader(b1)
	require.NoError(t, err)
	require.Equal(t, AcceptedSideChain, accepted.Kind)

	b2 := mineHeader(b1.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), b1.Time+60)
	accepted, err = engine.AcceptHeader(b2)
	require.NoError(t, err)
	require.Equal(t, AcceptedSideChain, accepted.Kind)

	b3 := mineHeader(b2.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), b2.Time+60)
	accepted, err = engine.AcceptHeader(b3)
	require.NoError(t, err)
	require.Equal(t, AcceptedNewBest, accepted.Kind)

	head, err = engine.ChainHead()
	require.NoError(t, err)
	require.Equal(t, b3.BlockHash(), head.Hash())
	require.Equal(t, int32(3), head.Height)

	require.Len(t, listener.reorgs, 1)
	reorg := listener.reorgs[0]
	require.Equal(t, a2.BlockHash(), reorg.oldHead.Hash())
	require.Equal(t, b3.BlockHash(), reorg.newHead.Hash())

	dump := spew.Sdump(reorg)
	require.Len(t, reorg.disconnected, 2, dump)
	require.Equal(t, a2.BlockHash(), reorg.disconnected[0].Hash(), dump)
	require.Equal(t, a1.BlockHash(), reorg.disconnected[1].Hash(), dump)

	require.Len(t, reorg.connected, 3, dump)
	require.Equal(t, b1.BlockHash(), reorg.connected[0].Hash(), dump)
	require.Equal(t, b2.BlockHash(), reorg.connected[1].Hash(), dump)
	require.Equal(t, b3.BlockHash(), reorg.connected[2].Hash(), dump)
}

// TestAcceptHeaderRejectsBadPow pins spec §8 scenario 5: a header whose
// hash fails its own claimed bits is rejected outright, not stored.
func TestAcceptHeaderRejectsBadPow(t *testing.T) {
	engine, st, params := newTestEngine(t)

	genesis := params.GenesisHeader()
	bad := wire.BlockHeader{
		Version:    1,
		PrevBlock:  genesis.BlockHash(),
		MerkleRoot: genesis.MerkleRoot,
		Time:       genesis.Time + 60,
		Bits:       0x1b00ffff, // far too tight for any nonce we try below
		Nonce:      0,
	}

	_, err := engine.AcceptHeader(bad)
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrPowBelowTarget, verr.Kind)

	_, getErr := st.Get(bad.BlockHash())
	require.Error(t, getErr, "rejected header must not be stored")
}

// TestChainConvergesRegardlessOfDeliveryOrder exercises spec §8's
// best-chain-determinism property: the same set of headers, delivered
// in either order, converges to the same chain head.
func TestChainConvergesRegardlessOfDeliveryOrder(t *testing.T) {
	buildChain := func(t *testing.T, deliverReversed bool) chainhash.Hash {
		engine, _, params := newTestEngine(t)
		genesis := params.GenesisHeader()

		h1 := mineHeader(genesis.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), genesis.Time+60)
		h2 := mineHeader(h1.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), h1.Time+60)
		h3 := mineHeader(h2.BlockHash(), genesis.MerkleRoot, params.PowLimitBits(), h2.Time+60)

		headers := []wire.BlockHeader{h1, h2, h3}
		if deliverReversed {
			headers = []wire.BlockHeader{h3, h2, h1, h2, h3}
		}
		for _, h := range headers {
			// Orphans and duplicates are both tolerated; only the final
			// converged head matters here.
			_, _ = engine.AcceptHeader(h)
		}

		head, err := engine.ChainHead()
		require.NoError(t, err)
		return head.Hash()
	}

	inOrder := buildChain(t, false)
	outOfOrder := buildChain(t, true)
	require.Equal(t, inOrder, outOfOrder)
}
