// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/chainparams"
	"github.com/spvkit/headerchain/clock"
	"github.com/spvkit/headerchain/wire"
)

// BlockStore is the subset of store.BlockStore the chain engine
// consumes. It is declared here, at the consumer, rather than
// imported from the store package, so that package store (which needs
// *StoredBlock) does not import package blockchain's consumer and
// create a cycle; any store.BlockStore implementation already
// satisfies this interface.
type BlockStore interface {
	Put(stored *StoredBlock) error
	Get(hash chainhash.Hash) (*StoredBlock, error)
	ChainHead() (*StoredBlock, error)
	SetChainHead(stored *StoredBlock) error
	Close() error
}

// Listener receives chain-engine notifications, invoked synchronously
// on the caller's goroutine after the store is already consistent
// (spec §4.7 "Listener contract"). Listeners MUST NOT reenter the
// engine.
type Listener interface {
	// OnNewBestBlock fires when stored becomes the new chain head via
	// a simple extension of the previous head.
	OnNewBestBlock(stored *StoredBlock)

	// OnReorganize fires when the new chain head is reached by walking
	// away from the previous head to a common ancestor. disconnected
	// is ordered highest-height first; connected is ordered
	// lowest-height first (spec §8 scenario 4).
	OnReorganize(oldHead, newHead *StoredBlock, disconnected, connected []*StoredBlock)
}

// AcceptedKind classifies the outcome of AcceptHeader (spec §7:
// "Orphan buffering is not an error").
type AcceptedKind int

const (
	// AcceptedNewBest indicates the header extended the chain and
	// became (or remains) the new best tip.
	AcceptedNewBest AcceptedKind = iota

	// AcceptedSideChain indicates the header was stored but did not
	// accumulate enough work to become the best chain.
	AcceptedSideChain

	// AcceptedOrphan indicates the header's parent is unknown; it has
	// been buffered and will be reconsidered once the parent arrives.
	AcceptedOrphan
)

// Accepted reports the outcome of AcceptHeader.
type Accepted struct {
	Kind AcceptedKind

	// Stored is set for AcceptedNewBest and AcceptedSideChain.
	Stored *StoredBlock

	// OrphanParent is the missing parent hash, set for AcceptedOrphan.
	OrphanParent chainhash.Hash
}

// ChainError reports a chain-engine-level failure that is not a
// single-header/block consensus-rule violation.
type ChainError struct {
	Reason string
}

func (e *ChainError) Error() string { return "chain engine: " + e.Reason }

// defaultMaxOrphans and defaultMaxReorgDepth bound the engine's
// resource usage against a hostile peer (spec §4.7: orphan buffer is
// "bounded; oldest dropped"). The reorg depth limit is a supplemented guard
// not named verbatim in spec §4.7 but consistent with its "walk both
// chains back to their lowest common ancestor" step: an unbounded walk
// driven entirely by untrusted headers is a resource-exhaustion risk.
const (
	defaultMaxOrphans    = 1000
	defaultMaxReorgDepth = 500
)

// ChainEngine is the header/block ingestion engine of spec §4.7: it
// enforces difficulty retargeting, tracks the best chain by cumulative
// work, performs reorganizations, and notifies Listeners. It is
// synchronous and safe for concurrent use (spec §5): the whole
// "ingest one header" operation runs under a single writer lock.
type ChainEngine struct {
	mu sync.Mutex

	params    chainparams.NetworkParameters
	store     BlockStore
	listeners []Listener
	clock     clock.Clock

	maxReorgDepth int32

	orphanMu     sync.Mutex
	orphans      map[chainhash.Hash][]wire.BlockHeader
	orphanOrder  []chainhash.Hash
	maxOrphans   int
}

// NewChainEngine constructs a ChainEngine. If store has no chain head
// yet, the network's genesis header is inserted and set as head.
func NewChainEngine(params chainparams.NetworkParameters, store BlockStore, listeners []Listener) (*ChainEngine, error) {
	e := &ChainEngine{
		params:        params,
		store:         store,
		listeners:     listeners,
		clock:         clock.System{},
		maxReorgDepth: defaultMaxReorgDepth,
		orphans:       make(map[chainhash.Hash][]wire.BlockHeader),
		maxOrphans:    defaultMaxOrphans,
	}

	// Any error from ChainHead (not just a typed not-found) is treated
	// as "no head yet": BlockStore is declared locally to avoid an
	// import cycle with package store, so its error isn't available as
	// a concrete type to branch on here.
	if _, err := store.ChainHead(); err != nil {
		genesis, err := GenesisStoredBlock(params.GenesisHeader())
		if err != nil {
			return nil, err
		}
		if err := store.Put(genesis); err != nil {
			return nil, err
		}
		if err := store.SetChainHead(genesis); err != nil {
			return nil, err
		}
		log.Infof("Initialized chain store with genesis block %s", genesis.Hash())
	}

	return e, nil
}

// SetClock overrides the engine's wall clock, for deterministic tests.
func (e *ChainEngine) SetClock(c clock.Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
}

// ChainHead returns the current best StoredBlock.
func (e *ChainEngine) ChainHead() (*StoredBlock, error) {
	return e.store.ChainHead()
}

// AcceptHeader ingests a single header per spec §4.7's numbered steps.
func (e *ChainEngine) AcceptHeader(header wire.BlockHeader) (Accepted, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.acceptHeaderLocked(header)
}

func (e *ChainEngine) acceptHeaderLocked(header wire.BlockHeader) (Accepted, error) {
	prev, err := e.store.Get(header.PrevBlock)
	if err != nil {
		e.bufferOrphan(header)
		return Accepted{Kind: AcceptedOrphan, OrphanParent: header.PrevBlock}, nil
	}

	if err := VerifyHeader(&header, e.clock.Now()); err != nil {
		return Accepted{}, err
	}

	expectedBits, err := e.expectedBits(prev, header.Time)
	if err != nil {
		return Accepted{}, err
	}
	if header.Bits != expectedBits {
		return Accepted{}, ruleError(ErrBadDifficulty,
			fmt.Sprintf("header bits %08x, expected %08x", header.Bits, expectedBits))
	}

	stored, err := prev.BuildNext(header)
	if err != nil {
		return Accepted{}, err
	}
	if err := e.store.Put(stored); err != nil {
		return Accepted{}, err
	}

	accepted, err := e.updateBestChain(stored)
	if err != nil {
		return Accepted{}, err
	}

	e.flushOrphans(stored.Hash())

	return accepted, nil
}

// expectedBits computes the bits the header at prev.Height+1 must
// carry, locating the retarget window's boundary headers in the store
// when a retarget is due (spec §4.7 step 3).
func (e *ChainEngine) expectedBits(prev *StoredBlock, newHeaderTime uint32) (uint32, error) {
	newHeight := prev.Height + 1

	if newHeight%e.params.RetargetInterval() != 0 {
		return calcNextRequiredDifficulty(e.params, prev.Height, prev.Header.Bits,
			int64(prev.Header.Time), int64(newHeaderTime), 0, 0)
	}

	windowFirstHeight := newHeight - e.params.RetargetInterval()
	windowFirst, err := e.ancestorAt(prev, windowFirstHeight)
	if err != nil {
		return 0, err
	}

	return calcNextRequiredDifficulty(e.params, prev.Height, prev.Header.Bits,
		int64(prev.Header.Time), int64(newHeaderTime),
		int64(windowFirst.Header.Time), int64(prev.Header.Time))
}

// ancestorAt walks backward from tip via stored PrevBlock links to the
// StoredBlock at the given height.
func (e *ChainEngine) ancestorAt(tip *StoredBlock, height int32) (*StoredBlock, error) {
	cur := tip
	for cur.Height > height {
		parent, err := e.store.Get(cur.Header.PrevBlock)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	if cur.Height != height {
		return nil, &ChainError{Reason: "ancestor walk overshot requested height"}
	}
	return cur, nil
}

// updateBestChain implements spec §4.7 step 5: chain selection by
// cumulative work, simple extension or full reorganization.
func (e *ChainEngine) updateBestChain(stored *StoredBlock) (Accepted, error) {
	head, err := e.store.ChainHead()
	if err != nil {
		return Accepted{}, err
	}

	if stored.ChainWork.Cmp(head.ChainWork) <= 0 {
		return Accepted{Kind: AcceptedSideChain, Stored: stored}, nil
	}

	if stored.Header.PrevBlock == head.Hash() {
		if err := e.store.SetChainHead(stored); err != nil {
			return Accepted{}, err
		}
		e.notifyNewBest(stored)
		return Accepted{Kind: AcceptedNewBest, Stored: stored}, nil
	}

	_, oldSide, newSide, err := e.commonAncestor(head, stored)
	if err != nil {
		return Accepted{}, err
	}

	if int32(len(oldSide)) > e.maxReorgDepth {
		return Accepted{}, &ChainError{
			Reason: fmt.Sprintf("reorganization depth %d exceeds maximum %d", len(oldSide), e.maxReorgDepth),
		}
	}

	if err := e.store.SetChainHead(stored); err != nil {
		return Accepted{}, err
	}

	connected := make([]*StoredBlock, len(newSide))
	for i, b := range newSide {
		connected[len(newSide)-1-i] = b
	}

	e.notifyReorganize(head, stored, oldSide, connected)

	return Accepted{Kind: AcceptedNewBest, Stored: stored}, nil
}

// commonAncestor walks both a and b backward to their lowest common
// ancestor, returning it along with each side's divergent blocks in
// tip-to-fork (highest-height-first) order.
func (e *ChainEngine) commonAncestor(a, b *StoredBlock) (fork *StoredBlock, aSide, bSide []*StoredBlock, err error) {
	ha, hb := a, b

	for ha.Height > hb.Height {
		aSide = append(aSide, ha)
		if ha, err = e.store.Get(ha.Header.PrevBlock); err != nil {
			return nil, nil, nil, err
		}
	}
	for hb.Height > ha.Height {
		bSide = append(bSide, hb)
		if hb, err = e.store.Get(hb.Header.PrevBlock); err != nil {
			return nil, nil, nil, err
		}
	}

	for ha.Hash() != hb.Hash() {
		aSide = append(aSide, ha)
		bSide = append(bSide, hb)
		if ha, err = e.store.Get(ha.Header.PrevBlock); err != nil {
			return nil, nil, nil, err
		}
		if hb, err = e.store.Get(hb.Header.PrevBlock); err != nil {
			return nil, nil, nil, err
		}
	}

	return ha, aSide, bSide, nil
}

func (e *ChainEngine) notifyNewBest(stored *StoredBlock) {
	for _, l := range e.listeners {
		e.invokeListener(func() { l.OnNewBestBlock(stored) })
	}
}

func (e *ChainEngine) notifyReorganize(oldHead, newHead *StoredBlock, disconnected, connected []*StoredBlock) {
	for _, l := range e.listeners {
		e.invokeListener(func() { l.OnReorganize(oldHead, newHead, disconnected, connected) })
	}
}

// invokeListener runs a listener callback, recovering from panics so a
// misbehaving listener cannot unwind the caller or roll back the store
// (spec §4.7: "listener exceptions do not roll back the store").
func (e *ChainEngine) invokeListener(call func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("chain listener panicked: %v", r)
		}
	}()
	call()
}

// bufferOrphan records header under its parent hash, evicting the
// oldest buffered orphan if the buffer is full (spec §4.7 step 1).
func (e *ChainEngine) bufferOrphan(header wire.BlockHeader) {
	e.orphanMu.Lock()
	defer e.orphanMu.Unlock()

	parent := header.PrevBlock
	if _, exists := e.orphans[parent]; !exists {
		if len(e.orphanOrder) >= e.maxOrphans {
			oldest := e.orphanOrder[0]
			e.orphanOrder = e.orphanOrder[1:]
			delete(e.orphans, oldest)
		}
		e.orphanOrder = append(e.orphanOrder, parent)
	}
	e.orphans[parent] = append(e.orphans[parent], header)
}

// flushOrphans reconsiders any buffered headers whose parent hash is
// newHash, recursively, per spec §4.7 step 6.
func (e *ChainEngine) flushOrphans(newHash chainhash.Hash) {
	e.orphanMu.Lock()
	pending, ok := e.orphans[newHash]
	if ok {
		delete(e.orphans, newHash)
		for i, h := range e.orphanOrder {
			if h == newHash {
				e.orphanOrder = append(e.orphanOrder[:i], e.orphanOrder[i+1:]...)
				break
			}
		}
	}
	e.orphanMu.Unlock()

	for _, header := range pending {
		if _, err := e.acceptHeaderLocked(header); err != nil {
			log.Debugf("orphan flush rejected header %s: %v", header.BlockHash(), err)
		}
	}
}
