// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"sync"

	"github.com/decred/dcrd/lru"
	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainhash"
)

// MemoryStore is a bounded, in-memory BlockStore backed by a
// FIFO-eviction map (spec §4.6: "a bounded in-memory FIFO-eviction
// map"). It never touches disk and is intended for short-lived
// processes or as a write-through front for a durable store.
type MemoryStore struct {
	mu     sync.RWMutex
	blocks *lru.Map[chainhash.Hash, *blockchain.StoredBlock]
	head   *blockchain.StoredBlock
	closed bool
}

// NewMemoryStore creates a MemoryStore that retains at most limit
// StoredBlocks, evicting the oldest insertion once full.
func NewMemoryStore(limit uint) *MemoryStore {
	return &MemoryStore{
		blocks: lru.NewMap[chainhash.Hash, *blockchain.StoredBlock](limit),
	}
}

func (s *MemoryStore) Put(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(ErrClosed, nil)
	}

	s.blocks.Put(stored.Hash(), stored)
	return nil
}

func (s *MemoryStore) Get(hash chainhash.Hash) (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, newError(ErrClosed, nil)
	}

	stored, ok := s.blocks.Get(hash)
	if !ok {
		return nil, newError(ErrNotFound, nil)
	}
	return stored, nil
}

func (s *MemoryStore) ChainHead() (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, newError(ErrClosed, nil)
	}
	if s.head == nil {
		return nil, newError(ErrNotFound, nil)
	}
	return s.head, nil
}

func (s *MemoryStore) SetChainHead(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(ErrClosed, nil)
	}
	s.head = stored
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
