// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"sync"

	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
)

// chainHeadKey is the single reserved leveldb key holding the current
// chain head's hash.
var chainHeadKey = []byte("chainhead")

// LevelStore is a durable, unbounded BlockStore backed by a goleveldb
// database (a supplemental implementation beyond spec §4.6's named
// MemoryStore/SpvStore pair, for callers that need durability without
// a fixed SpvStore capacity — spec §4.5 notes cumulative work can
// overflow the 12-byte v2 field, at which point only a v1-capable
// store such as this one can keep accepting new blocks).
type LevelStore struct {
	mu sync.RWMutex
	db *leveldb.DB
}

// OpenLevelStore opens (creating if absent) a LevelStore at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, newError(ErrIo, err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Put(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := stored.EncodeV1()
	if err != nil {
		return newError(ErrCorrupt, err)
	}

	hash := stored.Hash()
	if err := s.db.Put(hash[:], record, nil); err != nil {
		return newError(ErrIo, err)
	}
	return nil
}

func (s *LevelStore) Get(hash chainhash.Hash) (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.db.Get(hash[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, newError(ErrNotFound, nil)
	}
	if err != nil {
		return nil, newError(ErrIo, err)
	}

	stored, err := blockchain.DecodeStoredBlockV1(record)
	if err != nil {
		return nil, newError(ErrCorrupt, err)
	}
	return stored, nil
}

func (s *LevelStore) ChainHead() (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	headBytes, err := s.db.Get(chainHeadKey, nil)
	if err == leveldb.ErrNotFound {
		return nil, newError(ErrNotFound, nil)
	}
	if err != nil {
		return nil, newError(ErrIo, err)
	}

	var hash chainhash.Hash
	copy(hash[:], headBytes)

	record, err := s.db.Get(hash[:], nil)
	if err != nil {
		return nil, newError(ErrCorrupt, err)
	}
	return blockchain.DecodeStoredBlockV1(record)
}

func (s *LevelStore) SetChainHead(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := stored.Hash()
	if err := s.db.Put(chainHeadKey, hash[:], nil); err != nil {
		return newError(ErrIo, err)
	}
	return nil
}

func (s *LevelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return newError(ErrIo, err)
	}
	return nil
}
