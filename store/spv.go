// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package store

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainhash"
	"golang.org/x/sys/unix"
)

// SPV store file layout (spec §4.6): 4-byte magic "SPVB", 4-byte
// version, 32-byte chain-head hash, then N fixed-size records holding
// a compact-v2 StoredBlock encoding apiece, placed in a ring indexed
// by hash mod N with linear probing.
const (
	spvMagic      = "SPVB"
	spvVersion    = uint32(1)
	spvHeaderLen  = 4 + 4 + chainhash.HashSize // magic + version + head hash
	spvRecordLen  = blockchain.StoredBlockV2Len
	spvHashOffset = 8 // offset of the chain-head hash within the header
)

// SpvStore is a memory-mapped, fixed-record ring buffer on a single
// file (spec §4.6 "SpvStore"). It never grows past its initial
// capacity: once every slot along a hash's probe sequence holds an
// unrelated record, further Puts fail with ErrFull rather than
// silently evicting a block the caller may still need.
type SpvStore struct {
	mu       sync.RWMutex
	file     *os.File
	data     []byte // mmap'd region: header + records
	capacity int    // number of records
	closed   bool
}

// OpenSpvStore opens (creating if absent) a ring-buffer store file
// with room for capacity records. An existing file is validated
// against the expected magic, version, and size; a mismatch reports
// ErrCorrupt.
func OpenSpvStore(path string, capacity int) (*SpvStore, error) {
	if capacity <= 0 {
		return nil, newError(ErrCorrupt, nil)
	}

	fileSize := int64(spvHeaderLen + capacity*spvRecordLen)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, newError(ErrIo, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newError(ErrIo, err)
	}

	if info.Size() == 0 {
		if err := f.Truncate(fileSize); err != nil {
			f.Close()
			return nil, newError(ErrIo, err)
		}
	} else if info.Size() != fileSize {
		f.Close()
		return nil, newError(ErrCorrupt, nil)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, newError(ErrIo, err)
	}

	s := &SpvStore{file: f, data: data, capacity: capacity}

	if info.Size() == 0 {
		copy(s.data[0:4], spvMagic)
		binary.BigEndian.PutUint32(s.data[4:8], spvVersion)
		if err := s.sync(); err != nil {
			s.Close()
			return nil, err
		}
		log.Infof("Initialized new SPV store %s with %d record slots", path, capacity)
		return s, nil
	}

	if string(s.data[0:4]) != spvMagic || binary.BigEndian.Uint32(s.data[4:8]) != spvVersion {
		s.Close()
		return nil, newError(ErrCorrupt, nil)
	}

	log.Infof("Opened existing SPV store %s with %d record slots", path, capacity)
	return s, nil
}

func (s *SpvStore) sync() error {
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return newError(ErrIo, err)
	}
	return nil
}

func (s *SpvStore) recordSlice(slot int) []byte {
	start := spvHeaderLen + slot*spvRecordLen
	return s.data[start : start+spvRecordLen]
}

// slotFor computes the home slot for hash: a deterministic function of
// its bytes modulo the store's record capacity.
func (s *SpvStore) slotFor(hash chainhash.Hash) int {
	v := binary.BigEndian.Uint64(hash[:8])
	return int(v % uint64(s.capacity))
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func (s *SpvStore) Put(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(ErrClosed, nil)
	}

	record, ok, err := stored.EncodeV2()
	if err != nil {
		return newError(ErrCorrupt, err)
	}
	if !ok {
		// Chain work has outgrown the 12-byte v2 field this fixed-size
		// ring buffer reserves; the durable supplemental LevelStore is
		// the right home for such entries.
		return newError(ErrFull, nil)
	}

	hash := stored.Hash()
	home := s.slotFor(hash)

	for probe := 0; probe < s.capacity; probe++ {
		slot := (home + probe) % s.capacity
		existing := s.recordSlice(slot)
		if isZero(existing) {
			copy(existing, record)
			return nil
		}

		existingBlock, err := blockchain.DecodeStoredBlockV2(existing)
		if err == nil && existingBlock.Hash() == hash {
			copy(existing, record)
			return nil
		}
	}

	return newError(ErrFull, nil)
}

// getLocked looks up hash assuming the caller already holds s.mu for
// reading (or writing).
func (s *SpvStore) getLocked(hash chainhash.Hash) (*blockchain.StoredBlock, error) {
	home := s.slotFor(hash)
	for probe := 0; probe < s.capacity; probe++ {
		slot := (home + probe) % s.capacity
		record := s.recordSlice(slot)
		if isZero(record) {
			continue
		}
		stored, err := blockchain.DecodeStoredBlockV2(record)
		if err != nil {
			return nil, newError(ErrCorrupt, err)
		}
		if stored.Hash() == hash {
			return stored, nil
		}
	}
	return nil, newError(ErrNotFound, nil)
}

func (s *SpvStore) Get(hash chainhash.Hash) (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, newError(ErrClosed, nil)
	}
	return s.getLocked(hash)
}

func (s *SpvStore) ChainHead() (*blockchain.StoredBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, newError(ErrClosed, nil)
	}

	headBytes := s.data[spvHashOffset : spvHashOffset+chainhash.HashSize]
	if isZero(headBytes) {
		return nil, newError(ErrNotFound, nil)
	}

	var head chainhash.Hash
	copy(head[:], headBytes)

	return s.getLocked(head)
}

// SetChainHead writes the new head hash and fsyncs before returning,
// giving crash atomicity: either the write lands durably or the
// previous head remains in place (spec §4.6).
func (s *SpvStore) SetChainHead(stored *blockchain.StoredBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError(ErrClosed, nil)
	}

	hash := stored.Hash()
	copy(s.data[spvHashOffset:spvHashOffset+chainhash.HashSize], hash[:])
	return s.sync()
}

func (s *SpvStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if err := unix.Munmap(s.data); err != nil {
		firstErr = newError(ErrIo, err)
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = newError(ErrIo, err)
	}
	return firstErr
}
