// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store provides the BlockStore contract of spec §4.6: the
// single piece of mutable shared state a ChainEngine mutates, with
// implementations ranging from a bounded in-memory cache to a
// memory-mapped on-disk ring buffer.
package store

import (
	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainhash"
)

// ErrorKind identifies the category of failure a store operation
// reports (spec §7, "Store errors").
type ErrorKind int

const (
	// ErrClosed indicates an operation was attempted on a store that
	// has already been closed.
	ErrClosed ErrorKind = iota

	// ErrNotFound indicates a lookup found no record for the requested
	// hash.
	ErrNotFound

	// ErrIo indicates an underlying file I/O operation failed.
	ErrIo

	// ErrCorrupt indicates an on-disk structure failed validation (bad
	// magic, bad version, truncated record).
	ErrCorrupt

	// ErrFull indicates a fixed-capacity store has no free slot or
	// probe chain available for a new record, or that the record's
	// chain work does not fit the store's fixed record size.
	ErrFull
)

var errorKindStrings = map[ErrorKind]string{
	ErrClosed:   "store closed",
	ErrNotFound: "not found",
	ErrIo:       "i/o error",
	ErrCorrupt:  "corrupt store",
	ErrFull:     "store full",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindStrings[k]; ok {
		return s
	}
	return "unknown store error"
}

// Error reports a BlockStore failure, per spec §7.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "store: " + e.Kind.String() + ": " + e.Err.Error()
	}
	return "store: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// BlockStore is the contract spec §4.6 names: `put(StoredBlock)`,
// `get(Hash256) -> Option<StoredBlock>`, `get_chain_head() ->
// StoredBlock`, `set_chain_head(StoredBlock)`, `close()`.
//
// Implementations use a single reader-writer lock: concurrent Get
// calls are allowed, Put/SetChainHead are exclusive (spec §5).
type BlockStore interface {
	// Put records stored. It does not affect the chain head. Whether the
	// record survives a restart depends on the implementation.
	Put(stored *blockchain.StoredBlock) error

	// Get looks up the stored block for hash. It returns a *Error with
	// Kind == ErrNotFound if no such record exists.
	Get(hash chainhash.Hash) (*blockchain.StoredBlock, error)

	// ChainHead returns the current chain head. It returns a *Error
	// with Kind == ErrNotFound if the store has never had a head set.
	ChainHead() (*blockchain.StoredBlock, error)

	// SetChainHead atomically updates the chain head pointer. stored
	// must already have been Put.
	SetChainHead(stored *blockchain.StoredBlock) error

	// Close releases any resources the store holds. It is safe to
	// call Close more than once.
	Close() error
}
