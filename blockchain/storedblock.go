// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/wire"
)

// StoredBlockV1Len and StoredBlockV2Len are the two on-disk record
// lengths spec §4.5 names: v1 carries the full 32-byte cumulative
// chain work, v2 truncates it to 12 bytes.
const (
	StoredBlockV1Len = 32 + 4 + wire.BlockHeaderLen // 96
	StoredBlockV2Len = 12 + 4 + wire.BlockHeaderLen // 76
)

// StoredBlock is a header together with its cumulative proof-of-work
// and height within an accepted chain (spec §4.5). StoredBlocks are
// immutable once constructed: build the next one with BuildNext rather
// than mutating an existing value.
type StoredBlock struct {
	Header    wire.BlockHeader
	ChainWork *big.Int
	Height    int32
}

// Hash returns the stored block's header hash.
func (s *StoredBlock) Hash() chainhash.Hash {
	return s.Header.BlockHash()
}

// BuildNext constructs the StoredBlock that follows s when header is
// accepted as its child: height = s.Height+1, chain_work =
// s.ChainWork + header.work() (spec §4.5 "build_next").
func (s *StoredBlock) BuildNext(header wire.BlockHeader) (*StoredBlock, error) {
	work, err := CalcWork(header.Bits)
	if err != nil {
		return nil, err
	}
	return &StoredBlock{
		Header:    header,
		ChainWork: new(big.Int).Add(s.ChainWork, work),
		Height:    s.Height + 1,
	}, nil
}

// GenesisStoredBlock builds the StoredBlock for a network's genesis
// header: height 0, chain_work equal to the genesis header's own work.
func GenesisStoredBlock(genesis wire.BlockHeader) (*StoredBlock, error) {
	work, err := CalcWork(genesis.Bits)
	if err != nil {
		return nil, err
	}
	return &StoredBlock{Header: genesis, ChainWork: work, Height: 0}, nil
}

// StoreCodecError reports a malformed compact StoredBlock encoding.
type StoreCodecError struct {
	Reason string
}

func (e *StoreCodecError) Error() string { return "stored block codec: " + e.Reason }

// EncodeV1 writes the 96-byte compact encoding: chain_work_be:32 ||
// height:u32_be || header_80 (spec §4.5).
func (s *StoredBlock) EncodeV1() ([]byte, error) {
	out := make([]byte, StoredBlockV1Len)

	workBytes := s.ChainWork.Bytes()
	if len(workBytes) > 32 {
		return nil, &StoreCodecError{Reason: "chain work exceeds 256 bits"}
	}
	copy(out[32-len(workBytes):32], workBytes)

	putU32BE(out[32:36], uint32(s.Height))
	copy(out[36:], s.Header.SerializeBytes())

	return out, nil
}

// DecodeStoredBlockV1 parses a 96-byte v1 compact encoding.
func DecodeStoredBlockV1(b []byte) (*StoredBlock, error) {
	if len(b) != StoredBlockV1Len {
		return nil, &StoreCodecError{Reason: "v1 record has wrong length"}
	}

	work := new(big.Int).SetBytes(b[0:32])
	height := int32(getU32BE(b[32:36]))

	header, err := wire.BlockHeaderFromBytes(b[36:])
	if err != nil {
		return nil, err
	}

	return &StoredBlock{Header: *header, ChainWork: work, Height: height}, nil
}

// chainWorkFitsV2 reports whether s.ChainWork is small enough to
// survive the 12-byte truncation v2 uses without loss (spec §4.5:
// "valid while cumulative work fits"; overflow into the 13th byte
// forces a v1 fallback).
func (s *StoredBlock) chainWorkFitsV2() bool {
	return s.ChainWork.BitLen() <= 12*8
}

// EncodeV2 writes the 76-byte compact encoding: chain_work_be:12 ||
// height:u32_be || header_80. It returns false if the cumulative chain
// work no longer fits in 12 bytes, in which case the caller must fall
// back to EncodeV1 (spec §4.5 step "Cumulative work overflow ... MUST
// fall back to v1").
func (s *StoredBlock) EncodeV2() ([]byte, bool, error) {
	if !s.chainWorkFitsV2() {
		return nil, false, nil
	}

	out := make([]byte, StoredBlockV2Len)

	workBytes := s.ChainWork.Bytes()
	copy(out[12-len(workBytes):12], workBytes)

	putU32BE(out[12:16], uint32(s.Height))
	copy(out[16:], s.Header.SerializeBytes())

	return out, true, nil
}

// DecodeStoredBlockV2 parses a 76-byte v2 compact encoding.
func DecodeStoredBlockV2(b []byte) (*StoredBlock, error) {
	if len(b) != StoredBlockV2Len {
		return nil, &StoreCodecError{Reason: "v2 record has wrong length"}
	}

	work := new(big.Int).SetBytes(b[0:12])
	height := int32(getU32BE(b[12:16]))

	header, err := wire.BlockHeaderFromBytes(b[16:])
	if err != nil {
		return nil, err
	}

	return &StoredBlock{Header: *header, ChainWork: work, Height: height}, nil
}

// DecodeStoredBlock dispatches to DecodeStoredBlockV1 or
// DecodeStoredBlockV2 by the record's length, per spec §4.5 ("format
// chosen by record length").
func DecodeStoredBlock(b []byte) (*StoredBlock, error) {
	switch len(b) {
	case StoredBlockV1Len:
		return DecodeStoredBlockV1(b)
	case StoredBlockV2Len:
		return DecodeStoredBlockV2(b)
	default:
		return nil, &StoreCodecError{Reason: "record length matches neither v1 nor v2"}
	}
}

// EncodeCompact picks v2 when the cumulative chain work still fits in
// 12 bytes, falling back to v1 otherwise.
func (s *StoredBlock) EncodeCompact() ([]byte, error) {
	if b, ok, err := s.EncodeV2(); err != nil {
		return nil, err
	} else if ok {
		return b, nil
	}
	return s.EncodeV1()
}

func putU32BE(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32BE(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
