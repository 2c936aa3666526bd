// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
)

// maxTxPerBlock bounds the claimed transaction count, guarding against
// a malicious VarInt forcing an oversized slice allocation.
const maxTxPerBlock = 1_000_000

// MsgBlock is a header plus an optional list of transactions, per spec
// §3 ("Block"). Header-only blocks (Transactions == nil) still have a
// well-defined hash via Header.BlockHash.
type MsgBlock struct {
	Header       BlockHeader
	Transactions []*MsgTx
}

// Serialize writes the canonical wire encoding: the 80-byte header
// followed by a VarInt transaction count and each transaction.
func (b *MsgBlock) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// SerializeSize returns the exact size Serialize would write.
func (b *MsgBlock) SerializeSize() int {
	n := BlockHeaderLen + VarIntSerializeSize(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		n += tx.SerializeSize()
	}
	return n
}

// DeserializeMsgBlock parses a full, body-bearing block from its wire
// encoding.
func DeserializeMsgBlock(r io.Reader) (*MsgBlock, error) {
	header, err := DeserializeBlockHeader(r)
	if err != nil {
		return nil, err
	}

	count, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxTxPerBlock {
		return nil, codecErr(ErrMalformed, "too many transactions in block")
	}

	txs := make([]*MsgTx, count)
	for i := range txs {
		tx, err := DeserializeMsgTx(r)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}

	return &MsgBlock{Header: *header, Transactions: txs}, nil
}

// MsgBlockFromBytes is a convenience wrapper around DeserializeMsgBlock.
func MsgBlockFromBytes(b []byte) (*MsgBlock, error) {
	return DeserializeMsgBlock(bytes.NewReader(b))
}

// DeserializeHeaderOnly parses just the 80-byte header from a buffer
// that may have a transaction list following it, without touching the
// remainder of r, for SPV-mode callers that only need the header
// (spec §4.7: "The engine ingests headers (SPV mode) or full blocks").
// The chain engine itself takes an already-parsed BlockHeader.
func DeserializeHeaderOnly(r io.Reader) (*BlockHeader, error) {
	return DeserializeBlockHeader(r)
}
