// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/spvkit/headerchain/chainhash"
)

// BlockHeaderLen is the number of bytes a serialized BlockHeader
// occupies on the wire: 4 (version) + 32 (prev hash) + 32 (merkle
// root) + 4 (time) + 4 (bits) + 4 (nonce), per spec §3.
const BlockHeaderLen = 80

// BlockHeader is the 80-byte, bit-exact Bitcoin block header of spec
// §3. It is immutable once constructed outside of the setters test
// harnesses use (spec §3 "Lifecycles"); SetNonce/SetTime exist only
// for building test fixtures and always invalidate the cached hash.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32

	// cachedHash memoizes BlockHash; it is invalidated by any setter.
	cachedHash *chainhash.Hash
}

// BlockHash computes sha256d over the serialized 80-byte header and
// caches the result on first access (spec §4.4 "Header hash").
func (h *BlockHeader) BlockHash() chainhash.Hash {
	if h.cachedHash != nil {
		return *h.cachedHash
	}
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	// Serialize cannot fail writing into a bytes.Buffer.
	_ = h.serialize(buf)
	hash := chainhash.DoubleHashH(buf.Bytes())
	h.cachedHash = &hash
	return hash
}

// SetNonce sets the header's nonce and invalidates the cached hash. It
// exists only for test harnesses that build headers incrementally;
// spec §3 headers are otherwise immutable.
func (h *BlockHeader) SetNonce(nonce uint32) {
	h.Nonce = nonce
	h.cachedHash = nil
}

// SetTime sets the header's timestamp and invalidates the cached hash.
func (h *BlockHeader) SetTime(t uint32) {
	h.Time = t
	h.cachedHash = nil
}

func (h *BlockHeader) serialize(w io.Writer) error {
	if err := writeUint32(w, uint32(h.Version)); err != nil {
		return err
	}
	if err := WriteHash(w, h.PrevBlock); err != nil {
		return err
	}
	if err := WriteHash(w, h.MerkleRoot); err != nil {
		return err
	}
	if err := writeUint32(w, h.Time); err != nil {
		return err
	}
	if err := writeUint32(w, h.Bits); err != nil {
		return err
	}
	return writeUint32(w, h.Nonce)
}

// Serialize writes the canonical 80-byte wire encoding of h to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return h.serialize(w)
}

// SerializeBytes returns the canonical 80-byte wire encoding of h.
func (h *BlockHeader) SerializeBytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderLen))
	_ = h.serialize(buf)
	return buf.Bytes()
}

// DeserializeBlockHeader parses an 80-byte wire-encoded block header.
func DeserializeBlockHeader(r io.Reader) (*BlockHeader, error) {
	var h BlockHeader

	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	h.Version = int32(version)

	if h.PrevBlock, err = ReadHash(r); err != nil {
		return nil, err
	}
	if h.MerkleRoot, err = ReadHash(r); err != nil {
		return nil, err
	}
	if h.Time, err = readUint32(r); err != nil {
		return nil, err
	}
	if h.Bits, err = readUint32(r); err != nil {
		return nil, err
	}
	if h.Nonce, err = readUint32(r); err != nil {
		return nil, err
	}

	return &h, nil
}

// BlockHeaderFromBytes is a convenience wrapper around
// DeserializeBlockHeader for callers already holding the raw bytes.
func BlockHeaderFromBytes(b []byte) (*BlockHeader, error) {
	if len(b) < BlockHeaderLen {
		return nil, codecErr(ErrTruncated, "block header")
	}
	return DeserializeBlockHeader(bytes.NewReader(b[:BlockHeaderLen]))
}
