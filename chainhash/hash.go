// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash implements the opaque 32-byte hash type consensus
// code is keyed and compared by, and the double-SHA-256 primitive
// every hash in the header-chain engine is built from.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashSize is the number of bytes in a Hash256.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash256 hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified
// a hash string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is an opaque 32-byte value used as the consensus identifier for
// headers, transactions and merkle nodes. The bytes are stored in their
// "natural" order, the order they are produced by sha256d; callers that
// want the reversed, big-endian "display" order used by block explorers
// and difficulty comparisons should use String or Reversed accordingly.
type Hash [HashSize]byte

// String returns the Hash as the reversed, hex-encoded string used by
// block explorers (big-endian display order).
func (h Hash) String() string {
	var reversed Hash
	for i, b := range h[:HashSize/2] {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], b
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a newly allocated copy of the natural-order bytes.
func (h Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// SetBytes copies the natural-order bytes from newHash into h.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v",
			len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if the two hashes are identical. Two nil
// pointers are equal; a nil and a non-nil pointer never are.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// Reversed returns a copy of h with its bytes in reversed order, i.e.
// converts between natural and display order (the conversion is its
// own inverse).
func (h Hash) Reversed() Hash {
	var out Hash
	for i := 0; i < HashSize; i++ {
		out[i] = h[HashSize-1-i]
	}
	return out
}

// NewHash returns a new Hash from a natural-order byte slice.
func NewHash(newHash []byte) (*Hash, error) {
	var h Hash
	if err := h.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &h, nil
}

// NewHashFromStr creates a Hash from the reversed, hex-encoded display
// string used by block explorers.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	if err := Decode(ret, hash); err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the reversed, hex-encoded display string src into dst.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	// For strings shorter than the full hash size, the reference
	// implementation (and block explorers) pad the left with zeroes.
	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1, len(src)+1)
		srcBytes[0] = '0'
		srcBytes = append(srcBytes, src...)
	}

	reversedHash := make([]byte, HashSize)
	if _, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes); err != nil {
		return err
	}

	for i, b := range reversedHash[:HashSize/2] {
		reversedHash[i], reversedHash[HashSize-1-i] = reversedHash[HashSize-1-i], b
	}
	copy(dst[:], reversedHash)
	return nil
}

// HashB calculates the SHA-256 hash of the given byte slice.
func HashB(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// HashH calculates the SHA-256 hash of the given byte slice and returns
// it as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB calculates sha256(sha256(b)) and returns the resulting
// bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates sha256(sha256(b)) and returns the result as a
// Hash, saving an allocation over DoubleHashB.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// DoubleHashRaw calculates sha256(sha256(x)) where x is written by the
// given function into an internal running hash, saving the caller an
// intermediate byte-slice allocation. Writing into a running hash never
// fails, so f is only expected to return non-nil if it aborts early;
// DoubleHashRaw panics in that case since no caller in this module
// writes a failing sink.
func DoubleHashRaw(f func(w io.Writer) error) Hash {
	h := sha256.New()
	if err := f(h); err != nil {
		panic("chainhash: DoubleHashRaw: " + err.Error())
	}
	first := h.Sum(nil)
	return Hash(sha256.Sum256(first))
}
