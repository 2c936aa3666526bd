// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/wire"
)

const (
	// CoinbaseWitnessDataLen is the required length of the only element
	// within the coinbase's witness data when a witness commitment is
	// present.
	CoinbaseWitnessDataLen = 32

	// CoinbaseWitnessPkScriptLength is the length of the public key
	// script containing an OP_RETURN, the witness magic bytes, and the
	// witness commitment itself.
	CoinbaseWitnessPkScriptLength = 38
)

// WitnessMagicBytes is the prefix marker within the public key script
// of a coinbase output that carries a block's witness commitment:
// OP_RETURN (0x6a), a 36-byte data push (0x24), then the 4-byte magic
// 0xaa21a9ed (spec §4.4, "witness commitment").
var WitnessMagicBytes = []byte{0x6a, 0x24, 0xaa, 0x21, 0xa9, 0xed}

// nextPowerOfTwo returns the next highest power of two from a given
// number if it is not already a power of two.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	exponent := uint(math.Log2(float64(n))) + 1
	return 1 << exponent
}

// HashMerkleBranches takes two hashes, treated as the left and right
// tree nodes, and returns the double-sha256 of their concatenation.
func HashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])

	return chainhash.DoubleHashRaw(func(w io.Writer) error {
		_, err := w.Write(buf[:])
		return err
	})
}

// leafHashes returns the per-transaction leaf hashes that feed the
// merkle tree: txid in the ordinary case, wtxid when witness is true
// (with the coinbase's wtxid forced to the zero hash, spec §4.4).
func leafHashes(transactions []*wire.MsgTx, witness bool) []*chainhash.Hash {
	leaves := make([]*chainhash.Hash, len(transactions))
	for i, tx := range transactions {
		switch {
		case witness && i == 0:
			var zero chainhash.Hash
			leaves[i] = &zero
		case witness:
			h := tx.WitnessHash()
			leaves[i] = &h
		default:
			h := tx.TxHash()
			leaves[i] = &h
		}
	}
	return leaves
}

// BuildMerkleTreeStore creates a merkle tree from a slice of
// transactions, stores it using a linear array, and returns a slice of
// the backing array (spec §4.4, "Merkle tree computation").
//
// A merkle tree is a tree in which every non-leaf node is the hash of
// its children nodes:
//
//	         root = h1234 = h(h12 + h34)
//	        /                           \
//	  h12 = h(h1 + h2)            h34 = h(h3 + h4)
//	   /            \              /            \
//	h1 = h(tx1)  h2 = h(tx2)    h3 = h(tx3)  h4 = h(tx4)
//
// stored as the linear array [h1 h2 h3 h4 h12 h34 root]; the root is
// always the last element.
//
// The number of leaves is not always a power of two, which produces a
// balanced tree as above only when it already is one. Otherwise a
// parent with only a left child is computed by concatenating that
// child with itself (the odd-node duplication rule). The witness
// parameter selects txid leaves (false) or wtxid leaves with a
// zeroed coinbase entry (true).
func BuildMerkleTreeStore(transactions []*wire.MsgTx, witness bool) []*chainhash.Hash {
	nextPoT := nextPowerOfTwo(len(transactions))
	arraySize := nextPoT*2 - 1
	merkles := make([]*chainhash.Hash, arraySize)

	copy(merkles, leafHashes(transactions, witness))

	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil
		case merkles[i+1] == nil:
			newHash := HashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = &newHash
		default:
			newHash := HashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = &newHash
		}
		offset++
	}

	return merkles
}

// CalcMerkleRoot computes the merkle root over a block's transactions.
// The witness parameter selects the transaction-id tree (false) or the
// witness-id tree (true) per spec §4.4.
func CalcMerkleRoot(transactions []*wire.MsgTx, witness bool) chainhash.Hash {
	tree := BuildMerkleTreeStore(transactions, witness)
	return *tree[len(tree)-1]
}

// NaiveMerkleRoot recomputes a merkle root using the same pair-and-
// duplicate rule as CalcMerkleRoot, but via direct, unoptimized
// level-by-level reduction rather than a linear backing array. It
// exists purely as an independent reference implementation for
// property-based testing (spec §8: "for any non-empty tx list, the
// computed merkle root equals the root obtained by a naive pair-and-
// duplicate reference implementation").
func NaiveMerkleRoot(transactions []*wire.MsgTx, witness bool) chainhash.Hash {
	level := make([]chainhash.Hash, len(transactions))
	for i, h := range leafHashes(transactions, witness) {
		level[i] = *h
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			left, right := level[2*i], level[2*i+1]
			next[i] = HashMerkleBranches(&left, &right)
		}
		level = next
	}

	return level[0]
}

// ExtractWitnessCommitment attempts to locate a block's witness
// commitment within its coinbase transaction's outputs. It returns the
// 32-byte commitment and true if one was found. The witness commitment
// is the data push immediately following the WitnessMagicBytes prefix
// of the highest-index matching output; outputs are scanned from the
// last one backward and the first match is returned (spec §4.4).
func ExtractWitnessCommitment(coinbase *wire.MsgTx) ([]byte, bool) {
	for i := len(coinbase.TxOut) - 1; i >= 0; i-- {
		pkScript := coinbase.TxOut[i].PkScript
		if len(pkScript) >= CoinbaseWitnessPkScriptLength &&
			bytes.HasPrefix(pkScript, WitnessMagicBytes) {

			start := len(WitnessMagicBytes)
			end := CoinbaseWitnessPkScriptLength
			return pkScript[start:end], true
		}
	}
	return nil, false
}

// ValidateWitnessCommitment validates the witness commitment (if any)
// found within a block's coinbase transaction against the block's
// actual witness merkle root (spec §4.4).
func ValidateWitnessCommitment(block *wire.MsgBlock) error {
	if len(block.Transactions) == 0 {
		return ruleError(ErrEmptyBlock, "cannot validate witness commitment of block without transactions")
	}

	coinbase := block.Transactions[0]
	if len(coinbase.TxIn) == 0 {
		return ruleError(ErrNoTxInputs, "coinbase transaction has no inputs")
	}

	commitment, found := ExtractWitnessCommitment(coinbase)
	if !found {
		for _, tx := range block.Transactions {
			if tx.HasWitness() {
				return ruleError(ErrUnexpectedWitness,
					"block contains transaction with witness data, yet no witness commitment present")
			}
		}
		return nil
	}

	coinbaseWitness := coinbase.TxIn[0].Witness
	if len(coinbaseWitness) != 1 {
		return ruleError(ErrInvalidWitnessCommitment,
			fmt.Sprintf("coinbase has %d witness stack items when only one is allowed", len(coinbaseWitness)))
	}
	witnessNonce := coinbaseWitness[0]
	if len(witnessNonce) != CoinbaseWitnessDataLen {
		return ruleError(ErrInvalidWitnessCommitment,
			fmt.Sprintf("coinbase witness nonce has %d bytes when it must be %d", len(witnessNonce), CoinbaseWitnessDataLen))
	}

	witnessRoot := CalcMerkleRoot(block.Transactions, true)

	var preimage [chainhash.HashSize * 2]byte
	copy(preimage[:], witnessRoot[:])
	copy(preimage[chainhash.HashSize:], witnessNonce)

	computed := chainhash.DoubleHashB(preimage[:])
	if !bytes.Equal(computed, commitment) {
		return ruleError(ErrWitnessCommitmentMismatch,
			fmt.Sprintf("computed %x, coinbase includes %x", computed, commitment))
	}

	return nil
}
