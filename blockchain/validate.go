// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"time"

	"github.com/spvkit/headerchain/wire"
)

// MaxBlockSize is the consensus limit on a block's serialized size in
// bytes, per spec §4.4.
const MaxBlockSize = 1_000_000

// MaxBlockSigOps is the consensus limit on a block's accumulated
// legacy sig-op count: MaxBlockSize/50, per spec §4.4.
const MaxBlockSigOps = MaxBlockSize / 50

// MaxTimeAdjustment is the allowed drift of a header's timestamp into
// the future relative to the validator's clock, per spec §4.4
// ("check_timestamp").
const MaxTimeAdjustment = 2 * time.Hour

// VerifyHeader performs the header-only checks spec §4.4 names:
// proof-of-work below the threshold the header's own bits claim, and a
// timestamp no further than MaxTimeAdjustment ahead of now. It does not
// check that bits matches the retarget rule; that requires chain
// context and is the chain engine's responsibility (calcNextRequiredDifficulty).
func VerifyHeader(header *wire.BlockHeader, now time.Time) error {
	hash := header.BlockHash()
	met, err := IsMet(hash, header.Bits)
	if err != nil {
		return ruleError(ErrPowBelowTarget, err.Error())
	}
	if !met {
		return ruleError(ErrPowBelowTarget,
			fmt.Sprintf("block hash %s is higher than expected target", hash))
	}

	maxTime := now.Add(MaxTimeAdjustment)
	headerTime := time.Unix(int64(header.Time), 0)
	if headerTime.After(maxTime) {
		return ruleError(ErrTimestampTooFarAhead,
			fmt.Sprintf("block timestamp %s is too far in the future", headerTime))
	}

	return nil
}

// HeightAssertion controls whether VerifyTransactions checks the
// BIP-34 coinbase height push against a caller-supplied height (spec
// §4.4: "if the caller asserts HEIGHT_IN_COINBASE").
type HeightAssertion struct {
	Assert bool
	Height int32
}

// VerifyTransactions performs the body checks spec §4.4 names: a
// non-empty transaction list; serialized size within MaxBlockSize; the
// first transaction is a coinbase and no other transaction is; the
// BIP-34 coinbase height push matches heightAssertion when requested;
// the computed merkle root matches the header's merkle_root; and the
// accumulated legacy sig-op count is within MaxBlockSigOps.
//
// Per-transaction signature and script validity beyond opcode-level
// sig-op accounting is deferred to an external verifier (spec §1).
func VerifyTransactions(block *wire.MsgBlock, heightAssertion HeightAssertion) error {
	if len(block.Transactions) == 0 {
		return ruleError(ErrEmptyBlock, "block has no transactions")
	}

	if size := block.SerializeSize(); size > MaxBlockSize {
		return ruleError(ErrOversizedBlock,
			fmt.Sprintf("serialized block is %d bytes, maximum is %d", size, MaxBlockSize))
	}

	if !block.Transactions[0].IsCoinBase() {
		return ruleError(ErrBadCoinbasePosition, "first transaction is not a coinbase")
	}
	for _, tx := range block.Transactions[1:] {
		if tx.IsCoinBase() {
			return ruleError(ErrBadCoinbasePosition, "multiple coinbase transactions")
		}
	}

	if heightAssertion.Assert {
		if err := checkCoinbaseHeight(block.Transactions[0], heightAssertion.Height); err != nil {
			return err
		}
	}

	computedRoot := CalcMerkleRoot(block.Transactions, false)
	if computedRoot != block.Header.MerkleRoot {
		return ruleError(ErrMerkleMismatch,
			fmt.Sprintf("computed %s, header claims %s", computedRoot, block.Header.MerkleRoot))
	}

	if sigOps := blockSigOpCount(block); sigOps > MaxBlockSigOps {
		return ruleError(ErrSigOpsExceeded,
			fmt.Sprintf("block has %d sig-ops, maximum is %d", sigOps, MaxBlockSigOps))
	}

	return nil
}

// checkCoinbaseHeight validates the BIP-34 height push: the coinbase's
// signature script must begin with a push of the little-endian block
// height. Only the decoded value is compared; whether the push is
// minimally encoded is not checked.
func checkCoinbaseHeight(coinbase *wire.MsgTx, wantHeight int32) error {
	sigScript := coinbase.TxIn[0].SignatureScript
	if len(sigScript) < 1 {
		return ruleError(ErrBadCoinbaseHeight, "coinbase signature script is empty")
	}

	serializedHeight, err := serializedHeightFromScript(sigScript)
	if err != nil {
		return ruleError(ErrBadCoinbaseHeight, err.Error())
	}
	if serializedHeight != wantHeight {
		return ruleError(ErrBadCoinbaseHeight,
			fmt.Sprintf("coinbase height %d does not match expected %d", serializedHeight, wantHeight))
	}
	return nil
}

// serializedHeightFromScript decodes a BIP-34 minimal height push: the
// first opcode is either a direct small-integer push (op1..op16 or
// OP_0) or a length-prefixed data push, read as a little-endian signed
// integer per Bitcoin's script number encoding.
func serializedHeightFromScript(script []byte) (int32, error) {
	op := script[0]

	switch {
	case op == 0x00:
		return 0, nil
	case op >= op1 && op <= op16:
		return int32(op-op1) + 1, nil
	case op >= opData1 && op < opPushData1:
		n := int(op)
		if len(script) < 1+n {
			return 0, fmt.Errorf("coinbase height push truncated")
		}
		return scriptNumToInt32(script[1 : 1+n]), nil
	default:
		return 0, fmt.Errorf("coinbase script does not begin with a height push")
	}
}

// scriptNumToInt32 decodes a Bitcoin script number: little-endian
// magnitude with the sign carried in the top bit of the last byte.
func scriptNumToInt32(b []byte) int32 {
	if len(b) == 0 {
		return 0
	}
	var result int64
	for i, bb := range b {
		result |= int64(bb) << uint(8*i)
	}
	if b[len(b)-1]&0x80 != 0 {
		result &^= int64(0x80) << uint(8*(len(b)-1))
		result = -result
	}
	return int32(result)
}
