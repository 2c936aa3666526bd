// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "github.com/spvkit/headerchain/wire"

// Legacy opcode values needed to recognize signature-check opcodes
// and small-integer pushes while scanning a script. Full script
// interpretation (push-data evaluation, control flow, stack effects)
// is an explicit external collaborator per spec §1; this is a opcode
// byte scan only, the same shallow pass a header-and-block validator
// that never executes scripts can perform.
const (
	opData1               = 0x01
	opPushData1           = 0x4c
	opPushData2           = 0x4d
	opPushData4           = 0x4e
	op1                   = 0x51
	op16                  = 0x60
	opCheckSig            = 0xac
	opCheckSigVerify      = 0xad
	opCheckMultiSig       = 0xae
	opCheckMultiSigVerify = 0xaf
)

// countSigOps scans a script's raw opcode stream and counts the
// signature checks it claims, using the conservative legacy rule: an
// OP_CHECKSIG/OP_CHECKSIGVERIFY counts as one, and an
// OP_CHECKMULTISIG/OP_CHECKMULTISIGVERIFY counts as the small integer
// immediately preceding it (the claimed key count) when present, or a
// conservative 20 otherwise. Data pushes are skipped, not interpreted.
func countSigOps(script []byte) int {
	count := 0
	lastOp := byte(0x00)

	for i := 0; i < len(script); {
		op := script[i]

		switch {
		case op == opCheckSig || op == opCheckSigVerify:
			count++
			i++

		case op == opCheckMultiSig || op == opCheckMultiSigVerify:
			if lastOp >= op1 && lastOp <= op16 {
				count += int(lastOp-op1) + 1
			} else {
				count += 20
			}
			i++

		case op >= opData1 && op < opPushData1:
			i += 1 + int(op)

		case op == opPushData1:
			if i+1 >= len(script) {
				return count
			}
			n := int(script[i+1])
			i += 2 + n

		case op == opPushData2:
			if i+2 >= len(script) {
				return count
			}
			n := int(script[i+1]) | int(script[i+2])<<8
			i += 3 + n

		case op == opPushData4:
			if i+4 >= len(script) {
				return count
			}
			n := int(script[i+1]) | int(script[i+2])<<8 |
				int(script[i+3])<<16 | int(script[i+4])<<24
			i += 5 + n

		default:
			i++
		}

		lastOp = op
	}

	return count
}

// blockSigOpCount sums the legacy sig-op count across every input's
// signature script and every output's public key script in a block's
// transactions, per spec §4.4's "sum of per-tx sig-op counts".
func blockSigOpCount(block *wire.MsgBlock) int {
	total := 0
	for _, tx := range block.Transactions {
		for _, in := range tx.TxIn {
			total += countSigOps(in.SignatureScript)
		}
		for _, out := range tx.TxOut {
			total += countSigOps(out.PkScript)
		}
	}
	return total
}
