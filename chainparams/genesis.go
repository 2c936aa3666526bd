// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainparams

import (
	"encoding/hex"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/wire"
)

// mustDecodeHex panics on malformed input; used only for the fixed,
// known-good hex literals below.
func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// genesisCoinbaseScriptSig carries the well-known Times headline BIP34
// predates (spec §8 scenario 1).
var genesisCoinbaseScriptSig = mustDecodeHex(
	"04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73")

var genesisCoinbasePkScript = mustDecodeHex(
	"4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac")

// GenesisCoinbase builds the mainnet genesis block's sole, unspendable
// (by convention) coinbase transaction.
func GenesisCoinbase() *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{}, Index: 0xffffffff},
			SignatureScript:  append([]byte(nil), genesisCoinbaseScriptSig...),
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{
			Value:    5000000000,
			PkScript: append([]byte(nil), genesisCoinbasePkScript...),
		}},
		LockTime: 0,
	}
}

func mainNetGenesisHeader() wire.BlockHeader {
	coinbase := GenesisCoinbase()
	return wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: coinbase.TxHash(),
		Time:       1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}
}

// GenesisBlock returns the full mainnet genesis block, header plus
// coinbase, matching spec §8 scenario 1's hash
// 000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f.
func GenesisBlock() *wire.MsgBlock {
	return &wire.MsgBlock{
		Header:       mainNetGenesisHeader(),
		Transactions: []*wire.MsgTx{GenesisCoinbase()},
	}
}

// regTestGenesisHeader reuses the mainnet genesis transaction content
// under the regtest pow limit; the genesis header itself is never
// proof-of-work checked (the regtest limit admits roughly half of all
// hashes), so genesis is defined by convention to carry nonce 0.
func regTestGenesisHeader() wire.BlockHeader {
	h := mainNetGenesisHeader()
	h.Bits = 0x207fffff
	h.Nonce = 0
	return h
}
