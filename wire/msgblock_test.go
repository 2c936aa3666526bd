// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/stretchr/testify/require"
)

func TestMsgBlockRoundTrip(t *testing.T) {
	tx := genesisCoinbase()
	block := &MsgBlock{
		Header: BlockHeader{
			Version:    1,
			MerkleRoot: tx.TxHash(),
			Time:       1231006505,
			Bits:       0x1d00ffff,
			Nonce:      2083236893,
		},
		Transactions: []*MsgTx{tx},
	}

	var buf bytes.Buffer
	require.NoError(t, block.Serialize(&buf))
	require.Equal(t, block.SerializeSize(), buf.Len())

	got, err := MsgBlockFromBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, block.Header.BlockHash(), got.Header.BlockHash())
	require.Len(t, got.Transactions, 1)
	require.Equal(t, tx.TxHash(), got.Transactions[0].TxHash())
}

func TestMsgBlockHeaderOnlyHasWellDefinedHash(t *testing.T) {
	block := &MsgBlock{
		Header: BlockHeader{
			Version:    1,
			MerkleRoot: chainhash.Hash{},
			Time:       1,
			Bits:       0x207fffff,
		},
	}
	require.NotEqual(t, chainhash.Hash{}, block.Header.BlockHash())
	require.Nil(t, block.Transactions)
}

func TestMsgBlockRejectsOversizedTxCount(t *testing.T) {
	var buf bytes.Buffer
	header := BlockHeader{Version: 1, Bits: 0x1d00ffff}
	require.NoError(t, header.Serialize(&buf))
	require.NoError(t, WriteVarInt(&buf, maxTxPerBlock+1))

	_, err := DeserializeMsgBlock(&buf)
	require.Error(t, err)
}
