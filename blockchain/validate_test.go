package blockchain

import (
	"testing"
	"time"

	"github.com/spvkit/headerchain/chainparams"
	"github.com/spvkit/headerchain/wire"
	"github.com/stretchr/testify/require"
)

func TestVerifyHeaderGenesisAccepted(t *testing.T) {
	genesis := chainparams.MainNetParams().GenesisHeader()
	now := time.Unix(1231006505, 0).Add(time.Hour)
	require.NoError(t, VerifyHeader(&genesis, now))
}

func TestVerifyHeaderRejectsFutureTimestamp(t *testing.T) {
	genesis := chainparams.MainNetParams().GenesisHeader()
	now := time.Unix(int64(genesis.Time), 0).Add(-3 * time.Hour)

	err := VerifyHeader(&genesis, now)
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrTimestampTooFarAhead, verr.Kind)
}

func TestVerifyHeaderRejectsBadPow(t *testing.T) {
	genesis := chainparams.MainNetParams().GenesisHeader()
	genesis.Bits = 0x1b00ffff // a tighter target the genesis nonce does not satisfy
	now := time.Unix(int64(genesis.Time), 0).Add(time.Hour)

	err := VerifyHeader(&genesis, now)
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrPowBelowTarget, verr.Kind)
}

func TestVerifyTransactionsGenesisBlock(t *testing.T) {
	block := chainparams.GenesisBlock()
	require.NoError(t, VerifyTransactions(block, HeightAssertion{}))
}

func TestVerifyTransactionsRejectsEmptyBlock(t *testing.T) {
	block := &wire.MsgBlock{}
	err := VerifyTransactions(block, HeightAssertion{})
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrEmptyBlock, verr.Kind)
}

func TestVerifyTransactionsRejectsMerkleMismatch(t *testing.T) {
	block := chainparams.GenesisBlock()
	block.Header.MerkleRoot[0] ^= 0xff

	err := VerifyTransactions(block, HeightAssertion{})
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrMerkleMismatch, verr.Kind)
}

func TestVerifyTransactionsRejectsBadCoinbasePosition(t *testing.T) {
	block := chainparams.GenesisBlock()
	second := chainparams.GenesisCoinbase()
	block.Transactions = append(block.Transactions, second)
	block.Header.MerkleRoot = CalcMerkleRoot(block.Transactions, false)

	err := VerifyTransactions(block, HeightAssertion{})
	require.Error(t, err)

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ErrBadCoinbasePosition, verr.Kind)
}

func TestCheckCoinbaseHeightSmallInt(t *testing.T) {
	coinbase := &wire.MsgTx{
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  []byte{0x51}, // OP_1 -> height 1
		}},
		TxOut: []*wire.TxOut{{Value: 5000000000}},
	}
	require.NoError(t, checkCoinbaseHeight(coinbase, 1))
	require.Error(t, checkCoinbaseHeight(coinbase, 2))
}

func TestCheckCoinbaseHeightDataPush(t *testing.T) {
	// height 500 = 0x01f4, little-endian minimal push: 0x02 0xf4 0x01
	coinbase := &wire.MsgTx{
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  []byte{0x02, 0xf4, 0x01},
		}},
		TxOut: []*wire.TxOut{{Value: 5000000000}},
	}
	require.NoError(t, checkCoinbaseHeight(coinbase, 500))
}
