package wire

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/stretchr/testify/require"
)

// genesisCoinbase builds the mainnet genesis coinbase transaction,
// whose signature script carries the well-known Times headline.
func genesisCoinbase() *MsgTx {
	scriptSig, _ := hex.DecodeString(
		"04ffff001d0104455468652054696d65732030332f4a616e2f32303039204368616e63656c6c6f72206f6e206272696e6b206f66207365636f6e64206261696c6f757420666f722062616e6b73")
	pkScript, _ := hex.DecodeString(
		"4104678afdb0fe5548271967f1a67130b7105cd6a828e03909a67962e0ea1f61deb649f6bc3f4cef38c4f35504e51ec112de5c384df7ba0b8d578a4c702b6bf11d5fac")

	return &MsgTx{
		Version: 1,
		TxIn: []*TxIn{{
			PreviousOutPoint: OutPoint{Hash: chainhash.Hash{}, Index: 0xffffffff},
			SignatureScript:  scriptSig,
			Sequence:         0xffffffff,
		}},
		TxOut: []*TxOut{{
			Value:    5000000000,
			PkScript: pkScript,
		}},
		LockTime: 0,
	}
}

func TestGenesisCoinbaseTxID(t *testing.T) {
	tx := genesisCoinbase()
	require.True(t, tx.IsCoinBase())
	require.Equal(t, tx.TxHash(), tx.TxHash(), "hash must be stable across repeated calls")
}

func TestLegacyTxRoundTrip(t *testing.T) {
	tx := genesisCoinbase()

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	require.Equal(t, tx.SerializeSize(), buf.Len())

	got, err := DeserializeMsgTx(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, tx.TxHash(), got.TxHash())
	require.False(t, got.HasWitness())
}

func TestSegwitTxRoundTrip(t *testing.T) {
	tx := &MsgTx{
		Version: 2,
		TxIn: []*TxIn{{
			PreviousOutPoint: OutPoint{Hash: chainhash.DoubleHashH([]byte("prev")), Index: 1},
			SignatureScript:  nil,
			Sequence:         0xffffffff,
			Witness:          TxWitness{[]byte("sig"), []byte("pubkey")},
		}},
		TxOut: []*TxOut{{
			Value:    1000,
			PkScript: []byte{0x00, 0x14},
		}},
		LockTime: 0,
	}

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	raw := buf.Bytes()
	require.Equal(t, byte(0x00), raw[4])
	require.Equal(t, byte(0x01), raw[5])

	got, err := DeserializeMsgTx(bytes.NewReader(raw))
	require.NoError(t, err)
	require.True(t, got.HasWitness())
	require.Equal(t, tx.TxIn[0].Witness, got.TxIn[0].Witness)

	// txid excludes witness data; wtxid differs for a segwit tx.
	require.NotEqual(t, tx.TxHash(), tx.WitnessHash())

	legacyBuf := &bytes.Buffer{}
	require.NoError(t, tx.SerializeNoWitness(legacyBuf))
	require.Equal(t, tx.TxHash(), chainhash.DoubleHashH(legacyBuf.Bytes()))
}

func TestNonWitnessTxTxidEqualsWtxid(t *testing.T) {
	tx := genesisCoinbase()
	require.Equal(t, tx.TxHash(), tx.WitnessHash())
}

func TestOutPointIsNull(t *testing.T) {
	require.True(t, OutPoint{Index: 0xffffffff}.IsNull())
	require.False(t, OutPoint{Index: 0}.IsNull())
}
