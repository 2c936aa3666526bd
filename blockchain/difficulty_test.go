package blockchain

import (
	"math/big"
	"testing"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompactDifficultyRoundTrip(t *testing.T) {
	tests := []uint32{0x1d00ffff, 0x207fffff, 0x1b0404cb}
	for _, bits := range tests {
		target, err := CompactToBig(bits)
		require.NoError(t, err)
		require.Equal(t, bits, BigToCompact(target))
	}
}

func TestCompactDifficultyRejectsNegative(t *testing.T) {
	_, err := CompactToBig(0x01800000)
	require.Error(t, err)
}

func TestGenesisWork(t *testing.T) {
	work, err := CalcWork(0x1d00ffff)
	require.NoError(t, err)
	require.True(t, work.Sign() > 0)
}

func TestIsMetGenesis(t *testing.T) {
	hash, err := chainhash.NewHashFromStr(
		"000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")
	require.NoError(t, err)

	met, err := IsMet(*hash, 0x1d00ffff)
	require.NoError(t, err)
	require.True(t, met)
}

func TestIsMetRejectsAboveTarget(t *testing.T) {
	// An all-0xff hash is never <= any valid target.
	var hash chainhash.Hash
	for i := range hash {
		hash[i] = 0xff
	}
	met, err := IsMet(hash, 0x1d00ffff)
	require.NoError(t, err)
	require.False(t, met)
}

func TestClampTimespan(t *testing.T) {
	target := int64(14 * 24 * 60 * 60)
	require.Equal(t, target/4, clampTimespan(1, target))
	require.Equal(t, target*4, clampTimespan(target*100, target))
	require.Equal(t, target, clampTimespan(target, target))
}

// TestCompactRoundTripProperty exercises spec §8's compact-encoding
// round-trip invariant: encode(decode(encode(n))) == encode(n) for
// arbitrary non-negative thresholds representable in 256 bits. Compact
// difficulty is a lossy, not-necessarily-canonical wire encoding, so
// the fixed point is reached after one encode rather than holding for
// every bit pattern a caller might feed CompactToBig directly.
func TestCompactRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numBytes := rapid.IntRange(0, 32).Draw(rt, "numBytes")
		raw := rapid.SliceOfN(rapid.Byte(), numBytes, numBytes).Draw(rt, "raw")
		n := new(big.Int).SetBytes(raw)

		compact := BigToCompact(n)
		target, err := CompactToBig(compact)
		require.NoError(rt, err)
		require.Equal(rt, compact, BigToCompact(target))
	})
}
