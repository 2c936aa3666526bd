// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/chainparams"
)

// bigOne and oneLsh256 are used throughout the work calculation.
var (
	bigOne    = big.NewInt(1)
	oneLsh256 = new(big.Int).Lsh(bigOne, 256)
)

// DifficultyError identifies a compact-difficulty decode failure.
type DifficultyError struct {
	Reason string
}

func (e *DifficultyError) Error() string { return "compact difficulty: " + e.Reason }

// CompactToBig expands a 32-bit "compact" difficulty encoding
// (exponent || 24-bit mantissa, spec §3 "CompactDifficulty") into the
// 256-bit threshold T it represents. It returns an error if the
// mantissa's sign bit is set (spec §4.2: negative values are rejected)
// or the decoded value would not fit in 256 bits.
func CompactToBig(compact uint32) (*big.Int, error) {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	if isNegative {
		return nil, &DifficultyError{Reason: "mantissa sign bit set"}
	}

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if bn.BitLen() > 256 {
		return nil, &DifficultyError{Reason: "threshold does not fit in 256 bits"}
	}

	return bn, nil
}

// BigToCompact packs a 256-bit threshold into the 32-bit compact
// encoding, the inverse of CompactToBig. n must be non-negative.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	// When the mantissa's sign bit would be set by its own magnitude,
	// shift one more byte into the exponent to keep the value positive.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	return uint32(exponent<<24) | mantissa
}

// CalcWork computes the work a header with the given compact bits
// represents: floor(2^256 / (T+1)), per spec §3/§4.2.
func CalcWork(bits uint32) (*big.Int, error) {
	target, err := CompactToBig(bits)
	if err != nil {
		return nil, err
	}
	if target.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	denominator := new(big.Int).Add(target, bigOne)
	return new(big.Int).Div(oneLsh256, denominator), nil
}

// hashToBig interprets a hash as an unsigned 256-bit integer in
// reversed (big-endian, "display") byte order, per spec §3/§4.2.
func hashToBig(hash chainhash.Hash) *big.Int {
	reversed := hash.Reversed()
	return new(big.Int).SetBytes(reversed[:])
}

// IsMet reports whether hash satisfies the proof-of-work threshold
// encoded by bits: the hash, interpreted as an unsigned 256-bit integer
// in reversed order, must be <= T (spec §3 "CompactDifficulty").
func IsMet(hash chainhash.Hash, bits uint32) (bool, error) {
	target, err := CompactToBig(bits)
	if err != nil {
		return false, err
	}
	return hashToBig(hash).Cmp(target) <= 0, nil
}

// clampTimespan clamps an observed retarget-window duration to
// [targetTimespan/4, targetTimespan*4], per spec §4.7 step 3.
func clampTimespan(actual, target int64) int64 {
	min := target / 4
	max := target * 4
	switch {
	case actual < min:
		return min
	case actual > max:
		return max
	default:
		return actual
	}
}

// calcNextRequiredDifficulty computes the expected bits for the header
// that follows lastBits at lastHeight+1, given the previous header's
// time and, when a retarget boundary falls due, the timespan between
// the first and last header of the window just closed. This is a pure
// function of the inputs spec §4.7 step 3 names; the chain engine is
// responsible for locating those headers in the store.
func calcNextRequiredDifficulty(
	params chainparams.NetworkParameters,
	lastHeight int32,
	lastBits uint32,
	lastTime int64,
	newHeaderTime int64,
	windowFirstTime int64,
	windowLastTime int64,
) (uint32, error) {

	newHeight := lastHeight + 1

	// Testnet's "allow easiest difficulty" exception applies between
	// retarget boundaries, not at them.
	if params.ReduceMinDifficulty() && newHeight%params.RetargetInterval() != 0 {
		allowMinDiffAfter := lastTime + int64(params.MinDiffReductionTime().Seconds())
		if newHeaderTime > allowMinDiffAfter {
			return params.PowLimitBits(), nil
		}
		return lastBits, nil
	}

	// Not a retarget boundary: bits must match the previous header.
	if newHeight%params.RetargetInterval() != 0 {
		return lastBits, nil
	}

	actualTimespan := windowLastTime - windowFirstTime
	targetTimespan := int64(params.TargetTimespan().Seconds())
	adjustedTimespan := clampTimespan(actualTimespan, targetTimespan)

	oldTarget, err := CompactToBig(lastBits)
	if err != nil {
		return 0, err
	}

	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(adjustedTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	powLimit := params.PowLimit()
	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}

	return BigToCompact(newTarget), nil
}
