// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainparams defines the NetworkParameters external
// collaborator of spec §6: genesis header, retarget interval, and the
// testnet minimum-difficulty flag the chain engine consults.
package chainparams

import (
	"math/big"
	"time"

	"github.com/spvkit/headerchain/wire"
)

var bigOne = big.NewInt(1)

// mainPowLimit is the highest proof-of-work value a mainnet header can
// have: 2^224 - 1, the same limit Bitcoin itself uses.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// regTestPowLimit is the highest proof-of-work value a regtest header
// can have: 2^255 - 1, trivially easy for local testing.
var regTestPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

// NetworkParameters is the external collaborator spec §6 names:
// "NetworkParameters supplying genesis header, retarget interval,
// testnet flag." Every field the chain engine's difficulty retarget
// (spec §4.7 step 3) and bootstrap path consult lives here.
type NetworkParameters interface {
	// Net identifies the network magic.
	Net() wire.BitcoinNet

	// GenesisHeader returns the network's genesis block header.
	GenesisHeader() wire.BlockHeader

	// PowLimit is the highest (easiest) proof-of-work threshold any
	// header on this network may claim.
	PowLimit() *big.Int

	// PowLimitBits is PowLimit encoded in compact form.
	PowLimitBits() uint32

	// RetargetInterval is the number of blocks between difficulty
	// adjustments (spec §4.7: "every 2016 blocks").
	RetargetInterval() int32

	// TargetTimespan is the intended duration of one retarget window
	// (spec §4.7: "target_timespan = 14 days").
	TargetTimespan() time.Duration

	// TargetSpacing is the intended time between consecutive blocks.
	TargetSpacing() time.Duration

	// ReduceMinDifficulty reports whether the "testnet" easiest-allowed-
	// bits rule of spec §4.7 step 3 applies to this network.
	ReduceMinDifficulty() bool

	// MinDiffReductionTime is the gap after which, on networks with
	// ReduceMinDifficulty set, a header may claim the easiest allowed
	// difficulty (spec §4.7: "time > prev.time + 20 min").
	MinDiffReductionTime() time.Duration
}

type params struct {
	net                   wire.BitcoinNet
	genesis               wire.BlockHeader
	powLimit              *big.Int
	powLimitBits          uint32
	retargetInterval      int32
	targetTimespan        time.Duration
	targetSpacing         time.Duration
	reduceMinDifficulty   bool
	minDiffReductionTime  time.Duration
}

func (p *params) Net() wire.BitcoinNet                  { return p.net }
func (p *params) GenesisHeader() wire.BlockHeader       { return p.genesis }
func (p *params) PowLimit() *big.Int                    { return new(big.Int).Set(p.powLimit) }
func (p *params) PowLimitBits() uint32                  { return p.powLimitBits }
func (p *params) RetargetInterval() int32               { return p.retargetInterval }
func (p *params) TargetTimespan() time.Duration         { return p.targetTimespan }
func (p *params) TargetSpacing() time.Duration          { return p.targetSpacing }
func (p *params) ReduceMinDifficulty() bool             { return p.reduceMinDifficulty }
func (p *params) MinDiffReductionTime() time.Duration   { return p.minDiffReductionTime }

// MainNetParams returns the Bitcoin mainnet parameter set.
func MainNetParams() NetworkParameters {
	return &params{
		net:                  wire.MainNet,
		genesis:              mainNetGenesisHeader(),
		powLimit:             mainPowLimit,
		powLimitBits:         0x1d00ffff,
		retargetInterval:     2016,
		targetTimespan:       14 * 24 * time.Hour,
		targetSpacing:        10 * time.Minute,
		reduceMinDifficulty:  false,
		minDiffReductionTime: 20 * time.Minute,
	}
}

// TestNet3Params returns the Bitcoin testnet3 parameter set, which
// carries the "allow minimum difficulty" retarget exception of spec
// §4.7 step 3.
func TestNet3Params() NetworkParameters {
	// testnet3's genesis shares mainnet's coinbase and bits but was
	// mined at a different time and nonce.
	genesis := mainNetGenesisHeader()
	genesis.Time = 1296688602
	genesis.Nonce = 414098458
	return &params{
		net:                  wire.TestNet3,
		genesis:              genesis,
		powLimit:             mainPowLimit,
		powLimitBits:         0x1d00ffff,
		retargetInterval:     2016,
		targetTimespan:       14 * 24 * time.Hour,
		targetSpacing:        10 * time.Minute,
		reduceMinDifficulty:  true,
		minDiffReductionTime: 20 * time.Minute,
	}
}

// RegTestParams returns a parameter set suitable for local tests: a
// trivial proof-of-work limit and minimum-difficulty reduction enabled.
func RegTestParams() NetworkParameters {
	return &params{
		net:                  wire.RegTest,
		genesis:              regTestGenesisHeader(),
		powLimit:             regTestPowLimit,
		powLimitBits:         0x207fffff,
		retargetInterval:     2016,
		targetTimespan:       14 * 24 * time.Hour,
		targetSpacing:        10 * time.Minute,
		reduceMinDifficulty:  true,
		minDiffReductionTime: 20 * time.Minute,
	}
}
