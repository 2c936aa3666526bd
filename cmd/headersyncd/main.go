// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command headersyncd is a demonstration daemon built on this module's
// library packages: it loads an optional checkpoint file to bootstrap
// a fresh chain store, then ingests a file of headers through the
// chain engine, logging new best blocks and reorganizations as they
// occur.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainparams"
	"github.com/spvkit/headerchain/checkpoint"
	"github.com/spvkit/headerchain/store"
	"github.com/spvkit/headerchain/wire"
)

// reportingListener logs the chain engine's notifications through the
// SYNC subsystem logger.
type reportingListener struct{}

func (reportingListener) OnNewBestBlock(stored *blockchain.StoredBlock) {
	log.Infof("new best block height=%d hash=%s", stored.Height, stored.Hash())
}

func (reportingListener) OnReorganize(oldHead, newHead *blockchain.StoredBlock, disconnected, connected []*blockchain.StoredBlock) {
	log.Warnf("reorganize: old=%s (height %d) new=%s (height %d), disconnecting %d, connecting %d",
		oldHead.Hash(), oldHead.Height, newHead.Hash(), newHead.Height, len(disconnected), len(connected))
}

func networkParams(network string) chainparams.NetworkParameters {
	switch network {
	case "testnet3":
		return chainparams.TestNet3Params()
	case "regtest":
		return chainparams.RegTestParams()
	default:
		return chainparams.MainNetParams()
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(cfg.LogFile); err != nil {
		return err
	}
	defer closeLogRotator()

	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	params := networkParams(cfg.Network)
	blockStore := store.NewMemoryStore(cfg.StoreLimit)

	engine, err := blockchain.NewChainEngine(params, blockStore, []blockchain.Listener{reportingListener{}})
	if err != nil {
		return fmt.Errorf("failed to start chain engine: %w", err)
	}

	if cfg.Checkpoints != "" {
		if err := bootstrapFromCheckpoints(cfg.Checkpoints, params, blockStore); err != nil {
			return err
		}
	}

	if cfg.Headers != "" {
		ingested, rejected, err := ingestHeaderFile(cfg.Headers, engine)
		if err != nil {
			return err
		}
		log.Infof("ingested %d headers (%d rejected)", ingested, rejected)
	}

	head, err := engine.ChainHead()
	if err != nil {
		return fmt.Errorf("failed to read chain head: %w", err)
	}
	log.Infof("chain head at height %d (%s)", head.Height, head.Hash())

	return nil
}

// bootstrapFromCheckpoints loads path and seeds store with the
// checkpoint at or before now minus checkpoint.Bootstrap's seven-day
// clock-drift allowance, per spec §4.8's bootstrap helper.
func bootstrapFromCheckpoints(path string, params chainparams.NetworkParameters, blockStore blockchain.BlockStore) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer f.Close()

	manager, err := checkpoint.Load(f)
	if err != nil {
		return fmt.Errorf("failed to parse checkpoint file: %w", err)
	}

	stored, err := checkpoint.Bootstrap(manager, params, blockStore, time.Now())
	if err != nil {
		return fmt.Errorf("failed to bootstrap from checkpoint: %w", err)
	}
	log.Infof("bootstrapped from %d checkpoints, chain head now at height %d",
		manager.NumCheckpoints(), stored.Height)
	return nil
}

// ingestHeaderFile feeds engine one header per non-blank line of path,
// each line a hex-encoded 80-byte Bitcoin block header.
func ingestHeaderFile(path string, engine *blockchain.ChainEngine) (ingested, rejected int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open headers file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		raw, err := hex.DecodeString(line)
		if err != nil {
			log.Warnf("skipping malformed header line: %v", err)
			rejected++
			continue
		}
		header, err := wire.BlockHeaderFromBytes(raw)
		if err != nil {
			log.Warnf("skipping malformed header line: %v", err)
			rejected++
			continue
		}

		if _, err := engine.AcceptHeader(*header); err != nil {
			log.Debugf("header %s rejected: %v", header.BlockHash(), err)
			rejected++
			continue
		}
		ingested++
	}
	if err := scanner.Err(); err != nil {
		return ingested, rejected, fmt.Errorf("error scanning headers file: %w", err)
	}

	return ingested, rejected, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
