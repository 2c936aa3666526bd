// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFile     = "headersyncd.log"
	defaultNetwork     = "mainnet"
	defaultDebugLevel  = "info"
	defaultStoreLimit  = 500000
)

// config holds headersyncd's command-line configuration: which network
// to validate against and the checkpoint and header inputs to bootstrap
// and drive it from. The chain is always held in an in-memory store;
// DataDir is parsed but not used. It is parsed with
// the same flags library (github.com/jessevdk/go-flags) the teacher
// depends on for its own node configuration.
type config struct {
	DataDir     string `long:"datadir" description:"Accepted but not used; headers are always kept in an in-memory store"`
	Network     string `long:"network" default:"mainnet" description:"Network to validate against: mainnet, testnet3, or regtest"`
	Checkpoints string `long:"checkpoints" description:"Path to a checkpoint file to bootstrap the chain store from"`
	Headers     string `long:"headers" description:"Path to a file of newline-delimited hex-encoded 80-byte headers to ingest"`
	LogFile     string `long:"logfile" default:"headersyncd.log" description:"File to write rotating logs to"`
	DebugLevel  string `long:"debuglevel" default:"info" description:"Logging level: trace, debug, info, warn, error, critical"`
	StoreLimit  uint   `long:"storelimit" default:"500000" description:"Maximum headers retained by the in-memory store"`
}

// loadConfig parses os.Args against config's flag tags, printing usage
// and exiting on error or -h/--help, mirroring the teacher's own
// flags.NewParser(&cfg, flags.Default) convention.
func loadConfig() (*config, error) {
	cfg := config{
		Network:    defaultNetwork,
		LogFile:    defaultLogFile,
		DebugLevel: defaultDebugLevel,
		StoreLimit: defaultStoreLimit,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	switch cfg.Network {
	case "mainnet", "testnet3", "regtest":
	default:
		return nil, fmt.Errorf("unknown network %q", cfg.Network)
	}

	return &cfg, nil
}
