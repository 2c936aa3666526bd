// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/checkpoint"
	"github.com/spvkit/headerchain/store"
)

// logMaxSizeKB and logMaxRolls bound the rotating log file the same
// way the teacher's go.mod pulls in jrick/logrotate to do, but never
// itself exercises with a real file.
const (
	logMaxSizeKB = 10 * 1024
	logMaxRolls  = 3
)

var logRotator *rotator.Rotator

// logWriter fans log output to both stdout and the rotating log file.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

var (
	backendLog *btclog.Backend
	log        = btclog.Disabled

	subsystemLoggers = make(map[string]btclog.Logger)
)

// initLogRotator opens logFile for rotating writes and wires every
// package's logger through the shared backend.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	r, err := rotator.New(logFile, logMaxSizeKB, false, logMaxRolls)
	if err != nil {
		return fmt.Errorf("failed to create log rotator: %w", err)
	}
	logRotator = r

	backendLog = btclog.NewBackend(logWriter{})

	log = backendLog.Logger("SYNC")
	chainLogger := backendLog.Logger("CHAN")
	storeLogger := backendLog.Logger("STOR")
	ckptLogger := backendLog.Logger("CKPT")

	blockchain.UseLogger(chainLogger)
	store.UseLogger(storeLogger)
	checkpoint.UseLogger(ckptLogger)

	subsystemLoggers["SYNC"] = log
	subsystemLoggers["CHAN"] = chainLogger
	subsystemLoggers["STOR"] = storeLogger
	subsystemLoggers["CKPT"] = ckptLogger

	return nil
}

// setLogLevels applies a single debug-level string to every subsystem
// logger, accepting any level btclog itself recognizes.
func setLogLevels(levelStr string) error {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		return fmt.Errorf("unknown debug level %q", levelStr)
	}
	for _, l := range subsystemLoggers {
		l.SetLevel(level)
	}
	return nil
}

// closeLogRotator releases the rotator's file handle.
func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
	}
}
