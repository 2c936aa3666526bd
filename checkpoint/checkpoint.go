// Copyright (c) 2025 headerchain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package checkpoint implements the textual checkpoint file format of
// spec §4.8 (C8): a signed list of historical stored blocks used to
// bootstrap a fresh block store without replaying the whole chain from
// genesis.
package checkpoint

import (
	"bufio"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spvkit/headerchain/blockchain"
	"github.com/spvkit/headerchain/chainhash"
	"github.com/spvkit/headerchain/chainparams"
)

// magicLine is the first line every checkpoint file carries.
const magicLine = "TXT CHECKPOINTS 1"

// maxSignatures is the largest nSigs value the format allows (spec
// §4.8: "0 ≤ nSigs ≤ 256").
const maxSignatures = 256

// clockDriftAllowance is subtracted from the bootstrap target time
// before searching for a checkpoint, per spec §4.8's bootstrap helper.
const clockDriftAllowance = 7 * 24 * time.Hour

// ErrorKind identifies the specific checkpoint-format violation a
// Error reports (spec §7, "Checkpoint" taxonomy).
type ErrorKind int

const (
	// ErrBadMagic indicates the file's first line is not the expected
	// "TXT CHECKPOINTS 1" magic.
	ErrBadMagic ErrorKind = iota

	// ErrBadCount indicates a declared nSigs/nCheckpoints count is out
	// of range or the file ends before that many lines are present.
	ErrBadCount

	// ErrBadRecordSize indicates a checkpoint line's base64-decoded
	// bytes do not match either compact StoredBlock record length.
	ErrBadRecordSize
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBadMagic:
		return "bad magic"
	case ErrBadCount:
		return "bad count"
	case ErrBadRecordSize:
		return "bad record size"
	default:
		return "unknown checkpoint error"
	}
}

// Error reports a malformed checkpoint file.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string { return "checkpoint: " + e.Kind.String() + ": " + e.Reason }

func newError(kind ErrorKind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

// Manager holds a parsed checkpoint file: the raw signatures (exposed
// for optional out-of-band verification, never checked by this
// package per spec §9's open question) and the decoded checkpoints in
// file order.
type Manager struct {
	signatures  [][]byte
	checkpoints []*blockchain.StoredBlock
	rawRecords  [][]byte
}

// Load parses a checkpoint file from r per the textual format spec
// §4.8 defines.
func Load(r io.Reader) (*Manager, error) {
	scanner := bufio.NewScanner(r)
	// Checkpoint lines carry base64-encoded 76- or 96-byte records, far
	// below the scanner's default 64KiB token limit; the 1MiB cap set
	// here is deliberately generous.
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	nextLine := func(what string) (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", newError(ErrBadCount, fmt.Sprintf("reading %s: %v", what, err))
			}
			return "", newError(ErrBadCount, fmt.Sprintf("unexpected end of file reading %s", what))
		}
		return scanner.Text(), nil
	}

	magic, err := nextLine("magic")
	if err != nil {
		return nil, err
	}
	if magic != magicLine {
		return nil, newError(ErrBadMagic, fmt.Sprintf("got %q", magic))
	}

	nSigs, err := nextCount(nextLine, "signature count", maxSignatures)
	if err != nil {
		return nil, err
	}

	signatures := make([][]byte, nSigs)
	for i := 0; i < nSigs; i++ {
		line, err := nextLine("signature")
		if err != nil {
			return nil, err
		}
		sig, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return nil, newError(ErrBadCount, fmt.Sprintf("signature %d: %v", i, err))
		}
		signatures[i] = sig
	}

	nCheckpoints, err := nextCount(nextLine, "checkpoint count", 0)
	if err != nil {
		return nil, err
	}
	if nCheckpoints <= 0 {
		return nil, newError(ErrBadCount, "nCheckpoints must be greater than zero")
	}

	checkpoints := make([]*blockchain.StoredBlock, nCheckpoints)
	rawRecords := make([][]byte, nCheckpoints)
	for i := 0; i < nCheckpoints; i++ {
		line, err := nextLine("checkpoint")
		if err != nil {
			return nil, err
		}
		raw, err := base64.StdEncoding.DecodeString(line)
		if err != nil {
			return nil, newError(ErrBadRecordSize, fmt.Sprintf("checkpoint %d: %v", i, err))
		}
		stored, err := blockchain.DecodeStoredBlock(raw)
		if err != nil {
			return nil, newError(ErrBadRecordSize, fmt.Sprintf("checkpoint %d: %v", i, err))
		}
		checkpoints[i] = stored
		rawRecords[i] = raw
	}

	return &Manager{signatures: signatures, checkpoints: checkpoints, rawRecords: rawRecords}, nil
}

// nextCount reads a line, parses it as a non-negative count, and
// rejects it if max is positive and the count exceeds max.
func nextCount(nextLine func(string) (string, error), what string, max int) (int, error) {
	line, err := nextLine(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 {
		return 0, newError(ErrBadCount, fmt.Sprintf("%s: %q is not a valid count", what, line))
	}
	if max > 0 && n > max {
		return 0, newError(ErrBadCount, fmt.Sprintf("%s: %d exceeds maximum %d", what, n, max))
	}
	return n, nil
}

// NumCheckpoints returns the number of checkpoints the file carried.
func (m *Manager) NumCheckpoints() int { return len(m.checkpoints) }

// Signatures returns the raw, base64-decoded signature bytes in file
// order. They are not verified by this package; an out-of-band
// verifier may check them against the data DataHash returns.
func (m *Manager) Signatures() [][]byte { return m.signatures }

// DataHash computes sha256(u32_be(nCheckpoints) || concat(raw
// checkpoint bytes)), the value the file's signatures cover (spec
// §4.8). This is a single SHA-256, unlike the header-chain's
// double-SHA-256 hash primitive.
func (m *Manager) DataHash() chainhash.Hash {
	var countPrefix [4]byte
	binary.BigEndian.PutUint32(countPrefix[:], uint32(len(m.checkpoints)))

	data := make([]byte, 0, 4+len(m.rawRecords)*blockchain.StoredBlockV1Len)
	data = append(data, countPrefix[:]...)
	for _, raw := range m.rawRecords {
		data = append(data, raw...)
	}
	return chainhash.HashH(data)
}

// CheckpointBefore returns the checkpoint with the greatest header
// time less than or equal to t, or a synthesized genesis StoredBlock
// if no checkpoint qualifies (spec §4.8).
func CheckpointBefore(m *Manager, params chainparams.NetworkParameters, t time.Time) (*blockchain.StoredBlock, error) {
	var best *blockchain.StoredBlock
	target := uint32(t.Unix())

	for _, ckpt := range m.checkpoints {
		if ckpt.Header.Time > target {
			continue
		}
		if best == nil || ckpt.Header.Time > best.Header.Time {
			best = ckpt
		}
	}

	if best != nil {
		return best, nil
	}

	return blockchain.GenesisStoredBlock(params.GenesisHeader())
}

// Bootstrap seeds a fresh block store from m: it looks up the
// checkpoint at or before t minus the clock-drift allowance, puts it
// into store, and sets it as the chain head (spec §4.8 "Bootstrap
// helper").
func Bootstrap(m *Manager, params chainparams.NetworkParameters, store blockchain.BlockStore, t time.Time) (*blockchain.StoredBlock, error) {
	stored, err := CheckpointBefore(m, params, t.Add(-clockDriftAllowance))
	if err != nil {
		return nil, err
	}
	if err := store.Put(stored); err != nil {
		return nil, err
	}
	if err := store.SetChainHead(stored); err != nil {
		return nil, err
	}
	log.Infof("Bootstrapped chain store from checkpoint at height %d (%s)", stored.Height, stored.Hash())
	return stored, nil
}
