// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/spvkit/headerchain/chainhash"
)

// witnessMarkerFlag is the {marker, flag} byte pair that precedes a
// segwit-encoded transaction's input count, per spec §4.3.
var witnessMarkerFlag = [2]byte{0x00, 0x01}

// maxTxInPerTx and maxTxOutPerTx bound the input/output counts a
// single transaction can claim, guarding against a malicious VarInt
// forcing an oversized slice allocation before any data is read.
const (
	maxTxInPerTx         = 1_000_000
	maxTxOutPerTx        = 1_000_000
	maxWitnessItemsPerIn = 1_000_000
)

// OutPoint identifies a single previous output being spent, per spec
// §3 (36 bytes: 32-byte hash + 4-byte index).
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// IsNull reports whether p is the distinguished coinbase outpoint:
// an all-zero hash and a maximal index (spec §4.3 "Coinbase detection").
func (p OutPoint) IsNull() bool {
	return p.Index == 0xffffffff && p.Hash == (chainhash.Hash{})
}

func readOutPoint(r io.Reader) (OutPoint, error) {
	var p OutPoint
	var err error
	if p.Hash, err = ReadHash(r); err != nil {
		return p, err
	}
	if p.Index, err = readUint32(r); err != nil {
		return p, err
	}
	return p, nil
}

func writeOutPoint(w io.Writer, p OutPoint) error {
	if err := WriteHash(w, p.Hash); err != nil {
		return err
	}
	return writeUint32(w, p.Index)
}

// TxWitness is the witness stack attached to a single input: zero or
// more byte-string pushes, per spec §3.
type TxWitness [][]byte

// TxIn is a single transaction input, per spec §3.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
	Witness          TxWitness
}

// TxOut is a single transaction output, per spec §3.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx is a Bitcoin transaction, shape-only per spec §3 — signature
// and script semantics are an external collaborator's concern.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	cachedTxID  *chainhash.Hash
	cachedWTxID *chainhash.Hash
}

// HasWitness reports whether any input carries witness data; per spec
// §4.3 this decides whether the writer emits the segwit wire form.
func (msg *MsgTx) HasWitness() bool {
	for _, in := range msg.TxIn {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// IsCoinBase reports whether msg is a coinbase transaction: a single
// input whose outpoint is the null outpoint, per spec §4.3.
func (msg *MsgTx) IsCoinBase() bool {
	return len(msg.TxIn) == 1 && msg.TxIn[0].PreviousOutPoint.IsNull()
}

func (msg *MsgTx) invalidateCache() {
	msg.cachedTxID = nil
	msg.cachedWTxID = nil
}

// TxHash returns the txid: sha256d of the serialization without the
// marker/flag/witness fields, per spec §3.
func (msg *MsgTx) TxHash() chainhash.Hash {
	if msg.cachedTxID != nil {
		return *msg.cachedTxID
	}
	buf := bytes.NewBuffer(make([]byte, 0, msg.serializeSizeNoWitness()))
	_ = msg.serialize(buf, false)
	hash := chainhash.DoubleHashH(buf.Bytes())
	msg.cachedTxID = &hash
	return hash
}

// WitnessHash returns the wtxid: sha256d of the full segwit
// serialization, per spec §3. For transactions without witness data
// this equals TxHash, matching the reference implementation.
func (msg *MsgTx) WitnessHash() chainhash.Hash {
	if msg.cachedWTxID != nil {
		return *msg.cachedWTxID
	}
	if !msg.HasWitness() {
		hash := msg.TxHash()
		msg.cachedWTxID = &hash
		return hash
	}
	buf := bytes.NewBuffer(make([]byte, 0, msg.SerializeSize()))
	_ = msg.serialize(buf, true)
	hash := chainhash.DoubleHashH(buf.Bytes())
	msg.cachedWTxID = &hash
	return hash
}

// Serialize writes the canonical wire encoding of msg to w, using the
// segwit form iff any input carries witness data (spec §4.3).
func (msg *MsgTx) Serialize(w io.Writer) error {
	return msg.serialize(w, msg.HasWitness())
}

// SerializeNoWitness writes the legacy (non-segwit) encoding of msg,
// the form used to compute TxHash.
func (msg *MsgTx) SerializeNoWitness(w io.Writer) error {
	return msg.serialize(w, false)
}

func (msg *MsgTx) serialize(w io.Writer, witness bool) error {
	if err := writeUint32(w, uint32(msg.Version)); err != nil {
		return err
	}

	if witness {
		if _, err := w.Write(witnessMarkerFlag[:]); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, in := range msg.TxIn {
		if err := writeOutPoint(w, in.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarBytes(w, in.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32(w, in.Sequence); err != nil {
			return err
		}
	}

	if err := WriteVarInt(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, out := range msg.TxOut {
		if err := writeUint64(w, uint64(out.Value)); err != nil {
			return err
		}
		if err := WriteVarBytes(w, out.PkScript); err != nil {
			return err
		}
	}

	if witness {
		for _, in := range msg.TxIn {
			if err := WriteVarInt(w, uint64(len(in.Witness))); err != nil {
				return err
			}
			for _, item := range in.Witness {
				if err := WriteVarBytes(w, item); err != nil {
					return err
				}
			}
		}
	}

	return writeUint32(w, msg.LockTime)
}

// serializeSizeNoWitness returns the exact legacy serialization size,
// used to presize the txid hashing buffer.
func (msg *MsgTx) serializeSizeNoWitness() int {
	n := 4 + VarIntSerializeSize(uint64(len(msg.TxIn))) +
		VarIntSerializeSize(uint64(len(msg.TxOut))) + 4
	for _, in := range msg.TxIn {
		n += 36 + VarIntSerializeSize(uint64(len(in.SignatureScript))) +
			len(in.SignatureScript) + 4
	}
	for _, out := range msg.TxOut {
		n += 8 + VarIntSerializeSize(uint64(len(out.PkScript))) + len(out.PkScript)
	}
	return n
}

// SerializeSize returns the exact size of the wire encoding Serialize
// would produce (segwit form when HasWitness).
func (msg *MsgTx) SerializeSize() int {
	n := msg.serializeSizeNoWitness()
	if msg.HasWitness() {
		n += 2 // marker + flag
		for _, in := range msg.TxIn {
			n += VarIntSerializeSize(uint64(len(in.Witness)))
			for _, item := range in.Witness {
				n += VarIntSerializeSize(uint64(len(item))) + len(item)
			}
		}
	}
	return n
}

// DeserializeMsgTx parses a transaction from its wire encoding,
// auto-detecting the segwit marker+flag exactly as spec §4.3 dictates:
// by peeking at the byte pair immediately following the version field.
func DeserializeMsgTx(r io.Reader) (*MsgTx, error) {
	msg := &MsgTx{}

	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	msg.Version = int32(version)

	count, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	segwit := false
	if count == 0 {
		// Candidate marker byte; the next byte must be the 0x01 flag
		// for this to be a genuine segwit encoding.
		flag, err := readUint8(r)
		if err != nil {
			return nil, err
		}
		if flag != 0x01 {
			return nil, codecErr(ErrMalformed, "unsupported segwit flag")
		}
		segwit = true
		count, _, err = ReadVarInt(r)
		if err != nil {
			return nil, err
		}
	}

	if count > maxTxInPerTx {
		return nil, codecErr(ErrMalformed, "too many transaction inputs")
	}
	msg.TxIn = make([]*TxIn, count)
	for i := range msg.TxIn {
		in := &TxIn{}
		if in.PreviousOutPoint, err = readOutPoint(r); err != nil {
			return nil, err
		}
		if in.SignatureScript, err = ReadVarBytes(r, MaxVarBytesAllowed, "signature script"); err != nil {
			return nil, err
		}
		if in.Sequence, err = readUint32(r); err != nil {
			return nil, err
		}
		msg.TxIn[i] = in
	}

	outCount, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if outCount > maxTxOutPerTx {
		return nil, codecErr(ErrMalformed, "too many transaction outputs")
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		out := &TxOut{}
		value, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		out.Value = int64(value)
		if out.PkScript, err = ReadVarBytes(r, MaxVarBytesAllowed, "pk script"); err != nil {
			return nil, err
		}
		msg.TxOut[i] = out
	}

	if segwit {
		for _, in := range msg.TxIn {
			witCount, _, err := ReadVarInt(r)
			if err != nil {
				return nil, err
			}
			if witCount > maxWitnessItemsPerIn {
				return nil, codecErr(ErrMalformed, "too many witness items")
			}
			witness := make(TxWitness, witCount)
			for i := range witness {
				item, err := ReadVarBytes(r, MaxVarBytesAllowed, "witness item")
				if err != nil {
					return nil, err
				}
				witness[i] = item
			}
			in.Witness = witness
		}
	}

	if msg.LockTime, err = readUint32(r); err != nil {
		return nil, err
	}

	return msg, nil
}

// MsgTxFromBytes is a convenience wrapper around DeserializeMsgTx.
func MsgTxFromBytes(b []byte) (*MsgTx, error) {
	return DeserializeMsgTx(bytes.NewReader(b))
}
