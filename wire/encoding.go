// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/spvkit/headerchain/chainhash"
)

func readUint8(r io.Reader) (uint8, error) {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, codecErr(ErrTruncated, "uint8")
	}
	return buf[0], nil
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, codecErr(ErrTruncated, "uint16")
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func writeUint16(w io.Writer, v uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	_, err := w.Write(buf)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, codecErr(ErrTruncated, "uint32")
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func writeUint32(w io.Writer, v uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	_, err := w.Write(buf)
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, codecErr(ErrTruncated, "uint64")
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func writeUint64(w io.Writer, v uint64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	_, err := w.Write(buf)
	return err
}

// ReadHash reads a fixed 32-byte, natural-order hash.
func ReadHash(r io.Reader) (chainhash.Hash, error) {
	var h chainhash.Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, codecErr(ErrTruncated, "hash256")
	}
	return h, nil
}

// WriteHash writes a fixed 32-byte, natural-order hash.
func WriteHash(w io.Writer, h chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

// ReadVarInt reads a variable-length integer encoded using Bitcoin's
// compact-size scheme (1/3/5/9 bytes keyed by the first byte) and
// returns it along with whether the encoding was canonical (the
// shortest form for its value). The reader is lenient: non-canonical
// encodings are accepted and reported via the second return value
// rather than rejected, per spec §4.1 ("the reader MAY be lenient").
func ReadVarInt(r io.Reader) (uint64, bool, error) {
	discriminator, err := readUint8(r)
	if err != nil {
		return 0, false, err
	}

	switch discriminator {
	case 0xff:
		v, err := readUint64(r)
		if err != nil {
			return 0, false, err
		}
		return v, v > 0xffffffff, nil

	case 0xfe:
		v32, err := readUint32(r)
		if err != nil {
			return 0, false, err
		}
		v := uint64(v32)
		return v, v > 0xffff, nil

	case 0xfd:
		v16, err := readUint16(r)
		if err != nil {
			return 0, false, err
		}
		v := uint64(v16)
		return v, v >= 0xfd, nil

	default:
		return uint64(discriminator), true, nil
	}
}

// ReadVarIntCanonical is ReadVarInt but rejects non-canonical encodings
// with ErrNonCanonicalVarInt, for callers (e.g. checksum-sensitive
// deserialization) that require the strict reading spec §4.1 allows as
// an option.
func ReadVarIntCanonical(r io.Reader) (uint64, error) {
	v, canonical, err := ReadVarInt(r)
	if err != nil {
		return 0, err
	}
	if !canonical {
		return 0, codecErr(ErrNonCanonicalVarInt, "")
	}
	return v, nil
}

// WriteVarInt writes val to w using the shortest possible compact-size
// encoding, as spec §4.1 mandates of every writer.
func WriteVarInt(w io.Writer, val uint64) error {
	switch {
	case val < 0xfd:
		return writeUint8(w, uint8(val))
	case val <= 0xffff:
		if err := writeUint8(w, 0xfd); err != nil {
			return err
		}
		return writeUint16(w, uint16(val))
	case val <= 0xffffffff:
		if err := writeUint8(w, 0xfe); err != nil {
			return err
		}
		return writeUint32(w, uint32(val))
	default:
		if err := writeUint8(w, 0xff); err != nil {
			return err
		}
		return writeUint64(w, val)
	}
}

// VarIntSerializeSize returns the number of bytes WriteVarInt would
// emit for val.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a VarInt-length-prefixed byte slice. maxAllowed
// bounds the length to guard against a malicious length prefix forcing
// an oversized allocation before any data has actually been read.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, _, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, codecErr(ErrMalformed, fieldName+" exceeds max allowed size")
	}

	buf := make([]byte, count)
	if count == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, codecErr(ErrTruncated, fieldName)
	}
	return buf, nil
}

// WriteVarBytes writes a VarInt length prefix followed by b.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// MaxVarBytesAllowed is the default ceiling passed to ReadVarBytes for
// script and witness items; generous relative to the 1,000,000-byte
// block size cap (spec §4.4) since a single field can never legitimately
// approach the full block size.
const MaxVarBytesAllowed = 1_000_000
