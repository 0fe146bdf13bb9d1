package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadVarInt reads a variable-length integer using Bitcoin's wire
// "compact size" encoding and returns it as a uint64.
//
// Encoding: a single prefix byte selects the width of what follows.
//
//	[0x00, 0xfc]  the value itself, no further bytes
//	0xfd          followed by a uint16, little-endian
//	0xfe          followed by a uint32, little-endian
//	0xff          followed by a uint64, little-endian
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	switch prefix[0] {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf[:]), nil
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(buf[:])), nil
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf[:])), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteVarInt encodes v using the compact-size scheme described in
// ReadVarInt. It exists mainly so tests can round-trip fixtures.
func WriteVarInt(w io.Writer, v uint64) error {
	switch {
	case v < 0xfd:
		_, err := w.Write([]byte{byte(v)})
		return err
	case v <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(v))
		_, err := w.Write(buf)
		return err
	case v <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(v))
		_, err := w.Write(buf)
		return err
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], v)
		_, err := w.Write(buf)
		return err
	}
}

// ReadCoreVarInt reads the node's own varint encoding, used throughout
// the block-index, txindex, and undo-block records. It is a 7-bit,
// MSB-continuation scheme, but it is NOT LEB128: every byte that sets
// the continuation bit contributes one extra unit to the final value,
// so decoding must add 1 after shifting for each continued byte.
//
//	n := 0
//	loop:
//	  b := next byte
//	  n = (n << 7) | (b & 0x7f)
//	  if b & 0x80 != 0 { n++; continue }
//	  else break
func ReadCoreVarInt(r io.Reader) (uint64, error) {
	var n uint64
	var buf [1]byte
	for i := 0; ; i++ {
		if i > 9 {
			return 0, fmt.Errorf("wire: core varint too long")
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		b := buf[0]
		n = (n << 7) | uint64(b&0x7f)
		if b&0x80 != 0 {
			n++
			continue
		}
		return n, nil
	}
}

// ReadUint32LE reads a little-endian uint32.
func ReadUint32LE(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadInt32LE reads a little-endian int32.
func ReadInt32LE(r io.Reader) (int32, error) {
	v, err := ReadUint32LE(r)
	return int32(v), err
}

// ReadUint64LE reads a little-endian uint64.
func ReadUint64LE(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadInt64LE reads a little-endian int64.
func ReadInt64LE(r io.Reader) (int64, error) {
	v, err := ReadUint64LE(r)
	return int64(v), err
}

// ReadVarBytes reads a compact-size length prefix followed by that many
// raw bytes.
func ReadVarBytes(r io.Reader, maxLen uint64) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n > maxLen {
		return nil, fmt.Errorf("wire: varbytes length %d exceeds max %d", n, maxLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
