package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

var errBadWitnessFlag = errors.New("wire: unsupported witness flag value")

func writeInt32LE(w io.Writer, v int32) error {
	return writeUint32LE(w, uint32(v))
}

func writeUint32LE(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt64LE(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}

func writeOutPoint(w io.Writer, op OutPoint) error {
	if _, err := w.Write(op.Hash[:]); err != nil {
		return err
	}
	return writeUint32LE(w, op.Index)
}
