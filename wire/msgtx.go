package wire

import (
	"bytes"
	"io"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
)

// witMarker and witFlag are the two bytes inserted after the version
// field when a transaction carries segwit data. A plain (non-segwit)
// transaction's first post-version byte is always a varint for the
// input count, which is never 0x00, so this byte pair is unambiguous.
const (
	witMarker = 0x00
	witFlag   = 0x01
)

// OutPoint identifies a single output of a prior transaction.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn is a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// IsCoinbase reports whether in spends the null outpoint, the marker
// used by the sole input of a block's first transaction.
func (in *TxIn) IsCoinbase() bool {
	return in.PreviousOutPoint.Index == 0xffffffff &&
		in.PreviousOutPoint.Hash == (chainhash.Hash{})
}

// TxOut is a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx represents a decoded Bitcoin transaction, with or without
// witness data.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	// HasWitness records whether the marker/flag pair was present on
	// the wire, since an all-empty-witness segwit tx is otherwise
	// indistinguishable from a legacy one once decoded.
	HasWitness bool
}

// Deserialize decodes a transaction from r, transparently handling the
// optional segwit marker/flag and per-input witness stacks.
func (tx *MsgTx) Deserialize(r io.Reader) error {
	version, err := ReadInt32LE(r)
	if err != nil {
		return err
	}
	tx.Version = version

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	hasWitness := false
	if count == witMarker {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witFlag {
			return errBadWitnessFlag
		}
		hasWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}
	tx.HasWitness = hasWitness

	tx.TxIn = make([]*TxIn, count)
	for i := range tx.TxIn {
		in := &TxIn{}
		if err := readOutPoint(r, &in.PreviousOutPoint); err != nil {
			return err
		}
		script, err := ReadVarBytes(r, MaxBlockSize)
		if err != nil {
			return err
		}
		in.SignatureScript = script
		seq, err := ReadUint32LE(r)
		if err != nil {
			return err
		}
		in.Sequence = seq
		tx.TxIn[i] = in
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	tx.TxOut = make([]*TxOut, outCount)
	for i := range tx.TxOut {
		value, err := ReadInt64LE(r)
		if err != nil {
			return err
		}
		script, err := ReadVarBytes(r, MaxBlockSize)
		if err != nil {
			return err
		}
		tx.TxOut[i] = &TxOut{Value: value, PkScript: script}
	}

	if hasWitness {
		for _, in := range tx.TxIn {
			stackLen, err := ReadVarInt(r)
			if err != nil {
				return err
			}
			witness := make([][]byte, stackLen)
			for j := range witness {
				item, err := ReadVarBytes(r, MaxBlockSize)
				if err != nil {
					return err
				}
				witness[j] = item
			}
			in.Witness = witness
		}
	}

	lockTime, err := ReadUint32LE(r)
	if err != nil {
		return err
	}
	tx.LockTime = lockTime
	return nil
}

func readOutPoint(r io.Reader, op *OutPoint) error {
	var hashBuf [chainhash.HashSize]byte
	if _, err := io.ReadFull(r, hashBuf[:]); err != nil {
		return err
	}
	op.Hash = chainhash.Hash(hashBuf)
	idx, err := ReadUint32LE(r)
	if err != nil {
		return err
	}
	op.Index = idx
	return nil
}

// serializeNoWitness writes the legacy (pre-BIP144) encoding used for
// both TxHash and the non-witness half of WitnessHash.
func (tx *MsgTx) serializeNoWitness(w io.Writer) error {
	if err := writeInt32LE(w, tx.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := writeOutPoint(w, in.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(in.SignatureScript))); err != nil {
			return err
		}
		if _, err := w.Write(in.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32LE(w, in.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := writeInt64LE(w, out.Value); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(out.PkScript))); err != nil {
			return err
		}
		if _, err := w.Write(out.PkScript); err != nil {
			return err
		}
	}
	return writeUint32LE(w, tx.LockTime)
}

// TxHash returns the transaction's txid: the double SHA-256 of its
// legacy (witness-stripped) serialization. This matches on-disk txids
// regardless of whether the source tx carried witness data.
func (tx *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = tx.serializeNoWitness(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// WitnessHash returns the transaction's wtxid. For the coinbase
// transaction of a block this is defined to be the all-zero hash
// rather than the actual hash of its (always all-empty) witness stack.
func (tx *MsgTx) WitnessHash() chainhash.Hash {
	if len(tx.TxIn) == 1 && tx.TxIn[0].IsCoinbase() {
		return chainhash.Hash{}
	}
	if !tx.HasWitness {
		return tx.TxHash()
	}
	var buf bytes.Buffer
	_ = tx.serializeWithWitness(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// Serialize writes tx's wire encoding to w, including the segwit
// marker/flag and witness stacks when HasWitness is set.
func (tx *MsgTx) Serialize(w io.Writer) error {
	if tx.HasWitness {
		return tx.serializeWithWitness(w)
	}
	return tx.serializeNoWitness(w)
}

func (tx *MsgTx) serializeWithWitness(w io.Writer) error {
	if err := writeInt32LE(w, tx.Version); err != nil {
		return err
	}
	if _, err := w.Write([]byte{witMarker, witFlag}); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := writeOutPoint(w, in.PreviousOutPoint); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(in.SignatureScript))); err != nil {
			return err
		}
		if _, err := w.Write(in.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32LE(w, in.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := writeInt64LE(w, out.Value); err != nil {
			return err
		}
		if err := WriteVarInt(w, uint64(len(out.PkScript))); err != nil {
			return err
		}
		if _, err := w.Write(out.PkScript); err != nil {
			return err
		}
	}
	for _, in := range tx.TxIn {
		if err := WriteVarInt(w, uint64(len(in.Witness))); err != nil {
			return err
		}
		for _, item := range in.Witness {
			if err := WriteVarInt(w, uint64(len(item))); err != nil {
				return err
			}
			if _, err := w.Write(item); err != nil {
				return err
			}
		}
	}
	return writeUint32LE(w, tx.LockTime)
}
