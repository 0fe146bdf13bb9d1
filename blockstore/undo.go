package blockstore

import (
	"bytes"
	"io"

	"github.com/chainlens/btcdb/wire"
)

// UndoTxOut is one spent output recorded in an undo block: enough to
// reconstruct the coin an input consumed without replaying the chain
// from genesis.
type UndoTxOut struct {
	Height   int32
	Coinbase bool
	Value    int64
	Script   []byte
}

// TxUndo is the list of outputs one non-coinbase transaction's inputs
// spent, in input order.
type TxUndo struct {
	PrevOuts []UndoTxOut
}

// UndoBlock is the decoded contents of one revNNNNN.dat record: the
// per-input spent-output data for every non-coinbase transaction in a
// block, in the same order those transactions appear in the block
// itself (the coinbase transaction has no entry, since it spends
// nothing).
type UndoBlock struct {
	Transactions []TxUndo
}

// ReadUndoBlock decodes the undo record stored at undoOffset (the
// block-index's UndoPos, using the same frame-start convention as
// ReadBlock/ReadTransaction) in revNNNNN.dat number fileNum.
func (s *Store) ReadUndoBlock(fileNum int32, undoOffset uint32, net wire.BitcoinNet) (*UndoBlock, error) {
	lf, err := s.revFile(fileNum)
	if err != nil {
		return nil, err
	}
	payload, err := readFrame(lf, undoOffset, net)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewReader(payload)
	txCount, err := wire.ReadVarInt(buf)
	if err != nil {
		return nil, err
	}

	undo := &UndoBlock{Transactions: make([]TxUndo, 0, txCount)}
	for i := uint64(0); i < txCount; i++ {
		prevCount, err := wire.ReadVarInt(buf)
		if err != nil {
			return nil, err
		}
		tx := TxUndo{PrevOuts: make([]UndoTxOut, 0, prevCount)}
		for j := uint64(0); j < prevCount; j++ {
			heightCoinbase, err := wire.ReadCoreVarInt(buf)
			if err != nil {
				return nil, err
			}
			compressedValue, err := wire.ReadCoreVarInt(buf)
			if err != nil {
				return nil, err
			}
			// nSize is itself core-varint encoded, not a single byte:
			// values 0-5 name one of the six special compressed forms,
			// values 6 and up are 6 plus the length of an uncompressed
			// (already-raw) script that follows.
			nSize, err := wire.ReadCoreVarInt(buf)
			if err != nil {
				return nil, err
			}

			var script []byte
			if nSize <= 0x05 {
				payloadBytes, perr := readCompressedScriptPayload(buf, byte(nSize))
				if perr != nil {
					return nil, perr
				}
				script, err = wire.DecompressScript(byte(nSize), payloadBytes)
			} else {
				script = make([]byte, nSize-6)
				_, err = io.ReadFull(buf, script)
			}
			if err != nil {
				return nil, err
			}

			tx.PrevOuts = append(tx.PrevOuts, UndoTxOut{
				Height:   int32(heightCoinbase >> 1),
				Coinbase: heightCoinbase&1 != 0,
				Value:    int64(wire.DecompressAmount(compressedValue)),
				Script:   script,
			})
		}
		undo.Transactions = append(undo.Transactions, tx)
	}

	return undo, nil
}

// readCompressedScriptPayload reads the fixed-size payload that
// follows a compressed-script class byte in {0x00..0x05}: 20 bytes for
// the hash-keyed classes (p2pkh/p2sh), 32 bytes (the key's x
// coordinate) for the four pubkey classes 0x02-0x05.
func readCompressedScriptPayload(r *bytes.Reader, class byte) ([]byte, error) {
	size := 20
	if class == 0x02 || class == 0x03 || class == 0x04 || class == 0x05 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
