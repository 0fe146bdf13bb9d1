package blockindex

import (
	"bytes"
	"fmt"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/chainlens/btcdb/wire"
)

// Status bits packed into a block-index record's n_status field.
const (
	blockValidHeader       = 1
	blockValidTree         = 2
	blockValidTransactions = 3
	blockValidChain        = 4
	blockValidScripts      = 5
	blockValidMask         = blockValidHeader | blockValidTree | blockValidTransactions | blockValidChain | blockValidScripts
	blockHaveData          = 8
	blockHaveUndo          = 16
)

// Record is one decoded `b`-prefixed block-index entry. DataPos and
// UndoPos are the byte offsets, within blkNNNNN.dat/revNNNNN.dat number
// FileNum, of each frame's own 4-byte magic — the same convention
// blockstore.Store.ReadBlock/ReadTransaction and blockindex.TxRecord's
// BlockPos expect.
type Record struct {
	Hash       chainhash.Hash
	Version    int32
	Height     int32
	Status     uint32
	NumTx      uint32
	FileNum    int32
	DataPos    uint32
	UndoPos    uint32
	Header     wire.BlockHeader
}

// HasData reports whether the block's transactions are present in the
// block files (BLOCK_HAVE_DATA).
func (r *Record) HasData() bool { return r.Status&blockHaveData != 0 }

// HasUndo reports whether an undo record exists for this block
// (BLOCK_HAVE_UNDO).
func (r *Record) HasUndo() bool { return r.Status&blockHaveUndo != 0 }

// onBestChain reports whether the record passed full validation
// (validity level BLOCK_VALID_SCRIPTS or above) and has its block data
// on disk (BLOCK_HAVE_DATA).
func (r *Record) onBestChain() bool {
	return r.Status&blockValidMask >= blockValidScripts && r.Status&blockHaveData != 0
}

// decodeRecord parses one block-index value blob. hashKey is the raw
// 32-byte key suffix (the `b`-prefixed key with the 'b' stripped).
func decodeRecord(hashKey []byte, value []byte) (*Record, error) {
	if len(hashKey) != chainhash.HashSize {
		return nil, fmt.Errorf("blockindex: bad key length %d", len(hashKey))
	}
	r := &Record{}
	copy(r.Hash[:], hashKey)

	buf := bytes.NewReader(value)

	v, err := wire.ReadCoreVarInt(buf)
	if err != nil {
		return nil, err
	}
	r.Version = int32(v)

	v, err = wire.ReadCoreVarInt(buf)
	if err != nil {
		return nil, err
	}
	r.Height = int32(v)

	v, err = wire.ReadCoreVarInt(buf)
	if err != nil {
		return nil, err
	}
	r.Status = uint32(v)

	v, err = wire.ReadCoreVarInt(buf)
	if err != nil {
		return nil, err
	}
	r.NumTx = uint32(v)

	if r.Status&(blockHaveData|blockHaveUndo) != 0 {
		v, err = wire.ReadCoreVarInt(buf)
		if err != nil {
			return nil, err
		}
		r.FileNum = int32(v)
	} else {
		r.FileNum = -1
	}

	if r.Status&blockHaveData != 0 {
		v, err = wire.ReadCoreVarInt(buf)
		if err != nil {
			return nil, err
		}
		r.DataPos = uint32(v)
	} else {
		r.DataPos = 0xffffffff
	}

	if r.Status&blockHaveUndo != 0 {
		v, err = wire.ReadCoreVarInt(buf)
		if err != nil {
			return nil, err
		}
		r.UndoPos = uint32(v)
	} else {
		r.UndoPos = 0xffffffff
	}

	if err := r.Header.Deserialize(buf); err != nil {
		return nil, err
	}

	return r, nil
}
