package blockindex

import (
	"bytes"
	"fmt"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/chainlens/btcdb/wire"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// genesisTxid is the coinbase txid of the genesis block. Bitcoin
// Core's txindex never contains an entry for it (a long-standing
// quirk), so lookups for it are special-cased rather than failing.
var genesisTxid = mustHash("4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b")

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// TxRecord is one decoded `t`-prefixed txindex entry: the on-disk
// location of the transaction's bytes within a block file.
type TxRecord struct {
	Txid     chainhash.Hash
	FileNum  int32
	BlockPos uint32
	TxOffset uint32
}

// AbsoluteOffset returns the byte offset of the transaction's own
// serialization within its blkNNNNN.dat file: BlockPos (the position of
// the block's frame magic) plus the 8-byte magic+size prefix plus
// TxOffset. Equivalent to what blockstore.Store.ReadTransaction computes
// internally given the same (BlockPos, TxOffset) pair.
func (t TxRecord) AbsoluteOffset() uint32 {
	return t.BlockPos + t.TxOffset + 8
}

// TxIndex looks up transactions by txid via Bitcoin Core's
// indexes/txindex LevelDB store.
type TxIndex struct {
	db *leveldb.DB
}

// OpenTxIndex opens path (an indexes/txindex directory).
func OpenTxIndex(path string) (*TxIndex, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnreadable, err)
	}
	return &TxIndex{db: db}, nil
}

// Close releases the underlying LevelDB handle.
func (idx *TxIndex) Close() error {
	return idx.db.Close()
}

// IsGenesisTxid reports whether txid is the genesis block's coinbase
// transaction, the one txid this store never indexes.
func IsGenesisTxid(txid chainhash.Hash) bool {
	return txid == genesisTxid
}

// Lookup returns the on-disk location of txid's transaction.
func (idx *TxIndex) Lookup(txid chainhash.Hash) (TxRecord, error) {
	if IsGenesisTxid(txid) {
		return TxRecord{}, fmt.Errorf("blockindex: %w: genesis coinbase is never indexed, read height 0 block 0 directly", ErrNotFound)
	}
	key := make([]byte, 1+chainhash.HashSize)
	key[0] = 't'
	copy(key[1:], txid[:])

	value, err := idx.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return TxRecord{}, ErrNotFound
		}
		return TxRecord{}, fmt.Errorf("blockindex: %w: %v", ErrIndexUnreadable, err)
	}

	buf := bytes.NewReader(value)
	rec := TxRecord{Txid: txid}

	v, err := wire.ReadCoreVarInt(buf)
	if err != nil {
		return TxRecord{}, err
	}
	rec.FileNum = int32(v)

	v, err = wire.ReadCoreVarInt(buf)
	if err != nil {
		return TxRecord{}, err
	}
	rec.BlockPos = uint32(v)

	v, err = wire.ReadCoreVarInt(buf)
	if err != nil {
		return TxRecord{}, err
	}
	rec.TxOffset = uint32(v)

	return rec, nil
}
