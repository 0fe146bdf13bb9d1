// Package btcdb opens a Bitcoin Core data directory as a read-only
// database: blocks and transactons can be queried by height, hash, or
// txid, and contiguous height ranges can be streamed either as raw
// decoded blocks or as connected blocks with every input resolved to
// the output it spends.
package btcdb

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/btcsuite/btclog"

	"github.com/chainlens/btcdb/blockindex"
	"github.com/chainlens/btcdb/blockstore"
	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/chainlens/btcdb/iter"
	"github.com/chainlens/btcdb/log"
	"github.com/chainlens/btcdb/txscript"
	"github.com/chainlens/btcdb/utxo"
	"github.com/chainlens/btcdb/wire"
)

// net is the only network this module understands: mainnet framing
// and mainnet address version bytes.
const net = wire.MainNet

// DB is an opened Bitcoin Core data directory. It owns the block-index
// and (optional) txindex maps and the file-handle cache; it does not
// own a UTXO overlay until the first IterConnected call builds one.
type DB struct {
	dataDir string
	cfg     config

	idx   *blockindex.Index
	store *blockstore.Store
	txidx *blockindex.TxIndex // nil when tx index is disabled/absent

	// posToHeight resolves a txindex hit's (file, block frame offset)
	// back to a height, since the txindex itself records only a file
	// position, not a height.
	posToHeight map[blockPos]int32

	log btclog.Logger

	// connecting guards against two overlapping IterConnected calls:
	// the overlay has a single writer by design (see iter.ConnectedBlockIter),
	// so a second concurrent caller is rejected outright rather than
	// silently corrupting the first caller's view of the UTXO set.
	connecting atomic.Bool
}

type blockPos struct {
	fileNum int32
	dataPos uint32
}

// Open validates dataDir as a Bitcoin Core data directory (blocks/ and
// blocks/index/ must exist) and builds the in-memory block-index map.
// indexes/txindex is opened only when WithTxIndex(true) is given; its
// absence is not fatal, it just makes Transaction/HeightOfTxid always
// fail with ErrTxIndexDisabled.
func Open(dataDir string, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.BdbLog
	}

	blocksDir := filepath.Join(dataDir, "blocks")
	indexDir := filepath.Join(blocksDir, "index")
	if _, err := os.Stat(blocksDir); err != nil {
		return nil, newErr("Open", ErrPathInvalid, err)
	}
	if _, err := os.Stat(indexDir); err != nil {
		return nil, newErr("Open", ErrPathInvalid, err)
	}

	idx, err := blockindex.Open(indexDir)
	if err != nil {
		return nil, newErr("Open", classifyIndexErr(err), err)
	}
	store, err := blockstore.Open(blocksDir)
	if err != nil {
		return nil, newErr("Open", ErrPathInvalid, err)
	}

	db := &DB{
		dataDir: dataDir,
		cfg:     cfg,
		idx:     idx,
		store:   store,
		log:     cfg.logger,
	}
	db.buildPosIndex()

	if cfg.txIndex {
		txIndexDir := filepath.Join(dataDir, "indexes", "txindex")
		if _, err := os.Stat(txIndexDir); err == nil {
			txidx, err := blockindex.OpenTxIndex(txIndexDir)
			if err != nil {
				store.Close()
				return nil, newErr("Open", ErrIndexUnreadable, err)
			}
			db.txidx = txidx
		}
	}

	db.log.Debugf("opened data directory %s: %d blocks indexed", dataDir, idx.Count())
	return db, nil
}

func classifyIndexErr(err error) ErrorKind {
	if err == blockindex.ErrIndexIncomplete {
		return ErrIndexIncomplete
	}
	return ErrIndexUnreadable
}

func (db *DB) buildPosIndex() {
	count := db.idx.Count()
	db.posToHeight = make(map[blockPos]int32, count)
	for h := int32(0); h < count; h++ {
		rec, err := db.idx.ByHeight(h)
		if err != nil {
			continue
		}
		db.posToHeight[blockPos{fileNum: rec.FileNum, dataPos: rec.DataPos}] = h
	}
}

// Close releases the block-file handle cache and the txindex, if open.
func (db *DB) Close() error {
	if db.txidx != nil {
		db.txidx.Close()
	}
	return db.store.Close()
}

// BlockCount returns the number of blocks in the best chain, i.e. one
// past the highest valid height.
func (db *DB) BlockCount() int32 {
	return db.idx.Count()
}

// Header returns the 80-byte block header at height.
func (db *DB) Header(height int32) (wire.BlockHeader, error) {
	rec, err := db.idx.ByHeight(height)
	if err != nil {
		return wire.BlockHeader{}, newErr("Header", ErrNotFound, err)
	}
	return rec.Header, nil
}

// HashOf returns the block hash at height.
func (db *DB) HashOf(height int32) (chainhash.Hash, error) {
	rec, err := db.idx.ByHeight(height)
	if err != nil {
		return chainhash.Hash{}, newErr("HashOf", ErrNotFound, err)
	}
	return rec.Hash, nil
}

// HeightOf returns the height of the block identified by hash.
func (db *DB) HeightOf(hash chainhash.Hash) (int32, error) {
	h, err := db.idx.ByHash(hash)
	if err != nil {
		return 0, newErr("HeightOf", ErrNotFound, err)
	}
	return h, nil
}

// Block returns the block at height, rendered under the requested
// projection: *Block (raw), *FBlock (full), or *SBlock (simple).
func (db *DB) Block(height int32, p Projection) (any, error) {
	rec, err := db.idx.ByHeight(height)
	if err != nil {
		return nil, newErr("Block", ErrNotFound, err)
	}
	mb, err := db.store.ReadBlock(rec.FileNum, rec.DataPos, net)
	if err != nil {
		return nil, newErr("Block", ErrDecode, err)
	}
	return project(height, mb, p), nil
}

// Transaction returns the decoded transaction identified by txid.
// Requires WithTxIndex(true) at Open and a present indexes/txindex
// directory; otherwise it returns ErrTxIndexDisabled.
func (db *DB) Transaction(txid chainhash.Hash) (*wire.MsgTx, error) {
	if db.txidx == nil {
		return nil, newErr("Transaction", ErrTxIndexDisabled, nil)
	}
	if blockindex.IsGenesisTxid(txid) {
		return db.genesisCoinbase()
	}
	rec, err := db.txidx.Lookup(txid)
	if err != nil {
		if err == blockindex.ErrNotFound {
			return nil, newErr("Transaction", ErrNotFound, err)
		}
		return nil, newErr("Transaction", ErrIndexUnreadable, err)
	}
	tx, err := db.store.ReadTransaction(rec.FileNum, rec.BlockPos, rec.TxOffset, net)
	if err != nil {
		return nil, newErr("Transaction", ErrDecode, err)
	}
	return tx, nil
}

func (db *DB) genesisCoinbase() (*wire.MsgTx, error) {
	mb, err := db.Block(0, RawProjection)
	if err != nil {
		return nil, err
	}
	return mb.(*Block).Transactions[0], nil
}

// HeightOfTxid derives the height of the block containing txid by
// looking up its txindex record's (file, block offset) in the
// block-index's own position map, rather than decoding the block.
// Requires WithTxIndex(true), as Transaction does.
func (db *DB) HeightOfTxid(txid chainhash.Hash) (int32, error) {
	if db.txidx == nil {
		return 0, newErr("HeightOfTxid", ErrTxIndexDisabled, nil)
	}
	if blockindex.IsGenesisTxid(txid) {
		return 0, nil
	}
	rec, err := db.txidx.Lookup(txid)
	if err != nil {
		if err == blockindex.ErrNotFound {
			return 0, newErr("HeightOfTxid", ErrNotFound, err)
		}
		return 0, newErr("HeightOfTxid", ErrIndexUnreadable, err)
	}
	h, ok := db.posToHeight[blockPos{fileNum: rec.FileNum, dataPos: rec.BlockPos}]
	if !ok {
		return 0, newErr("HeightOfTxid", ErrNotFound, nil)
	}
	return h, nil
}

// IterBlock returns an iterator over [lo, hi), decoding blocks on a
// worker pool but yielding them to the caller in strict ascending
// height order. Results are rendered under projection p.
func (db *DB) IterBlock(lo, hi int32, p Projection) *BlockIterator {
	bi := iter.NewBlockIter(db.idx, db.store, net, lo, hi, db.cfg.iterConfig())
	return &BlockIterator{inner: bi, proj: p}
}

// BlockIterator yields decoded blocks in ascending height order.
type BlockIterator struct {
	inner *iter.BlockIter
	proj  Projection
}

// IterResult is one yielded item: either a rendered block or the error
// encountered decoding that height.
type IterResult struct {
	Height int32
	Value  any
	Err    error
}

// Next blocks until the next height is ready, returning false once the
// range is exhausted or Close has been called.
func (it *BlockIterator) Next() (IterResult, bool) {
	res, ok := it.inner.Next()
	if !ok {
		return IterResult{}, false
	}
	if res.Err != nil {
		return IterResult{Height: res.Height, Err: newErr("IterBlock", ErrDecode, res.Err)}, true
	}
	return IterResult{Height: res.Height, Value: project(res.Height, res.Block, it.proj)}, true
}

// Close stops the iterator, releasing its worker goroutines. Safe to
// call multiple times and safe to call before the range is exhausted.
func (it *BlockIterator) Close() { it.inner.Close() }

// IterConnected returns an iterator over [0, hi) (or, for a resumed
// on-disk overlay, from one past its last checkpoint up to hi) with
// every non-coinbase input resolved to the output it spends. Only one
// connected iteration may be in flight on a DB at a time, since the
// UTXO overlay has a single writer; a second concurrent call returns
// ErrConcurrentOverlay.
func (db *DB) IterConnected(hi int32, strict bool) (*ConnectedIterator, error) {
	if !db.connecting.CompareAndSwap(false, true) {
		return nil, newErr("IterConnected", ErrConcurrentOverlay, nil)
	}

	overlay, lo, err := db.openOverlay()
	if err != nil {
		db.connecting.Store(false)
		return nil, newErr("IterConnected", ErrPathInvalid, err)
	}

	ci := iter.NewConnectedBlockIter(db.idx, db.store, net, overlay, lo, hi,
		iter.ConnectedConfig{Config: db.cfg.iterConfig(), StrictUTXO: strict})
	it := &ConnectedIterator{db: db, inner: ci, overlay: overlay}
	it.ckp, _ = overlay.(checkpointer)
	return it, nil
}

// openOverlay builds the overlay IterConnected replays blocks into,
// along with the height iteration should resume from: 0 for a fresh
// in-memory overlay, or one past a disk overlay's last checkpoint if
// it already reflects a prefix of the chain.
func (db *DB) openOverlay() (utxo.Overlay, int32, error) {
	if db.cfg.utxoMode == DiskUTXO {
		overlay, checkpoint, err := utxo.OpenDiskOverlay(db.cfg.utxoDir)
		if err != nil {
			return nil, 0, err
		}
		lo := int32(0)
		if checkpoint > 0 {
			lo = checkpoint + 1
		}
		return overlay, lo, nil
	}
	return utxo.NewMemOverlay(), 0, nil
}

// ConnectedIterator yields connected blocks in ascending height order,
// starting from genesis (or, for a resumed on-disk overlay, one past
// its last checkpoint).
type ConnectedIterator struct {
	db      *DB
	inner   *iter.ConnectedBlockIter
	overlay utxo.Overlay
	ckp     checkpointer // non-nil only for utxo.DiskOverlay
}

// checkpointer is implemented by utxo.DiskOverlay but not
// utxo.MemOverlay; ConnectedIterator type-asserts for it rather than
// widening utxo.Overlay, since checkpointing is a disk-mode-only
// concern the in-memory overlay has no use for.
type checkpointer interface {
	Checkpoint(height int32) error
	CheckpointInterval() int32
}

// ConnectedIterResult is one connected block or the error that
// resolving it produced.
type ConnectedIterResult struct {
	Height int32
	Block  *ConnectedBlock
	Err    error
}

// Next blocks until the next height's inputs are resolved, returning
// false once the range is exhausted or Close has been called.
func (it *ConnectedIterator) Next() (ConnectedIterResult, bool) {
	res, ok := it.inner.Next()
	if !ok {
		return ConnectedIterResult{}, false
	}
	if res.Err != nil {
		// A strict-mode missing UTXO surfaces as a decode error; the
		// utxo.ErrMissingUTXO cause stays reachable through errors.Is.
		return ConnectedIterResult{Height: res.Height, Err: newErr("IterConnected", ErrDecode, res.Err)}, true
	}
	if it.ckp != nil && res.Height > 0 && res.Height%it.ckp.CheckpointInterval() == 0 {
		if err := it.ckp.Checkpoint(res.Height); err != nil {
			it.db.log.Warnf("checkpointing UTXO overlay at height %d: %v", res.Height, err)
		}
	}
	return ConnectedIterResult{Height: res.Height, Block: toConnectedBlock(res.Block)}, true
}

// Close stops the iterator and releases the UTXO overlay it opened,
// allowing a subsequent IterConnected call to proceed. Flush is called
// on the overlay first so a disk overlay's buffered batch is not lost.
func (it *ConnectedIterator) Close() {
	it.inner.Close()
	if err := it.overlay.Flush(); err != nil {
		it.db.log.Warnf("flushing UTXO overlay: %v", err)
	}
	it.overlay.Close()
	it.db.connecting.Store(false)
}

// ParseScript classifies a raw scriptPubKey, returning its class and
// zero or more derived mainnet addresses.
func (db *DB) ParseScript(script []byte) (txscript.ScriptClass, []string) {
	return txscript.ExtractAddresses(script)
}

// UseLogger routes every package's subsystem loggers (BDB, BIDX, BSTR,
// ITER, UTXO) through backend, tagged with their own subsystem
// identifier. Call this before Open so the loggers it reads default
// values from are already set. DBs opened with WithLogger override
// this on a per-DB basis.
func UseLogger(backend *btclog.Backend) {
	log.UseLogger(backend)
}

// DisableLog turns off logging for every subsystem, the default.
func DisableLog() {
	log.DisableLog()
}
