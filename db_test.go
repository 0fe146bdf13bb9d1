package btcdb

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/chainlens/btcdb/wire"
	"github.com/syndtr/goleveldb/leveldb"
)

const bestChainStatus = 15 // blockValidMask | blockHaveData, mirrored from blockindex

func writeCoreVarIntForTest(buf *bytes.Buffer, n uint64) {
	var tmp [10]byte
	length := 0
	for {
		b := byte(n & 0x7f)
		if length != 0 {
			b |= 0x80
		}
		tmp[length] = b
		length++
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
	}
	for i := length - 1; i >= 0; i-- {
		buf.WriteByte(tmp[i])
	}
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func writeFrame(t *testing.T, f *os.File, payload []byte) int64 {
	t.Helper()
	pos, err := f.Seek(0, 2)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	var head [8]byte
	putUint32LE(head[0:4], uint32(wire.MainNet))
	putUint32LE(head[4:8], uint32(len(payload)))
	if _, err := f.Write(head[:]); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := f.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	return pos
}

func oneTxBlock(nonce uint32, value int64, pkScript []byte) *wire.MsgBlock {
	tx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  []byte{0x01},
			Sequence:         0xffffffff,
		}},
		TxOut:    []*wire.TxOut{{Value: value, PkScript: pkScript}},
		LockTime: 0,
	}
	return &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1231006505, 0),
			Bits:      0x1d00ffff,
			Nonce:     nonce,
		},
		Transactions: []*wire.MsgTx{tx},
	}
}

// fixture writes blocks into a single blk00000.dat plus a matching
// blocks/index leveldb store under a fresh data directory, and returns
// its path. Output scripts are whatever the caller's blocks carry; the
// tests here pass p2pkhScript so ExtractAddresses yields an address.
func fixture(t *testing.T, blocks []*wire.MsgBlock, withTxIndex bool) string {
	t.Helper()
	dataDir := t.TempDir()
	blocksDir := filepath.Join(dataDir, "blocks")
	indexDir := filepath.Join(blocksDir, "index")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	f, err := os.Create(filepath.Join(blocksDir, "blk00000.dat"))
	if err != nil {
		t.Fatalf("create blk file: %v", err)
	}
	db, err := leveldb.OpenFile(indexDir, nil)
	if err != nil {
		t.Fatalf("leveldb.OpenFile: %v", err)
	}

	var txIdxDB *leveldb.DB
	if withTxIndex {
		txIndexDir := filepath.Join(dataDir, "indexes", "txindex")
		if err := os.MkdirAll(txIndexDir, 0o755); err != nil {
			t.Fatalf("mkdir txindex: %v", err)
		}
		txIdxDB, err = leveldb.OpenFile(txIndexDir, nil)
		if err != nil {
			t.Fatalf("leveldb.OpenFile txindex: %v", err)
		}
	}

	for h, block := range blocks {
		var payload bytes.Buffer
		if err := block.Serialize(&payload); err != nil {
			t.Fatalf("serialize block %d: %v", h, err)
		}
		pos := writeFrame(t, f, payload.Bytes())

		hash := block.BlockHash()
		var value bytes.Buffer
		writeCoreVarIntForTest(&value, 1)
		writeCoreVarIntForTest(&value, uint64(h))
		writeCoreVarIntForTest(&value, bestChainStatus)
		writeCoreVarIntForTest(&value, 1)
		writeCoreVarIntForTest(&value, 0)
		writeCoreVarIntForTest(&value, uint64(pos))
		if err := block.Header.Serialize(&value); err != nil {
			t.Fatalf("serialize header %d: %v", h, err)
		}
		key := append([]byte{'b'}, hash[:]...)
		if err := db.Put(key, value.Bytes(), nil); err != nil {
			t.Fatalf("Put: %v", err)
		}

		if txIdxDB != nil {
			txid := block.Transactions[0].TxHash()
			var tv bytes.Buffer
			writeCoreVarIntForTest(&tv, 0) // file_num
			writeCoreVarIntForTest(&tv, uint64(pos))
			writeCoreVarIntForTest(&tv, uint64(wire.BlockHeaderLen+1)) // tx_offset, matches blockstore's test convention
			tkey := append([]byte{'t'}, txid[:]...)
			if err := txIdxDB.Put(tkey, tv.Bytes(), nil); err != nil {
				t.Fatalf("Put txindex: %v", err)
			}
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close index leveldb: %v", err)
	}
	if txIdxDB != nil {
		if err := txIdxDB.Close(); err != nil {
			t.Fatalf("close txindex leveldb: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close blk file: %v", err)
	}
	return dataDir
}

// p2pkhScript builds a minimal OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY
// OP_CHECKSIG script so ExtractAddresses can derive an address from it.
func p2pkhScript(seed byte) []byte {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = seed
	}
	script := []byte{0x76, 0xa9, 0x14}
	script = append(script, hash...)
	script = append(script, 0x88, 0xac)
	return script
}

func TestOpenAndBasicQueries(t *testing.T) {
	blocks := []*wire.MsgBlock{
		oneTxBlock(0, 5000000000, p2pkhScript(1)),
		oneTxBlock(1, 4900000000, p2pkhScript(2)),
	}
	dataDir := fixture(t, blocks, true)

	db, err := Open(dataDir, WithTxIndex(true))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if got := db.BlockCount(); got != 2 {
		t.Fatalf("BlockCount() = %d, want 2", got)
	}

	hash, err := db.HashOf(1)
	if err != nil {
		t.Fatalf("HashOf(1): %v", err)
	}
	h, err := db.HeightOf(hash)
	if err != nil {
		t.Fatalf("HeightOf: %v", err)
	}
	if h != 1 {
		t.Fatalf("HeightOf roundtrip = %d, want 1", h)
	}

	v, err := db.Block(1, RawProjection)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	raw := v.(*Block)
	if raw.Transactions[0].TxOut[0].Value != 4900000000 {
		t.Fatalf("raw block value mismatch: %d", raw.Transactions[0].TxOut[0].Value)
	}

	fv, err := db.Block(1, FullProjection)
	if err != nil {
		t.Fatalf("Block full: %v", err)
	}
	full := fv.(*FBlock)
	if len(full.Transactions[0].TxOut[0].Addresses) != 1 {
		t.Fatalf("full projection addresses = %v, want 1 address", full.Transactions[0].TxOut[0].Addresses)
	}

	sv, err := db.Block(1, SimpleProjection)
	if err != nil {
		t.Fatalf("Block simple: %v", err)
	}
	simple := sv.(*SBlock)
	if simple.Transactions[0].TxOut[0].Value != 4900000000 {
		t.Fatalf("simple projection value mismatch")
	}

	txid := blocks[1].Transactions[0].TxHash()
	tx, err := db.Transaction(txid)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if tx.TxOut[0].Value != 4900000000 {
		t.Fatalf("Transaction value mismatch: %d", tx.TxOut[0].Value)
	}

	height, err := db.HeightOfTxid(txid)
	if err != nil {
		t.Fatalf("HeightOfTxid: %v", err)
	}
	if height != 1 {
		t.Fatalf("HeightOfTxid = %d, want 1", height)
	}
}

func TestOpenMissingBlocksDir(t *testing.T) {
	dataDir := t.TempDir()
	if _, err := Open(dataDir); err == nil {
		t.Fatal("expected error opening a directory with no blocks/ subdir")
	} else if e, ok := err.(*Error); !ok || e.Kind != ErrPathInvalid {
		t.Fatalf("err = %v, want *Error{Kind: ErrPathInvalid}", err)
	}
}

func TestTransactionRequiresTxIndex(t *testing.T) {
	blocks := []*wire.MsgBlock{oneTxBlock(0, 100, p2pkhScript(1))}
	dataDir := fixture(t, blocks, false)

	db, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	_, err = db.Transaction(chainhash.Hash{0x01})
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrTxIndexDisabled {
		t.Fatalf("err = %v, want *Error{Kind: ErrTxIndexDisabled}", err)
	}
}

func TestIterBlockStrictOrder(t *testing.T) {
	blocks := []*wire.MsgBlock{
		oneTxBlock(0, 100, p2pkhScript(1)),
		oneTxBlock(1, 200, p2pkhScript(2)),
		oneTxBlock(2, 300, p2pkhScript(3)),
	}
	dataDir := fixture(t, blocks, false)

	db, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	it := db.IterBlock(0, 3, RawProjection)
	defer it.Close()

	for want := int32(0); want < 3; want++ {
		res, ok := it.Next()
		if !ok {
			t.Fatalf("Next() exhausted early at height %d", want)
		}
		if res.Height != want || res.Err != nil {
			t.Fatalf("Next() height=%d err=%v, want height=%d err=nil", res.Height, res.Err, want)
		}
		got := res.Value.(*Block).Transactions[0].TxOut[0].Value
		if got != int64(100*(want+1)) {
			t.Fatalf("height %d value = %d, want %d", want, got, 100*(want+1))
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatal("Next() after range exhausted should return false")
	}
}

func TestIterConnectedRejectsConcurrentCall(t *testing.T) {
	first := oneTxBlock(0, 5000000000, p2pkhScript(1))
	coinbaseTxid := first.Transactions[0].TxHash()
	spend := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Hash: coinbaseTxid, Index: 0},
			SignatureScript:  []byte{0x02},
			Sequence:         0xffffffff,
		}},
		TxOut:    []*wire.TxOut{{Value: 4999990000, PkScript: p2pkhScript(2)}},
		LockTime: 0,
	}
	second := &wire.MsgBlock{
		Header: wire.BlockHeader{Version: 1, Timestamp: time.Unix(1231006505, 0), Bits: 0x1d00ffff, Nonce: 1},
		Transactions: []*wire.MsgTx{spend},
	}
	dataDir := fixture(t, []*wire.MsgBlock{first, second}, false)

	db, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ci, err := db.IterConnected(2, true)
	if err != nil {
		t.Fatalf("IterConnected: %v", err)
	}
	defer ci.Close()

	if _, err := db.IterConnected(2, true); err == nil {
		t.Fatal("expected ErrConcurrentOverlay on second concurrent IterConnected")
	} else if e, ok := err.(*Error); !ok || e.Kind != ErrConcurrentOverlay {
		t.Fatalf("err = %v, want *Error{Kind: ErrConcurrentOverlay}", err)
	}

	res, ok := ci.Next()
	if !ok || res.Err != nil {
		t.Fatalf("Next() height 0: ok=%v err=%v", ok, res.Err)
	}
	if !res.Block.Transactions[0].TxIn[0].Coinbase {
		t.Fatal("height 0 input not marked coinbase")
	}

	res, ok = ci.Next()
	if !ok || res.Err != nil {
		t.Fatalf("Next() height 1: ok=%v err=%v", ok, res.Err)
	}
	in := res.Block.Transactions[0].TxIn[0]
	if !in.Resolved || in.Value != 5000000000 {
		t.Fatalf("height 1 input not resolved correctly: %+v", in)
	}
	if len(in.Addresses) != 1 {
		t.Fatalf("resolved input addresses = %v, want 1", in.Addresses)
	}
}

func TestParseScript(t *testing.T) {
	db := &DB{}
	class, addrs := db.ParseScript(p2pkhScript(7))
	if class.String() != "pubkeyhash" {
		t.Fatalf("class = %v, want pubkeyhash", class)
	}
	if len(addrs) != 1 {
		t.Fatalf("addrs = %v, want 1 address", addrs)
	}
}
