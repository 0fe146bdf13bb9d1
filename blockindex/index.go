// Package blockindex reads Bitcoin Core's blocks/index and
// indexes/txindex LevelDB stores: the block-index maps block hashes to
// their height, on-disk location, and header, while the transaction
// index (when present) maps a txid to the block file position its
// transaction was serialized at.
package blockindex

import (
	"fmt"
	"sort"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Errors returned by Open and lookups.
var (
	ErrIndexUnreadable = fmt.Errorf("blockindex: index store could not be opened")
	ErrIndexIncomplete = fmt.Errorf("blockindex: index store contains no valid chain records")
	ErrNotFound         = fmt.Errorf("blockindex: record not found")
)

// Index is the in-memory projection of blocks/index: a dense
// best-chain array ordered by height, plus a hash lookup.
type Index struct {
	byHeight []*Record
	byHash   map[chainhash.Hash]int32
}

// Open scans path (a Bitcoin Core blocks/index directory) and builds
// an Index. The underlying LevelDB store is read once, fully, and then
// closed; Index holds no open file handles afterward.
func Open(path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnreadable, err)
	}
	defer db.Close()

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	var records []*Record
	for iter.Next() {
		key := iter.Key()
		if len(key) == 0 || key[0] != 'b' {
			continue
		}
		value := append([]byte(nil), iter.Value()...)
		rec, err := decodeRecord(key[1:], value)
		if err != nil {
			continue
		}
		if rec.onBestChain() {
			records = append(records, rec)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnreadable, err)
	}
	if len(records) == 0 {
		return nil, ErrIndexIncomplete
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Height < records[j].Height })

	byHeight := make([]*Record, 0, len(records))
	byHash := make(map[chainhash.Hash]int32, len(records))
	for _, r := range records {
		if int(r.Height) != len(byHeight) {
			// A gap in the height sequence means the stored chain is
			// not contiguous from genesis; only the contiguous prefix
			// is a reliable "best chain" for sequential iteration.
			break
		}
		byHeight = append(byHeight, r)
		byHash[r.Hash] = r.Height
	}
	if len(byHeight) == 0 {
		return nil, ErrIndexIncomplete
	}

	return &Index{byHeight: byHeight, byHash: byHash}, nil
}

// Count returns the number of blocks in the best chain.
func (idx *Index) Count() int32 { return int32(len(idx.byHeight)) }

// ByHeight returns the record at height h.
func (idx *Index) ByHeight(h int32) (*Record, error) {
	if h < 0 || int(h) >= len(idx.byHeight) {
		return nil, ErrNotFound
	}
	return idx.byHeight[h], nil
}

// ByHash returns the height of the block identified by hash.
func (idx *Index) ByHash(hash chainhash.Hash) (int32, error) {
	h, ok := idx.byHash[hash]
	if !ok {
		return 0, ErrNotFound
	}
	return h, nil
}

func (idx *Index) String() string {
	return fmt.Sprintf("blockindex.Index{count=%d}", len(idx.byHeight))
}
