package utxo

import (
	"encoding/binary"
	"fmt"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/cockroachdb/pebble"
)

// checkpointInterval is how often (in blocks) DiskOverlay durably
// records its last-applied height, trading a small amount of
// replay-on-crash work for far fewer fsyncs than checkpointing every
// block.
const checkpointInterval = 10000

// markerKey is a 1-byte key, distinct in length from every real
// 36-byte (txid‖vout) entry key, reserved for the last-applied-height
// checkpoint.
var markerKey = []byte{0xff}

// DiskOverlay is a pebble-backed Overlay for UTXO sets too large to
// hold in memory. Entries are rebuildable from block files, so writes
// use pebble.NoSync: a crash loses at most checkpointInterval blocks
// of progress, recovered by replaying from the last checkpoint.
type DiskOverlay struct {
	db      *pebble.DB
	batch   *pebble.Batch
	dirty   int
	lastCkp int32
}

// OpenDiskOverlay opens (creating if absent) a pebble store at dir and
// returns the overlay along with the last height it had checkpointed,
// or -1 if the store is new.
func OpenDiskOverlay(dir string) (*DiskOverlay, int32, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, 0, fmt.Errorf("utxo: opening pebble store at %s: %w", dir, err)
	}
	o := &DiskOverlay{db: db, batch: db.NewIndexedBatch(), lastCkp: -1}

	value, closer, err := db.Get(markerKey)
	switch err {
	case nil:
		o.lastCkp = int32(binary.BigEndian.Uint32(value))
		closer.Close()
	case pebble.ErrNotFound:
		// fresh store
	default:
		db.Close()
		return nil, 0, fmt.Errorf("utxo: reading checkpoint marker: %w", err)
	}
	return o, o.lastCkp, nil
}

func encodeKey(txid chainhash.Hash, vout uint32) []byte {
	key := make([]byte, chainhash.HashSize+4)
	copy(key, txid[:])
	binary.BigEndian.PutUint32(key[chainhash.HashSize:], vout)
	return key
}

func encodeEntry(e Entry) []byte {
	out := make([]byte, 8+len(e.Script))
	binary.BigEndian.PutUint64(out[:8], uint64(e.Value))
	copy(out[8:], e.Script)
	return out
}

func decodeEntry(raw []byte) (Entry, error) {
	if len(raw) < 8 {
		return Entry{}, fmt.Errorf("utxo: malformed entry, %d bytes", len(raw))
	}
	return Entry{
		Value:  int64(binary.BigEndian.Uint64(raw[:8])),
		Script: append([]byte(nil), raw[8:]...),
	}, nil
}

func (d *DiskOverlay) Insert(txid chainhash.Hash, outs []Entry) error {
	for i, e := range outs {
		if err := d.batch.Set(encodeKey(txid, uint32(i)), encodeEntry(e), nil); err != nil {
			return err
		}
	}
	return d.maybeApply()
}

func (d *DiskOverlay) Take(txid chainhash.Hash, vout uint32) (Entry, error) {
	key := encodeKey(txid, vout)

	// The batch is indexed, so Get reads through to the underlying DB
	// for keys the batch hasn't itself touched yet — this one read
	// covers both an output created earlier in this same block and
	// one already committed from a prior block.
	raw, closer, err := d.batch.Get(key)
	if err == pebble.ErrNotFound {
		return Entry{}, fmtMissing(txid, vout)
	}
	if err != nil {
		return Entry{}, err
	}
	e, derr := decodeEntry(raw)
	closer.Close()
	if derr != nil {
		return Entry{}, derr
	}
	if err := d.batch.Delete(key, nil); err != nil {
		return Entry{}, err
	}
	return e, d.maybeApply()
}

// maybeApply commits the accumulated batch once it grows past a small
// threshold, keeping individual commits cheap while still batching
// most of a block's writes together.
func (d *DiskOverlay) maybeApply() error {
	d.dirty++
	if d.dirty < 512 {
		return nil
	}
	return d.commitBatch()
}

func (d *DiskOverlay) commitBatch() error {
	if err := d.batch.Commit(pebble.NoSync); err != nil {
		return err
	}
	d.batch = d.db.NewIndexedBatch()
	d.dirty = 0
	return nil
}

// Checkpoint durably records height as the last fully-applied block,
// syncing to disk. Callers are expected to invoke this roughly every
// checkpointInterval blocks, not every block.
func (d *DiskOverlay) Checkpoint(height int32) error {
	if err := d.commitBatch(); err != nil {
		return err
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(height))
	if err := d.db.Set(markerKey, buf[:], pebble.Sync); err != nil {
		return err
	}
	d.lastCkp = height
	return nil
}

// CheckpointInterval reports how often, in blocks, the iterator should
// call Checkpoint.
func (d *DiskOverlay) CheckpointInterval() int32 { return checkpointInterval }

func (d *DiskOverlay) Flush() error {
	return d.commitBatch()
}

func (d *DiskOverlay) Close() error {
	if err := d.commitBatch(); err != nil {
		d.db.Close()
		return err
	}
	return d.db.Close()
}
