// Package utxo maintains the unspent-output set needed to resolve a
// transaction input to the output it spends, as the chain is replayed
// forward from genesis. It never reads blk/rev files itself; callers
// insert each block's outputs and take each block's spent outputs in
// strict height order.
package utxo

import (
	"errors"
	"fmt"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
)

// ErrMissingUTXO is returned by Take when the requested output is not
// present in the overlay: either it was never inserted, or it was
// already spent by an earlier Take.
var ErrMissingUTXO = errors.New("utxo: output not in overlay")

// OutPoint identifies one output of one transaction.
type OutPoint struct {
	Txid chainhash.Hash
	Vout uint32
}

// Entry is the data an overlay retains for one unspent output: just
// enough to classify its script and report its value, the two things
// a connected block actually needs.
type Entry struct {
	Script []byte
	Value  int64
}

// Overlay is the UTXO-set interface the connected-block iterator
// drives. Implementations assume a single writer: Insert and Take for
// a given block are called from the one goroutine replaying the chain
// forward, never concurrently with each other.
type Overlay interface {
	// Insert adds a transaction's outputs to the set, keyed by
	// (txid, index within outs).
	Insert(txid chainhash.Hash, outs []Entry) error

	// Take removes and returns the output at (txid, vout). It returns
	// ErrMissingUTXO if the output is absent or already spent.
	Take(txid chainhash.Hash, vout uint32) (Entry, error)

	// Flush commits any buffered state to the overlay's backing store
	// (DiskOverlay commits without an fsync). A no-op for overlays
	// with no write-behind buffering.
	Flush() error

	// Close releases any resources the overlay holds open.
	Close() error
}

func fmtMissing(txid chainhash.Hash, vout uint32) error {
	return fmt.Errorf("%w: %s:%d", ErrMissingUTXO, txid, vout)
}
