package iter

import (
	"errors"
	"fmt"

	"github.com/chainlens/btcdb/blockindex"
	"github.com/chainlens/btcdb/blockstore"
	"github.com/chainlens/btcdb/utxo"
	"github.com/chainlens/btcdb/wire"
)

// ErrMissingUTXO wraps utxo.ErrMissingUTXO when surfaced as a decode
// error from a strict-mode ConnectedBlockIter.
var ErrMissingUTXO = utxo.ErrMissingUTXO

// ConnectedTxIn pairs one transaction input with the output it spends,
// resolved against the running UTXO overlay. Resolved is nil for a
// coinbase input, and also nil (in non-strict mode) for an input whose
// spent output could not be found.
type ConnectedTxIn struct {
	Coinbase bool
	Resolved *utxo.Entry
}

// ConnectedTx is one transaction with its inputs resolved to the
// outputs they spend.
type ConnectedTx struct {
	Tx     *wire.MsgTx
	Inputs []ConnectedTxIn
}

// ConnectedBlock is a decoded block whose every non-coinbase input has
// been resolved against the chain's UTXO set as of its own height.
type ConnectedBlock struct {
	Height int32
	Header wire.BlockHeader
	Txs    []ConnectedTx
}

// ConnectedResult is what ConnectedBlockIter yields for one height.
type ConnectedResult struct {
	Height int32
	Block  *ConnectedBlock
	Err    error
}

// ConnectedBlockIter wraps a BlockIter, resolving each block's inputs
// against a utxo.Overlay on the calling goroutine. It is the single
// writer into the overlay for the lifetime of the iteration: within a
// block, every transaction's outputs are inserted into the overlay
// before any later transaction's inputs in that same block are
// resolved, matching causal order.
type ConnectedBlockIter struct {
	inner   *BlockIter
	overlay utxo.Overlay
	strict  bool
}

// ConnectedConfig extends Config with the connected-iterator-specific
// strict-UTXO toggle.
type ConnectedConfig struct {
	Config
	StrictUTXO bool
}

// NewConnectedBlockIter begins a connected iteration over [lo, hi),
// resolving inputs against overlay as blocks are emitted. overlay is
// expected to already reflect the UTXO set as of height lo; the
// iterator inserts and takes against it as each block is yielded.
func NewConnectedBlockIter(idx *blockindex.Index, store *blockstore.Store, net wire.BitcoinNet, overlay utxo.Overlay, lo, hi int32, cfg ConnectedConfig) *ConnectedBlockIter {
	return &ConnectedBlockIter{
		inner:   NewBlockIter(idx, store, net, lo, hi, cfg.Config),
		overlay: overlay,
		strict:  cfg.StrictUTXO,
	}
}

// Next resolves and returns the next block in height order, or false
// once the range is exhausted or the iterator has been closed.
func (ci *ConnectedBlockIter) Next() (ConnectedResult, bool) {
	res, ok := ci.inner.Next()
	if !ok {
		return ConnectedResult{}, false
	}
	if res.Err != nil {
		return ConnectedResult{Height: res.Height, Err: res.Err}, true
	}

	block := res.Block
	out := &ConnectedBlock{
		Height: res.Height,
		Header: block.Header,
		Txs:    make([]ConnectedTx, len(block.Transactions)),
	}

	for i, tx := range block.Transactions {
		ctx := ConnectedTx{Tx: tx, Inputs: make([]ConnectedTxIn, len(tx.TxIn))}
		for j, in := range tx.TxIn {
			if in.IsCoinbase() {
				ctx.Inputs[j] = ConnectedTxIn{Coinbase: true}
				continue
			}
			entry, err := ci.overlay.Take(in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index)
			if err != nil {
				if !errors.Is(err, utxo.ErrMissingUTXO) {
					return ConnectedResult{Height: res.Height, Err: err}, true
				}
				if ci.strict {
					return ConnectedResult{
						Height: res.Height,
						Err:    fmt.Errorf("iter: height %d: %w", res.Height, err),
					}, true
				}
				ctx.Inputs[j] = ConnectedTxIn{}
				continue
			}
			ctx.Inputs[j] = ConnectedTxIn{Resolved: &entry}
		}
		out.Txs[i] = ctx

		// This transaction's own outputs become spendable for any
		// later transaction in the same block before that later
		// transaction's inputs are resolved.
		outs := make([]utxo.Entry, len(tx.TxOut))
		for k, o := range tx.TxOut {
			outs[k] = utxo.Entry{Script: o.PkScript, Value: o.Value}
		}
		if err := ci.overlay.Insert(tx.TxHash(), outs); err != nil {
			return ConnectedResult{Height: res.Height, Err: err}, true
		}
	}

	return ConnectedResult{Height: res.Height, Block: out}, true
}

// Close stops the underlying BlockIter. It does not close the overlay,
// which the caller owns.
func (ci *ConnectedBlockIter) Close() {
	ci.inner.Close()
}
