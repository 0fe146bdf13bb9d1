package btcdb

import (
	"github.com/chainlens/btcdb/chaincfg/chainhash"
	"github.com/chainlens/btcdb/iter"
	"github.com/chainlens/btcdb/txscript"
	"github.com/chainlens/btcdb/wire"
)

// Projection selects how Block/IterBlock render a decoded block to the
// caller: the same underlying bytes, three views. It is applied after
// the full block has been decoded. IterConnected takes no Projection;
// it always yields *ConnectedBlock.
type Projection int

const (
	// RawProjection returns the decoded block unchanged (full scripts
	// and witnesses, no address derivation).
	RawProjection Projection = iota

	// FullProjection retains witnesses and raw script bytes alongside
	// derived addresses.
	FullProjection

	// SimpleProjection drops witnesses and raw script bytes, keeping
	// only decoded addresses and values.
	SimpleProjection
)

// Block is the raw projection: the decoded header and transactions,
// unmodified.
type Block struct {
	Height       int32
	Header       wire.BlockHeader
	Transactions []*wire.MsgTx
}

// FOutput is a transaction output under the full projection: the raw
// script plus its classification.
type FOutput struct {
	Value     int64
	PkScript  []byte
	Class     txscript.ScriptClass
	Addresses []string
}

// FInput is a transaction input under the full projection, including
// the witness stack.
type FInput struct {
	PreviousOutPoint wire.OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// FTx is a transaction under the full projection.
type FTx struct {
	Txid    chainhash.Hash
	Version int32
	TxIn    []FInput
	TxOut   []FOutput
	LockTime uint32
}

// FBlock is the full projection: witnesses and raw scripts retained,
// addresses derived alongside them.
type FBlock struct {
	Height       int32
	Header       wire.BlockHeader
	Transactions []FTx
}

// SOutput is a transaction output under the simple projection: value
// and derived addresses only, no raw script bytes.
type SOutput struct {
	Value     int64
	Class     txscript.ScriptClass
	Addresses []string
}

// SInput is a transaction input under the simple projection: the
// previous outpoint and sequence only, no sig-script or witness bytes.
type SInput struct {
	PreviousOutPoint wire.OutPoint
	Sequence         uint32
}

// STx is a transaction under the simple projection.
type STx struct {
	Txid  chainhash.Hash
	TxOut []SOutput
	TxIn  []SInput
}

// SBlock is the simple projection: no witnesses, no raw script bytes,
// just decoded addresses and values.
type SBlock struct {
	Height       int32
	Header       wire.BlockHeader
	Transactions []STx
}

func toBlock(height int32, mb *wire.MsgBlock) *Block {
	return &Block{Height: height, Header: mb.Header, Transactions: mb.Transactions}
}

func toFBlock(height int32, mb *wire.MsgBlock) *FBlock {
	txs := make([]FTx, len(mb.Transactions))
	for i, tx := range mb.Transactions {
		txs[i] = toFTx(tx)
	}
	return &FBlock{Height: height, Header: mb.Header, Transactions: txs}
}

func toFTx(tx *wire.MsgTx) FTx {
	ins := make([]FInput, len(tx.TxIn))
	for i, in := range tx.TxIn {
		ins[i] = FInput{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  in.SignatureScript,
			Witness:          in.Witness,
			Sequence:         in.Sequence,
		}
	}
	outs := make([]FOutput, len(tx.TxOut))
	for i, out := range tx.TxOut {
		class, addrs := txscript.ExtractAddresses(out.PkScript)
		outs[i] = FOutput{Value: out.Value, PkScript: out.PkScript, Class: class, Addresses: addrs}
	}
	return FTx{
		Txid:     tx.TxHash(),
		Version:  tx.Version,
		TxIn:     ins,
		TxOut:    outs,
		LockTime: tx.LockTime,
	}
}

func toSBlock(height int32, mb *wire.MsgBlock) *SBlock {
	txs := make([]STx, len(mb.Transactions))
	for i, tx := range mb.Transactions {
		txs[i] = toSTx(tx)
	}
	return &SBlock{Height: height, Header: mb.Header, Transactions: txs}
}

func toSTx(tx *wire.MsgTx) STx {
	ins := make([]SInput, len(tx.TxIn))
	for i, in := range tx.TxIn {
		ins[i] = SInput{PreviousOutPoint: in.PreviousOutPoint, Sequence: in.Sequence}
	}
	outs := make([]SOutput, len(tx.TxOut))
	for i, out := range tx.TxOut {
		class, addrs := txscript.ExtractAddresses(out.PkScript)
		outs[i] = SOutput{Value: out.Value, Class: class, Addresses: addrs}
	}
	return STx{Txid: tx.TxHash(), TxOut: outs, TxIn: ins}
}

// project renders mb under the requested Projection, returning the
// concrete projection type as an any: *Block, *FBlock, or *SBlock.
func project(height int32, mb *wire.MsgBlock, p Projection) any {
	switch p {
	case FullProjection:
		return toFBlock(height, mb)
	case SimpleProjection:
		return toSBlock(height, mb)
	default:
		return toBlock(height, mb)
	}
}

// ConnectedInput mirrors iter.ConnectedTxIn but carries the resolved
// output's value, classification and addresses, the thing a connected
// query actually wants. The spent output's script bytes are not kept.
type ConnectedInput struct {
	PreviousOutPoint wire.OutPoint
	Coinbase         bool
	Resolved         bool
	Value            int64
	Class            txscript.ScriptClass
	Addresses        []string
}

// ConnectedTx is one transaction with each input resolved to the
// output it spends.
type ConnectedTx struct {
	Txid  chainhash.Hash
	TxIn  []ConnectedInput
	TxOut []FOutput
}

// ConnectedBlock is a decoded block whose every non-coinbase input has
// been resolved against the UTXO set as of its own height.
type ConnectedBlock struct {
	Height       int32
	Header       wire.BlockHeader
	Transactions []ConnectedTx
}

func toConnectedBlock(cb *iter.ConnectedBlock) *ConnectedBlock {
	txs := make([]ConnectedTx, len(cb.Txs))
	for i, ctx := range cb.Txs {
		ins := make([]ConnectedInput, len(ctx.Inputs))
		for j, in := range ctx.Inputs {
			ci := ConnectedInput{
				PreviousOutPoint: ctx.Tx.TxIn[j].PreviousOutPoint,
				Coinbase:         in.Coinbase,
			}
			if in.Resolved != nil {
				ci.Resolved = true
				ci.Value = in.Resolved.Value
				ci.Class, ci.Addresses = txscript.ExtractAddresses(in.Resolved.Script)
			}
			ins[j] = ci
		}
		outs := make([]FOutput, len(ctx.Tx.TxOut))
		for j, out := range ctx.Tx.TxOut {
			class, addrs := txscript.ExtractAddresses(out.PkScript)
			outs[j] = FOutput{Value: out.Value, PkScript: out.PkScript, Class: class, Addresses: addrs}
		}
		txs[i] = ConnectedTx{Txid: ctx.Tx.TxHash(), TxIn: ins, TxOut: outs}
	}
	return &ConnectedBlock{Height: cb.Height, Header: cb.Header, Transactions: txs}
}
