package btcdb

import "fmt"

// ErrorKind identifies the category of failure a *Error wraps, mirroring
// the kind-based dispatch the teacher's database package gestures at
// with its DB/Tx interface boundary, generalized here to a single
// exported error type so callers errors.As once instead of matching a
// sentinel per package.
type ErrorKind string

const (
	// ErrPathInvalid means the data directory is missing blocks/ or
	// blocks/index/.
	ErrPathInvalid ErrorKind = "path invalid"

	// ErrIndexUnreadable means the block-index or txindex LevelDB
	// store exists but could not be opened.
	ErrIndexUnreadable ErrorKind = "index unreadable"

	// ErrIndexIncomplete means the block-index store was opened but
	// contains no contiguous best-chain records from genesis.
	ErrIndexIncomplete ErrorKind = "index incomplete"

	// ErrDecode means a block, transaction, or undo record failed to
	// parse at its recorded on-disk position.
	ErrDecode ErrorKind = "decode error"

	// ErrNotFound means a height, hash, or txid has no corresponding
	// record.
	ErrNotFound ErrorKind = "not found"

	// ErrMissingUTXO means a connected iteration hit an input whose
	// spent output is not present in the UTXO overlay.
	ErrMissingUTXO ErrorKind = "missing utxo"

	// ErrConcurrentOverlay means a second connected iteration was
	// requested while one is already in flight over the same DB.
	ErrConcurrentOverlay ErrorKind = "concurrent overlay"

	// ErrTxIndexDisabled means Transaction was called on a DB opened
	// without WithTxIndex(true), or whose data directory has no
	// indexes/txindex.
	ErrTxIndexDisabled ErrorKind = "tx index disabled"

	// ErrCancelled means the caller closed the iterator before it was
	// exhausted.
	ErrCancelled ErrorKind = "cancelled"
)

// Error is the single error type every exported btcdb operation
// returns. Op names the failing operation (e.g. "Block", "IterBlock");
// Err is the underlying cause, when there is one, and is reachable via
// errors.Is/errors.As through Unwrap.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("btcdb: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("btcdb: %s: %s", e.Op, e.Kind)
}

// Unwrap exposes the wrapped cause so errors.Is(err, blockindex.ErrNotFound)
// and similar checks still work through a *Error.
func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
