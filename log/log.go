// Package log defines this module's per-subsystem loggers. A library
// does not own the embedding process's log output the way a node
// daemon does, so unlike the original log package this one has no
// rotator: loggers default to btclog.Disabled, and it is up to the
// embedder to call UseLogger with a backend of their choosing.
package log

import "github.com/btcsuite/btclog"

// Loggers per package. BDB is the root facade, BIDX/BSTR the index and
// block-file readers, ITER the sequential/connected iterators, UTXO
// the overlay.
var (
	BdbLog  = btclog.Disabled
	BidxLog = btclog.Disabled
	BstrLog = btclog.Disabled
	IterLog = btclog.Disabled
	UtxoLog = btclog.Disabled
)

// subsystemLoggers maps each subsystem tag to the package-level
// logger variable it controls.
var subsystemLoggers = map[string]*btclog.Logger{
	"BDB":  &BdbLog,
	"BIDX": &BidxLog,
	"BSTR": &BstrLog,
	"ITER": &IterLog,
	"UTXO": &UtxoLog,
}

// UseLogger sets every subsystem's logger to one obtained from
// backend, tagged with its own subsystem identifier. Call this once,
// before opening a DB, to route this module's logs into the
// embedder's own logging setup.
func UseLogger(backend *btclog.Backend) {
	for tag, logger := range subsystemLoggers {
		*logger = backend.Logger(tag)
	}
}

// DisableLog sets every subsystem's logger to btclog.Disabled, the
// default. Safe to call at any time.
func DisableLog() {
	for _, logger := range subsystemLoggers {
		*logger = btclog.Disabled
	}
}

// SetLogLevel sets the logging level for one subsystem. Invalid
// subsystem tags are ignored.
func SetLogLevel(subsystemID string, level btclog.Level) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	(*logger).SetLevel(level)
}

// SetLogLevels sets every subsystem's logging level at once.
func SetLogLevels(level btclog.Level) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, level)
	}
}
