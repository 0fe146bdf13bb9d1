package utxo

import (
	"sync"

	"github.com/chainlens/btcdb/chaincfg/chainhash"
)

// MemOverlay is an in-memory Overlay backed by a plain map. It never
// persists anything; the entire UTXO set must fit in process memory,
// and is lost on Close. Appropriate for ranges small enough that
// rebuilding it on every run is cheap.
type MemOverlay struct {
	mu     sync.Mutex
	utxos  map[OutPoint]Entry
	closed bool
}

// NewMemOverlay returns an empty in-memory overlay.
func NewMemOverlay() *MemOverlay {
	return &MemOverlay{utxos: make(map[OutPoint]Entry)}
}

func (m *MemOverlay) Insert(txid chainhash.Hash, outs []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range outs {
		m.utxos[OutPoint{Txid: txid, Vout: uint32(i)}] = e
	}
	return nil
}

func (m *MemOverlay) Take(txid chainhash.Hash, vout uint32) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op := OutPoint{Txid: txid, Vout: vout}
	e, ok := m.utxos[op]
	if !ok {
		return Entry{}, fmtMissing(txid, vout)
	}
	delete(m.utxos, op)
	return e, nil
}

func (m *MemOverlay) Flush() error { return nil }

func (m *MemOverlay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.utxos = nil
	return nil
}

// Len reports the number of unspent outputs currently held, mostly
// useful for tests and diagnostics.
func (m *MemOverlay) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.utxos)
}
