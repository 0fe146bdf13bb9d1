// Package iter provides bounded-memory, order-preserving iteration
// over a range of blocks, decoding ahead of the consumer on a worker
// pool while still yielding strictly in ascending height order.
package iter

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/chainlens/btcdb/blockindex"
	"github.com/chainlens/btcdb/blockstore"
	"github.com/chainlens/btcdb/wire"
)

// defaultWindowFactor multiplied by the worker count is the default
// number of heights that may be decoded ahead of the consumer before
// the producer blocks waiting for Next to drain the buffer.
const defaultWindowFactor = 4

// Result is what BlockIter yields for one height: either a decoded
// block or the error that decoding it produced, never both.
type Result struct {
	Height int32
	Block  *wire.MsgBlock
	Err    error
}

// Config holds the tunables for a BlockIter; zero values select
// defaults.
type Config struct {
	Workers int // decode goroutines; 0 -> GOMAXPROCS, capped at 32
	Window  int // in-flight heights; 0 -> 4*Workers
}

func (c Config) resolved() (workers, window int) {
	workers = c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > 32 {
			workers = 32
		}
	}
	window = c.Window
	if window <= 0 {
		window = defaultWindowFactor * workers
	}
	return workers, window
}

// BlockIter decodes blocks over [lo, hi) using a bounded pool of
// worker goroutines, but always yields them to the consumer in strict
// ascending height order via Next. Memory use is bounded by the
// configured window: at most `window` heights are decoded and held
// pending delivery at any moment.
type BlockIter struct {
	store *blockstore.Store
	idx   *blockindex.Index
	net   wire.BitcoinNet
	hi    int32

	sem   chan struct{}
	tasks chan int32
	stop  chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	cond   *sync.Cond
	buffer map[int32]Result
	next   int32

	cancelled atomic.Bool
	wg        sync.WaitGroup
}

// NewBlockIter begins decoding blocks [lo, hi) from store, using idx
// to locate each height's on-disk position. Decoding starts
// immediately in background goroutines; callers must eventually call
// Close.
func NewBlockIter(idx *blockindex.Index, store *blockstore.Store, net wire.BitcoinNet, lo, hi int32, cfg Config) *BlockIter {
	workers, window := cfg.resolved()

	bi := &BlockIter{
		store:  store,
		idx:    idx,
		net:    net,
		hi:     hi,
		sem:    make(chan struct{}, window),
		tasks:  make(chan int32),
		stop:   make(chan struct{}),
		buffer: make(map[int32]Result, window),
		next:   lo,
	}
	bi.cond = sync.NewCond(&bi.mu)

	bi.wg.Add(1)
	go bi.produce(lo, hi)

	bi.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go bi.work()
	}

	return bi
}

func (bi *BlockIter) produce(lo, hi int32) {
	defer bi.wg.Done()
	defer close(bi.tasks)
	for h := lo; h < hi; h++ {
		select {
		case <-bi.stop:
			return
		case bi.sem <- struct{}{}:
		}
		select {
		case <-bi.stop:
			return
		case bi.tasks <- h:
		}
	}
}

func (bi *BlockIter) work() {
	defer bi.wg.Done()
	for h := range bi.tasks {
		if bi.cancelled.Load() {
			continue
		}
		res := bi.decode(h)
		bi.mu.Lock()
		bi.buffer[h] = res
		bi.cond.Broadcast()
		bi.mu.Unlock()
	}
}

func (bi *BlockIter) decode(h int32) Result {
	rec, err := bi.idx.ByHeight(h)
	if err != nil {
		return Result{Height: h, Err: err}
	}
	block, err := bi.store.ReadBlock(rec.FileNum, rec.DataPos, bi.net)
	if err != nil {
		return Result{Height: h, Err: err}
	}
	return Result{Height: h, Block: block}
}

// Next blocks until the next height in order is ready (or decoding
// reaches hi, or Close was called) and returns it. The second return
// value is false once the range is exhausted or the iterator has been
// closed.
func (bi *BlockIter) Next() (Result, bool) {
	bi.mu.Lock()
	for {
		if bi.cancelled.Load() {
			bi.mu.Unlock()
			return Result{}, false
		}
		if bi.next >= bi.hi {
			bi.mu.Unlock()
			return Result{}, false
		}
		if res, ok := bi.buffer[bi.next]; ok {
			delete(bi.buffer, bi.next)
			bi.next++
			bi.mu.Unlock()
			// Free one window slot now that the consumer has this
			// height, letting the producer dispatch one more task.
			<-bi.sem
			return res, true
		}
		bi.cond.Wait()
	}
}

// Close stops further decoding and releases any goroutines blocked in
// the pipeline. In-flight reads finish but their results are dropped;
// it is safe to call Close more than once.
func (bi *BlockIter) Close() {
	bi.stopOnce.Do(func() {
		bi.cancelled.Store(true)
		close(bi.stop)
	})
	bi.mu.Lock()
	bi.cond.Broadcast()
	bi.mu.Unlock()
	bi.wg.Wait()

	// The semaphore is not drained: the producer has already observed
	// stop and returned by the time Wait() above completes, so no send
	// on bi.sem can be left blocked.
}
