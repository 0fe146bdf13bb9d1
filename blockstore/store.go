// Package blockstore decodes Bitcoin Core's blkNNNNN.dat and
// revNNNNN.dat flat files, the on-disk home of full blocks and their
// undo data. It never writes; its only state is a bounded cache of
// open read-only file handles.
package blockstore

import (
	"container/list"
	"fmt"
	"os"
	"sync"

	"github.com/chainlens/btcdb/wire"
)

// defaultMaxOpenFiles bounds how many blkNNNNN.dat/revNNNNN.dat handles
// Store keeps open at once, trading file-descriptor pressure for the
// cost of repeatedly reopening hot files during sequential iteration.
const defaultMaxOpenFiles = 32

// lockableFile pairs an open file with a mutex so concurrent readers
// can share the handle without racing on its seek position; every read
// in this package uses ReadAt, which does not move a shared cursor, but
// the mutex still serializes Close against in-flight reads.
type lockableFile struct {
	sync.RWMutex
	file *os.File
}

// Store reads block and undo records out of a blocks/ directory,
// caching a bounded number of open file handles. Where locks nest, the
// order is lruMutex, then obfMutex, then a specific file's own mutex —
// never the reverse.
type Store struct {
	blocksDir string

	maxOpenFiles int

	obfMutex sync.RWMutex
	lruMutex sync.Mutex
	lru      *list.List // of int32 file numbers, most-recently-used at front
	lruElem  map[int32]*list.Element
	openBlk  map[int32]*lockableFile
	openRev  map[int32]*lockableFile

	blkPaths map[int32]string
	revPaths map[int32]string
}

// Open scans blocksDir for blkNNNNN.dat/revNNNNN.dat files and returns
// a Store ready to serve reads against them.
func Open(blocksDir string) (*Store, error) {
	blkPaths, err := scanBlkFiles(blocksDir)
	if err != nil {
		return nil, fmt.Errorf("blockstore: scanning %s: %w", blocksDir, err)
	}
	if len(blkPaths) == 0 {
		return nil, fmt.Errorf("blockstore: no blk files found under %s", blocksDir)
	}
	revPaths, err := scanRevFiles(blocksDir)
	if err != nil {
		return nil, fmt.Errorf("blockstore: scanning %s: %w", blocksDir, err)
	}

	return &Store{
		blocksDir:    blocksDir,
		maxOpenFiles: defaultMaxOpenFiles,
		lru:          list.New(),
		lruElem:      make(map[int32]*list.Element),
		openBlk:      make(map[int32]*lockableFile),
		openRev:      make(map[int32]*lockableFile),
		blkPaths:     blkPaths,
		revPaths:     revPaths,
	}, nil
}

// Close releases every open file handle.
func (s *Store) Close() error {
	s.obfMutex.Lock()
	defer s.obfMutex.Unlock()
	var firstErr error
	for _, lf := range s.openBlk {
		lf.Lock()
		if err := lf.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		lf.Unlock()
	}
	for _, lf := range s.openRev {
		lf.Lock()
		if err := lf.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		lf.Unlock()
	}
	s.openBlk = make(map[int32]*lockableFile)
	s.openRev = make(map[int32]*lockableFile)
	return firstErr
}

// touchLRU marks fileNum as most recently used, evicting the least
// recently used file (from whichever map it lives in) if this access
// would otherwise grow the open set past maxOpenFiles.
func (s *Store) touchLRU(fileNum int32) {
	s.lruMutex.Lock()
	defer s.lruMutex.Unlock()

	if elem, ok := s.lruElem[fileNum]; ok {
		s.lru.MoveToFront(elem)
		return
	}
	s.lruElem[fileNum] = s.lru.PushFront(fileNum)

	if s.lru.Len() <= s.maxOpenFiles {
		return
	}
	back := s.lru.Back()
	if back == nil {
		return
	}
	evict := back.Value.(int32)
	s.lru.Remove(back)
	delete(s.lruElem, evict)

	s.obfMutex.Lock()
	if lf, ok := s.openBlk[evict]; ok {
		lf.Lock()
		lf.file.Close()
		lf.Unlock()
		delete(s.openBlk, evict)
	}
	if lf, ok := s.openRev[evict]; ok {
		lf.Lock()
		lf.file.Close()
		lf.Unlock()
		delete(s.openRev, evict)
	}
	s.obfMutex.Unlock()
}

func (s *Store) blkFile(fileNum int32) (*lockableFile, error) {
	s.obfMutex.RLock()
	lf, ok := s.openBlk[fileNum]
	s.obfMutex.RUnlock()
	if ok {
		s.touchLRU(fileNum)
		return lf, nil
	}

	path, ok := s.blkPaths[fileNum]
	if !ok {
		return nil, fmt.Errorf("blockstore: no blk file for file number %d", fileNum)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	s.obfMutex.Lock()
	if existing, ok := s.openBlk[fileNum]; ok {
		s.obfMutex.Unlock()
		f.Close()
		s.touchLRU(fileNum)
		return existing, nil
	}
	lf = &lockableFile{file: f}
	s.openBlk[fileNum] = lf
	s.obfMutex.Unlock()

	s.touchLRU(fileNum)
	return lf, nil
}

func (s *Store) revFile(fileNum int32) (*lockableFile, error) {
	s.obfMutex.RLock()
	lf, ok := s.openRev[fileNum]
	s.obfMutex.RUnlock()
	if ok {
		s.touchLRU(fileNum)
		return lf, nil
	}

	path, ok := s.revPaths[fileNum]
	if !ok {
		return nil, fmt.Errorf("blockstore: no rev file for file number %d", fileNum)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	s.obfMutex.Lock()
	if existing, ok := s.openRev[fileNum]; ok {
		s.obfMutex.Unlock()
		f.Close()
		s.touchLRU(fileNum)
		return existing, nil
	}
	lf = &lockableFile{file: f}
	s.openRev[fileNum] = lf
	s.obfMutex.Unlock()

	s.touchLRU(fileNum)
	return lf, nil
}

// frameHeaderLen is the 4-byte magic plus 4-byte little-endian size
// that precedes every record in a blk/rev file.
const frameHeaderLen = 8

// readFrame validates the magic at framePos and returns the record
// payload that follows its 4-byte size field, allocated fresh.
// framePos is the position of the frame's own magic bytes, matching
// the block-index's recorded data position.
func readFrame(lf *lockableFile, framePos uint32, net wire.BitcoinNet) ([]byte, error) {
	lf.RLock()
	defer lf.RUnlock()

	var head [frameHeaderLen]byte
	if _, err := lf.file.ReadAt(head[:], int64(framePos)); err != nil {
		return nil, err
	}
	magic := wire.BitcoinNet(uint32(head[0]) | uint32(head[1])<<8 | uint32(head[2])<<16 | uint32(head[3])<<24)
	if magic != net {
		return nil, fmt.Errorf("blockstore: bad magic %08x at file offset %d", uint32(magic), framePos)
	}
	size := uint32(head[4]) | uint32(head[5])<<8 | uint32(head[6])<<16 | uint32(head[7])<<24
	if size > wire.MaxBlockSize*2 {
		return nil, fmt.Errorf("blockstore: implausible frame size %d", size)
	}
	payload := make([]byte, size)
	if _, err := lf.file.ReadAt(payload, int64(framePos)+frameHeaderLen); err != nil {
		return nil, err
	}
	return payload, nil
}
