package blockstore

import (
	"bytes"
	"errors"
	"io"

	"github.com/chainlens/btcdb/wire"
)

// errBadMagic is returned when a transaction's claimed block position
// does not begin with a valid frame magic.
var errBadMagic = errors.New("blockstore: bad magic at transaction's block position")

// ReadBlock decodes the full block stored in the frame at dataPos in
// blkNNNNN.dat number fileNum. dataPos is the block-index's recorded
// data position: the byte offset of the frame's own 4-byte magic, the
// same convention blocks/index stores for every Record.
func (s *Store) ReadBlock(fileNum int32, dataPos uint32, net wire.BitcoinNet) (*wire.MsgBlock, error) {
	lf, err := s.blkFile(fileNum)
	if err != nil {
		return nil, err
	}
	payload, err := readFrame(lf, dataPos, net)
	if err != nil {
		return nil, err
	}
	block := &wire.MsgBlock{}
	if err := block.Deserialize(bytes.NewReader(payload)); err != nil {
		return nil, err
	}
	return block, nil
}

// ReadTransaction decodes a single transaction directly, given the
// data position of the block it belongs to (blockindex.Record.DataPos)
// and the txindex's recorded offset of the transaction within that
// block's frame (blockindex.TxRecord.BlockPos/TxOffset share this same
// blockDataPos convention). The absolute file position of the
// transaction's own bytes is blockDataPos + 8 (the frame's magic+size
// prefix) + txOffset.
func (s *Store) ReadTransaction(fileNum int32, blockDataPos, txOffset uint32, net wire.BitcoinNet) (*wire.MsgTx, error) {
	lf, err := s.blkFile(fileNum)
	if err != nil {
		return nil, err
	}
	lf.RLock()
	defer lf.RUnlock()

	var head [frameHeaderLen]byte
	if _, err := lf.file.ReadAt(head[:], int64(blockDataPos)); err != nil {
		return nil, err
	}
	magic := wire.BitcoinNet(uint32(head[0]) | uint32(head[1])<<8 | uint32(head[2])<<16 | uint32(head[3])<<24)
	if magic != net {
		return nil, errBadMagic
	}

	abs := int64(blockDataPos) + frameHeaderLen + int64(txOffset)
	sr := io.NewSectionReader(lf.file, abs, maxTxReadSpan)
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(sr); err != nil {
		return nil, err
	}
	return tx, nil
}

// maxTxReadSpan bounds how far past a transaction's start ReadTransaction
// will read; a single transaction cannot legally exceed the maximum
// block size.
const maxTxReadSpan = wire.MaxBlockSize
