package wire

// BitcoinNet represents which bitcoin network a block or transaction
// record was framed for. Only MainNet is recognized by this module.
type BitcoinNet uint32

// MainNet is the magic value prefixing every record in blkNNNNN.dat and
// revNNNNN.dat on the main network.
const MainNet BitcoinNet = 0xd9b4bef9

// MaxBlockSize is the maximum serialized size, in bytes, of a block as
// currently enforced by consensus. Used to bound allocation while
// decoding a framed record.
const MaxBlockSize = 4_000_000
