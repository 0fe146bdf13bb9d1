package wire

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// DecompressAmount reverses the node's reversible amount compression
// scheme used in undo-block records. It trades a few cycles for smaller
// on-disk undo data and is fully invertible.
func DecompressAmount(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	var n uint64
	if e < 9 {
		d := x % 9
		x /= 9
		n = x*10 + d + 1
		for i := uint64(0); i < e; i++ {
			n *= 10
		}
	} else {
		n = x + 1
		for i := uint64(0); i < 9; i++ {
			n *= 10
		}
	}
	return n
}

// These compression classes enumerate the six special-cased script
// shapes that undo records store compressed; anything else is stored
// with an explicit length prefix (class 0x06 and up, offset by -6).
const (
	compressP2PKH     = 0x00
	compressP2SH      = 0x01
	compressP2PKCompA = 0x02
	compressP2PKCompB = 0x03
	compressP2PKUncA  = 0x04
	compressP2PKUncB  = 0x05
)

// DecompressScript expands one of the node's six compressed pubkey-script
// shapes back into the full scriptPubKey bytes. class is the nSize value
// (a core varint, 0x00-0x05) that preceded the payload; payload is whatever followed it
// (20 bytes for the hash classes, 32 bytes for the pubkey-x classes).
func DecompressScript(class byte, payload []byte) ([]byte, error) {
	switch class {
	case compressP2PKH:
		if len(payload) != 20 {
			return nil, fmt.Errorf("wire: p2pkh compressed script needs 20 bytes, got %d", len(payload))
		}
		out := make([]byte, 0, 25)
		out = append(out, 0x76, 0xa9, 0x14)
		out = append(out, payload...)
		out = append(out, 0x88, 0xac)
		return out, nil
	case compressP2SH:
		if len(payload) != 20 {
			return nil, fmt.Errorf("wire: p2sh compressed script needs 20 bytes, got %d", len(payload))
		}
		out := make([]byte, 0, 23)
		out = append(out, 0xa9, 0x14)
		out = append(out, payload...)
		out = append(out, 0x87)
		return out, nil
	case compressP2PKCompA, compressP2PKCompB, compressP2PKUncA, compressP2PKUncB:
		if len(payload) != 32 {
			return nil, fmt.Errorf("wire: p2pk compressed script needs 32 bytes, got %d", len(payload))
		}
		pub, err := decompressPubKey(class, payload)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(pub)+2)
		out = append(out, byte(len(pub)))
		out = append(out, pub...)
		out = append(out, 0xac)
		return out, nil
	default:
		return nil, fmt.Errorf("wire: unknown compressed script class %d", class)
	}
}

// decompressPubKey reconstructs the serialized secp256k1 public key from
// its compressed (class 2/3) or uncompressed-on-chain (class 4/5) undo
// representation. Classes 4/5 signal that the original scriptPubKey held
// an uncompressed 65-byte key; the parity bit needed to recover the
// y-coordinate from x is folded into the class byte itself (4 == even,
// 5 == odd), matching class 2/3's even/odd coding for the compressed
// form. Recovery is the curve-point computation y² = x³+7 mod p,
// performed here by round-tripping through btcec's own point parser
// rather than reimplementing the modular square root.
func decompressPubKey(class byte, x []byte) ([]byte, error) {
	switch class {
	case compressP2PKCompA:
		out := make([]byte, 33)
		out[0] = 0x02
		copy(out[1:], x)
		return out, nil
	case compressP2PKCompB:
		out := make([]byte, 33)
		out[0] = 0x03
		copy(out[1:], x)
		return out, nil
	case compressP2PKUncA, compressP2PKUncB:
		prefix := byte(0x02)
		if class == compressP2PKUncB {
			prefix = 0x03
		}
		compressed := make([]byte, 33)
		compressed[0] = prefix
		copy(compressed[1:], x)
		pub, err := btcec.ParsePubKey(compressed)
		if err != nil {
			return nil, fmt.Errorf("wire: recovering uncompressed pubkey: %w", err)
		}
		return pub.SerializeUncompressed(), nil
	default:
		return nil, fmt.Errorf("wire: not a pubkey compression class: %d", class)
	}
}
