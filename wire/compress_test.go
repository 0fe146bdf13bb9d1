package wire

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// gX/gY are secp256k1's generator point coordinates, a fixed public
// constant independent of any private key, used here purely as a known
// (x, y) pair to check point recovery against.
const (
	gX = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	gY = "483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"
)

func TestDecompressScriptP2PKH(t *testing.T) {
	hash160 := bytes.Repeat([]byte{0xab}, 20)
	got, err := DecompressScript(compressP2PKH, hash160)
	if err != nil {
		t.Fatalf("DecompressScript: %v", err)
	}
	want := append([]byte{0x76, 0xa9, 0x14}, hash160...)
	want = append(want, 0x88, 0xac)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestDecompressScriptP2SH(t *testing.T) {
	hash160 := bytes.Repeat([]byte{0xcd}, 20)
	got, err := DecompressScript(compressP2SH, hash160)
	if err != nil {
		t.Fatalf("DecompressScript: %v", err)
	}
	want := append([]byte{0xa9, 0x14}, hash160...)
	want = append(want, 0x87)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestDecompressScriptP2PKCompressed(t *testing.T) {
	x, err := hex.DecodeString(gX)
	if err != nil {
		t.Fatal(err)
	}
	// gY ends in 0xb8, even, so the compressed encoding of G carries the
	// 0x02 prefix (class A). Classes 2/3 only re-prefix x; no curve
	// point is parsed for them.
	got, err := DecompressScript(compressP2PKCompA, x)
	if err != nil {
		t.Fatalf("DecompressScript: %v", err)
	}
	want := append([]byte{33, 0x02}, x...)
	want = append(want, 0xac)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

// TestDecompressScriptP2PKUncompressed checks that classes 4/5 recover
// the genuine 65-byte uncompressed pubkey (0x04 || x || y) rather than
// just re-prefixing x as a 33-byte compressed key.
func TestDecompressScriptP2PKUncompressed(t *testing.T) {
	x, err := hex.DecodeString(gX)
	if err != nil {
		t.Fatal(err)
	}
	y, err := hex.DecodeString(gY)
	if err != nil {
		t.Fatal(err)
	}

	// y's last byte (0xb8) is even, so G's recovery class is "A".
	got, err := DecompressScript(compressP2PKUncA, x)
	if err != nil {
		t.Fatalf("DecompressScript: %v", err)
	}
	wantPub := append([]byte{0x04}, x...)
	wantPub = append(wantPub, y...)
	want := append([]byte{65}, wantPub...)
	want = append(want, 0xac)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}

	// The wrong parity class for the same x must recover the other
	// branch's y, not G's, so it must disagree with the correct script.
	gotB, err := DecompressScript(compressP2PKUncB, x)
	if err != nil {
		t.Fatalf("DecompressScript (class B): %v", err)
	}
	if bytes.Equal(gotB, want) {
		t.Fatal("class B recovered the same uncompressed key as class A")
	}
}

func TestDecompressScriptUnknownClass(t *testing.T) {
	if _, err := DecompressScript(0xff, bytes.Repeat([]byte{0}, 20)); err == nil {
		t.Fatal("expected error for unknown compression class")
	}
}
