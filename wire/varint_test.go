package wire

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000, 1<<64 - 1}
	for _, v := range cases {
		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			t.Fatalf("read %d: %v", v, err)
		}
		if got != v {
			t.Errorf("roundtrip %d: got %d", v, got)
		}
	}
}

func TestReadCoreVarInt(t *testing.T) {
	// 300 encodes as 0x81 0x2c in the node's 7-bit continuation scheme.
	buf := bytes.NewReader([]byte{0x81, 0x2c})
	got, err := ReadCoreVarInt(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 300 {
		t.Errorf("got %d, want 300", got)
	}
}

func TestReadCoreVarIntSingleByte(t *testing.T) {
	for _, v := range []byte{0, 1, 0x7f} {
		buf := bytes.NewReader([]byte{v})
		got, err := ReadCoreVarInt(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != uint64(v) {
			t.Errorf("got %d, want %d", got, v)
		}
	}
}
