package wire

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// genesisHeaderHex is the raw 80-byte mainnet genesis block header.
const genesisHeaderHex = "01000000" +
	"0000000000000000000000000000000000000000000000000000000000000000" +
	"3ba3edfd7a7b12b27ac72c3e67768f617fc81bc3888a51323a9fb8aa4b1e5e4a" +
	"29ab5f49" + "ffff001d" + "1dac2b7c"

func TestGenesisHeaderDecode(t *testing.T) {
	raw, err := hex.DecodeString(genesisHeaderHex)
	if err != nil {
		t.Fatal(err)
	}
	var h BlockHeader
	if err := h.Deserialize(bytes.NewReader(raw)); err != nil {
		t.Fatal(err)
	}
	if h.Timestamp.Unix() != 1231006505 {
		t.Errorf("time = %d, want 1231006505", h.Timestamp.Unix())
	}
	want := "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
	if got := h.BlockHash().String(); got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}
