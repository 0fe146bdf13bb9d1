package blockstore

import "testing"

func TestParseFileIndex(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		ext     string
		wantN   int32
		wantOK  bool
	}{
		{"blk00000.dat", "blk", ".dat", 0, true},
		{"blk6.dat", "blk", ".dat", 6, true},
		{"blk1202.dat", "blk", ".dat", 1202, true},
		{"blk13412451.dat", "blk", ".dat", 13412451, true},
		{"rev00042.dat", "rev", ".dat", 42, true},
		{"blk.dat", "blk", ".dat", 0, false},
		{"blkabc.dat", "blk", ".dat", 0, false},
		{"notablk00000.dat", "blk", ".dat", 0, false},
		{"blk00000.txt", "blk", ".dat", 0, false},
	}
	for _, tt := range tests {
		n, ok := parseFileIndex(tt.name, tt.prefix, tt.ext)
		if ok != tt.wantOK {
			t.Errorf("parseFileIndex(%q): ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if ok && n != tt.wantN {
			t.Errorf("parseFileIndex(%q): n = %d, want %d", tt.name, n, tt.wantN)
		}
	}
}
