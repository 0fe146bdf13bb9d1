package blockstore

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// scanBlkFiles walks dir (a Bitcoin Core blocks/ directory) and returns
// a map from file number to the absolute path of its blkNNNNN.dat file.
// File numbers are parsed tolerantly: names are not required to be
// zero-padded to five digits, mirroring what a real data directory can
// contain after files roll over past blk99999.dat.
func scanBlkFiles(dir string) (map[int32]string, error) {
	return scanNumberedFiles(dir, "blk", ".dat")
}

// scanRevFiles is the undo-file analogue of scanBlkFiles.
func scanRevFiles(dir string) (map[int32]string, error) {
	return scanNumberedFiles(dir, "rev", ".dat")
}

func scanNumberedFiles(dir, prefix, ext string) (map[int32]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		n, ok := parseFileIndex(name, prefix, ext)
		if !ok {
			continue
		}
		out[n] = filepath.Join(dir, name)
	}
	return out, nil
}

// parseFileIndex extracts the numeric file index from a name shaped
// like "<prefix><digits><ext>" (e.g. "blk00000.dat", "blk6.dat",
// "blk13412451.dat"). Names that don't match the shape, or whose
// digits don't fit in an int32, are rejected.
func parseFileIndex(name, prefix, ext string) (int32, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return 0, false
	}
	digits := name[len(prefix) : len(name)-len(ext)]
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}
