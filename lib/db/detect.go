package db

import (
	"encoding/binary"
	"os"
	"path/filepath"
)

// --------------------------------------------------------------------------
// Engine Detection
// --------------------------------------------------------------------------

const (
	// FlatMagic is the file format identifier of the flat engine.
	FlatMagic = "BKVFLAT\x00"

	// boltMagic is the marker bbolt writes into its meta pages
	// (offset 16, after the 16 byte page header).
	boltMagic uint32 = 0xED0CDAED

	// badgerManifest is the manifest file badger keeps in its directory.
	badgerManifest = "MANIFEST"
)

// Detect inspects path and reports which engine wrote it. It returns
// ImplUnknown with a nil error when the path exists but is in no known
// format, and ImplUnknown with a CodeOpen error when the path cannot be
// read at all.
func Detect(path string) (Implementation, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return ImplUnknown, WrapError(CodeOpen, "cannot stat path", err)
	}

	// Badger stores are directories with a MANIFEST file.
	if fi.IsDir() {
		if _, err := os.Stat(filepath.Join(path, badgerManifest)); err == nil {
			return ImplBadger, nil
		}
		return ImplUnknown, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return ImplUnknown, WrapError(CodeOpen, "cannot read path", err)
	}
	defer f.Close()

	header := make([]byte, 20)
	n, err := f.Read(header)
	if err != nil || n < len(header) {
		// Too short for any known format.
		return ImplUnknown, nil
	}

	if string(header[:len(FlatMagic)]) == FlatMagic {
		return ImplFlat, nil
	}

	// bbolt writes the magic in host byte order, so accept both.
	if binary.LittleEndian.Uint32(header[16:20]) == boltMagic ||
		binary.BigEndian.Uint32(header[16:20]) == boltMagic {
		return ImplBolt, nil
	}

	return ImplUnknown, nil
}
