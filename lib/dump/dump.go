package dump

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bkv-project/bKV/lib/db"
	"github.com/bkv-project/bKV/lib/store"
)

const (
	// Magic identifies a dump archive.
	Magic = "BKVDUMP\x00"
	// Version is the current archive layout version.
	Version byte = 1
)

// maxRecordSize guards Restore against corrupt length prefixes.
const maxRecordSize = 1 << 30

// headerSize is magic + version byte + format id byte.
const headerSize = len(Magic) + 2

// Dump writes every entry of the store to w as an archive: a fixed header
// followed by length-prefixed records in the chosen format. The key set is
// snapshotted once at the start; entries deleted while the dump is running
// are skipped, entries added are not included. Returns the number of records
// written.
func Dump(ctx context.Context, s store.IStore, w io.Writer, format Format) (int, error) {
	ser, err := NewSerializer(format)
	if err != nil {
		return 0, err
	}

	header := make([]byte, headerSize)
	copy(header, Magic)
	header[len(Magic)] = Version
	header[len(Magic)+1] = formatIDs[format]
	if _, err := w.Write(header); err != nil {
		return 0, fmt.Errorf("cannot write archive header: %w", err)
	}

	it, err := s.Keys(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	lenBuf := make([]byte, 4)
	for key, ok := it.Next(); ok; key, ok = it.Next() {
		value, err := s.Get(ctx, key)
		if db.IsNotFound(err) {
			// deleted between the snapshot and the read
			continue
		}
		if err != nil {
			return count, err
		}

		data, err := ser.Encode(Record{Key: key, Value: value})
		if err != nil {
			return count, fmt.Errorf("cannot encode record: %w", err)
		}

		binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
		if _, err := w.Write(lenBuf); err != nil {
			return count, fmt.Errorf("cannot write record frame: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return count, fmt.Errorf("cannot write record: %w", err)
		}
		count++
	}

	return count, nil
}

// Restore reads an archive from r and writes every record into the store.
// The record format is taken from the archive header, so the format flag
// used at dump time does not need to be known. Existing entries with the
// same keys are overwritten. Returns the number of records restored.
func Restore(ctx context.Context, r io.Reader, s store.IStore) (int, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, fmt.Errorf("cannot read archive header: %w", err)
	}
	if string(header[:len(Magic)]) != Magic {
		return 0, errors.New("not a dump archive (bad magic)")
	}
	if header[len(Magic)] != Version {
		return 0, fmt.Errorf("unsupported archive version %d", header[len(Magic)])
	}

	var format Format
	for f, id := range formatIDs {
		if id == header[len(Magic)+1] {
			format = f
			break
		}
	}
	if format == "" {
		return 0, fmt.Errorf("unknown archive format id %d", header[len(Magic)+1])
	}
	ser, err := NewSerializer(format)
	if err != nil {
		return 0, err
	}

	count := 0
	lenBuf := make([]byte, 4)
	var buf []byte
	for {
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			if errors.Is(err, io.EOF) {
				// clean end of archive
				return count, nil
			}
			return count, fmt.Errorf("cannot read record frame: %w", err)
		}

		n := binary.BigEndian.Uint32(lenBuf)
		if n > maxRecordSize {
			return count, fmt.Errorf("record of %d bytes exceeds the record size limit", n)
		}

		if cap(buf) < int(n) {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err := io.ReadFull(r, buf); err != nil {
			return count, fmt.Errorf("truncated record: %w", err)
		}

		var rec Record
		if err := ser.Decode(buf, &rec); err != nil {
			return count, fmt.Errorf("cannot decode record: %w", err)
		}

		if err := s.Set(ctx, rec.Key, rec.Value); err != nil {
			return count, err
		}
		count++
	}
}
