// Package segment persists a built index as a single self-describing file:
// a fixed 64-byte header, the JSON-serialized index, and a checksum footer.
package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
)

// Magic is "TIDX" read as a little-endian uint32.
const (
	Magic         uint32 = 0x58444954
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 8
	Extension            = ".tidx"
)

// Header is the fixed-size header written at the start of every index file.
type Header struct {
	Magic         uint32
	Version       uint32
	DocCount      uint32
	TermCount     uint32
	FieldCount    uint32
	CreatedAt     int64
	PayloadOffset int64
	PayloadSize   int64
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.DocCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.TermCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.FieldCount)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.PayloadOffset))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.PayloadSize))
	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		Version:       binary.LittleEndian.Uint32(buf[4:8]),
		DocCount:      binary.LittleEndian.Uint32(buf[8:12]),
		TermCount:     binary.LittleEndian.Uint32(buf[12:16]),
		FieldCount:    binary.LittleEndian.Uint32(buf[16:20]),
		CreatedAt:     int64(binary.LittleEndian.Uint64(buf[24:32])),
		PayloadOffset: int64(binary.LittleEndian.Uint64(buf[32:40])),
		PayloadSize:   int64(binary.LittleEndian.Uint64(buf[40:48])),
	}
}

// Writer writes index files into a directory.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes index files into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write creates a new timestamped index file in the data directory and
// returns its name.
func (w *Writer) Write(idx *index.Index) (string, error) {
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating index directory: %w", err)
	}
	name := fmt.Sprintf("index_%020d%s", time.Now().UnixNano(), Extension)
	if err := WriteFile(filepath.Join(w.dataDir, name), idx); err != nil {
		return "", err
	}
	return name, nil
}

// Retain deletes all but the newest keep index files and returns the names
// it removed.
func (w *Writer) Retain(keep int) ([]string, error) {
	names, err := List(w.dataDir)
	if err != nil {
		return nil, err
	}
	if keep < 1 {
		keep = 1
	}
	if len(names) <= keep {
		return nil, nil
	}
	stale := names[:len(names)-keep]
	for _, name := range stale {
		if err := os.Remove(filepath.Join(w.dataDir, name)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing index file %s: %w", name, err)
		}
	}
	return stale, nil
}

// WriteFile atomically writes idx to path. It writes to a .tmp file first
// and renames on success.
func WriteFile(path string, idx *index.Index) error {
	payload, err := json.Marshal(idx.Serialize())
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	header := Header{
		Magic:         Magic,
		Version:       FormatVersion,
		DocCount:      uint32(idx.DocumentCount()),
		TermCount:     uint32(idx.TermCount()),
		FieldCount:    uint32(len(idx.Fields())),
		CreatedAt:     time.Now().Unix(),
		PayloadOffset: int64(HeaderSize),
		PayloadSize:   int64(len(payload)),
	}
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(footer[4:8], Magic)

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer f.Close()
	for _, part := range [][]byte{header.encode(), payload, footer} {
		if _, err := f.Write(part); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing index file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing index file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// List returns the index file names in dataDir, oldest first.
func List(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), Extension) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Latest returns the path of the newest index file in dataDir, or "" when
// there is none.
func Latest(dataDir string) (string, error) {
	names, err := List(dataDir)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return filepath.Join(dataDir, names[len(names)-1]), nil
}
