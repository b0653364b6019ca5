package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// ReadHeader reads and validates only the header of an index file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, fmt.Errorf("%w: reading header of %s: %v", apperrors.ErrCorrupt, path, err)
	}
	h := decodeHeader(buf)
	if err := h.validate(); err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

func (h Header) validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorrupt, h.Magic)
	}
	if h.Version != FormatVersion {
		return apperrors.Configuration("unsupported index file version %d", h.Version)
	}
	if h.PayloadOffset != int64(HeaderSize) || h.PayloadSize < 0 {
		return fmt.Errorf("%w: payload at %d size %d", apperrors.ErrCorrupt, h.PayloadOffset, h.PayloadSize)
	}
	return nil
}

// Open reads an index file, verifies its checksum and rehydrates the index
// against reg.
func Open(path string, reg *pipeline.Registry) (*index.Index, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("reading index file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, Header{}, fmt.Errorf("%w: %s is truncated (%d bytes)", apperrors.ErrCorrupt, path, len(data))
	}
	h := decodeHeader(data[:HeaderSize])
	if err := h.validate(); err != nil {
		return nil, Header{}, fmt.Errorf("%s: %w", path, err)
	}
	end := h.PayloadOffset + h.PayloadSize
	if end+int64(FooterSize) != int64(len(data)) {
		return nil, Header{}, fmt.Errorf("%w: %s payload size %d does not match file size %d",
			apperrors.ErrCorrupt, path, h.PayloadSize, len(data))
	}
	payload := data[h.PayloadOffset:end]
	footer := data[end:]
	if binary.LittleEndian.Uint32(footer[4:8]) != Magic {
		return nil, Header{}, fmt.Errorf("%w: %s has a bad footer", apperrors.ErrCorrupt, path)
	}
	if want, got := binary.LittleEndian.Uint32(footer[0:4]), crc32.ChecksumIEEE(payload); want != got {
		return nil, Header{}, fmt.Errorf("%w: %s checksum mismatch (want %08x, got %08x)",
			apperrors.ErrCorrupt, path, want, got)
	}
	idx, err := index.Unmarshal(payload, reg)
	if err != nil {
		return nil, Header{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return idx, h, nil
}
