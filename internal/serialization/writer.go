package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

// GeneratorVersion is recorded in every header this package writes.
const GeneratorVersion = "0.3.0"

// Writer writes a tokenizer to a .tfm file.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new .tfm file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{file: file}, nil
}

// Write writes header and data to the file. See WriteTo.
func (w *Writer) Write(header Header, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	_, err := WriteTo(w.file, header, data)
	return err
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes a .tfm container to writer and returns the header it actually wrote.
//
// FormatVersion and GeneratorVersion are always set; ModelID and CreatedAt are filled in when
// empty. The header is validated before anything is written.
func WriteTo(writer io.Writer, header Header, data []byte) (Header, error) {
	header.FormatVersion = FormatVersion
	header.GeneratorVersion = GeneratorVersion
	if header.ModelID == "" {
		header.ModelID = uuid.NewString()
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	if err := ValidateHeader(&header, ValidationStrict); err != nil {
		return Header{}, fmt.Errorf("invalid header: %w", err)
	}
	if len(data) > MaxDataSize {
		return Header{}, ErrDataTooLarge
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Header{}, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}

	checksum := ComputeChecksum(data)
	fixed := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes
	copy(fixed[0:4], MagicBytes)
	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	// 0x08-0x0B: Flags
	binary.LittleEndian.PutUint32(fixed[8:12], header.flags())
	// 0x0C-0x0F: Reserved
	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	// 0x20-0x3F: SHA-256 checksum
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	headerEnd := int64(FixedHeaderSize) + int64(len(headerJSON))
	padding := make([]byte, dataOffset(int64(len(headerJSON)))-headerEnd)

	for _, part := range [][]byte{fixed, headerJSON, padding, data} {
		if _, err := writer.Write(part); err != nil {
			return Header{}, fmt.Errorf("failed to write container: %w", err)
		}
	}

	return header, nil
}

// WriteFile writes the container to path atomically: it writes a temporary file next to path
// and renames it into place.
func WriteFile(path string, header Header, data []byte) (Header, error) {
	tmp := path + ".tmp"
	w, err := NewWriter(tmp)
	if err != nil {
		return Header{}, err
	}

	written, werr := WriteTo(w.file, header, data)
	if cerr := w.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return Header{}, werr
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Header{}, fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return written, nil
}
