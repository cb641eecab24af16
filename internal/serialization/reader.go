package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Reader reads a tokenizer from a .tfm file.
type Reader struct {
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64    // Offset where the data section starts
	dataSize   int64    // Size of the data section
	checksum   [32]byte // SHA-256 of the data section
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// NewReader opens a .tfm file with default options (strict validation, checksum verified).
func NewReader(path string) (*Reader, error) {
	return NewReaderWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// NewReaderWithOptions opens a .tfm file with custom options.
func NewReaderWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r := &Reader{file: file, opts: opts}
	if err := r.open(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) open() error {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r.file, fixed); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	headerSize, err := r.parseFixed(fixed)
	if err != nil {
		return err
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.file, headerBytes); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&r.header, r.opts.ValidationLevel); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	r.dataOffset = dataOffset(headerSize)
	info, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() < r.dataOffset+r.dataSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, r.dataOffset+r.dataSize, info.Size())
	}

	if !r.opts.SkipChecksumValidation {
		computed, err := ComputeChecksumReader(io.NewSectionReader(r.file, r.dataOffset, r.dataSize))
		if err != nil {
			return fmt.Errorf("failed to read data for checksum: %w", err)
		}
		if err := ValidateChecksum(computed, r.checksum); err != nil {
			return err
		}
	}

	return nil
}

// parseFixed decodes the 64-byte fixed header and returns the JSON header size.
func (r *Reader) parseFixed(fixed []byte) (int64, error) {
	// 0x00-0x03: magic
	if string(fixed[0:4]) != MagicBytes {
		return 0, ErrInvalidMagic
	}

	// 0x04-0x07: version
	r.version = binary.LittleEndian.Uint32(fixed[4:8])
	if r.version != FormatVersion {
		return 0, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, r.version, FormatVersion)
	}

	// 0x08-0x0B: flags
	r.flags = binary.LittleEndian.Uint32(fixed[8:12])

	// 0x10-0x17: header size, 0x18-0x1F: data size
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > MaxHeaderSize {
		return 0, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return 0, ErrDataTooLarge
	}
	r.dataSize = int64(dataSize) //nolint:gosec // G115: bounded by MaxDataSize above.

	// 0x20-0x3F: SHA-256 checksum
	copy(r.checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	return int64(headerSize), nil //nolint:gosec // G115: bounded by MaxHeaderSize above.
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// Flags returns the fixed-header flags.
func (r *Reader) Flags() uint32 {
	return r.flags
}

// Checksum returns the stored SHA-256 of the data section.
func (r *Reader) Checksum() [32]byte {
	return r.checksum
}

// Data reads the data section.
func (r *Reader) Data() ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	data := make([]byte, r.dataSize)
	if _, err := r.file.ReadAt(data, r.dataOffset); err != nil {
		return nil, fmt.Errorf("failed to read data section: %w", err)
	}
	return data, nil
}

// Close closes the reader and the underlying file.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// ReadFrom decodes a whole .tfm container from reader.
func ReadFrom(reader io.Reader, opts ReaderOptions) (Header, []byte, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(reader, fixed); err != nil {
		return Header{}, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}

	var r Reader
	headerSize, err := r.parseFixed(fixed)
	if err != nil {
		return Header{}, nil, err
	}

	rest := make([]byte, dataOffset(headerSize)-FixedHeaderSize+r.dataSize)
	if _, err := io.ReadFull(reader, rest); err != nil {
		return Header{}, nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}

	var header Header
	if err := json.Unmarshal(rest[:headerSize], &header); err != nil {
		return Header{}, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&header, opts.ValidationLevel); err != nil {
		return Header{}, nil, fmt.Errorf("validation failed: %w", err)
	}

	data := rest[len(rest)-int(r.dataSize):]
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), r.checksum); err != nil {
			return Header{}, nil, err
		}
	}

	return header, data, nil
}
