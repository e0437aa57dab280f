// Package image defines the guest program image format.
//
// An image is an ordered sequence of instruction words plus the guest
// address they load at. Images are what the driver feeds into the guest
// environment's code region before a run. The on-disk format is a small
// little-endian header followed by the words; files with a .zst suffix
// are zstd-compressed.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/kestrelvm/kestrel/internal/types"
)

// File format constants.
const (
	// Magic identifies an image file.
	Magic = uint32(0x474D494B) // "KIMG", little-endian

	// Version is the current format version.
	Version = uint16(1)

	headerSize = 4 + 2 + 2 + 8 + 4 // magic, version, reserved, base, count
)

var (
	// ErrBadMagic is returned when a file is not an image file.
	ErrBadMagic = errors.New("not an image file")

	// ErrBadVersion is returned for an unsupported format version.
	ErrBadVersion = errors.New("unsupported image version")

	// ErrTruncated is returned when an image file is shorter than its
	// header claims.
	ErrTruncated = errors.New("truncated image file")

	// ErrEmptyImage is returned for an image with no instruction words.
	ErrEmptyImage = errors.New("image has no instruction words")

	// ErrDecompressionFailed is returned when zstd decompression fails.
	ErrDecompressionFailed = errors.New("decompression failed")
)

// Image is a guest program: instruction words and their load address.
type Image struct {
	// Base is the guest address of the first word.
	Base uint64

	// Words is the instruction stream, one 32-bit word per instruction.
	Words []uint32
}

// New builds an image from a base address and words.
func New(base uint64, words []uint32) (*Image, error) {
	if len(words) == 0 {
		return nil, ErrEmptyImage
	}
	return &Image{Base: base, Words: words}, nil
}

// ID returns the image's content address.
func (img *Image) ID() types.ImageID {
	return types.DeriveImageID(img.Base, img.Words)
}

// Encode serializes the image.
func (img *Image) Encode() []byte {
	buf := make([]byte, headerSize+4*len(img.Words))
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint16(buf[4:], Version)
	binary.LittleEndian.PutUint64(buf[8:], img.Base)
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(img.Words)))
	for i, w := range img.Words {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], w)
	}
	return buf
}

// Decode parses a serialized image.
func Decode(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint32(data[0:]) != Magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	base := binary.LittleEndian.Uint64(data[8:])
	count := binary.LittleEndian.Uint32(data[16:])
	if count == 0 {
		return nil, ErrEmptyImage
	}
	if uint64(len(data)-headerSize) < 4*uint64(count) {
		return nil, ErrTruncated
	}

	words := make([]uint32, count)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[headerSize+4*i:])
	}
	return &Image{Base: base, Words: words}, nil
}

// Load reads an image file. Files ending in .zst are decompressed first.
func Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
		}
		defer decoder.Close()
		reader = decoder
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return Decode(data)
}

// Save writes an image file. Paths ending in .zst are compressed.
func (img *Image) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file
	var encoder *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		encoder, err = zstd.NewWriter(file)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		writer = encoder
	}

	if _, err := writer.Write(img.Encode()); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	if encoder != nil {
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("flush image: %w", err)
		}
	}
	return nil
}
