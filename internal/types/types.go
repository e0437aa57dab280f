// Package types defines core identifier types shared across Kestrel.
//
// An ImageID is the content address of a guest program image: the BLAKE3
// hash of the image's base address and instruction words. It is the key
// used by the translation cache and the run report store.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// Size constants for core types.
const (
	ImageIDSize = 32
)

var (
	// ErrInvalidImageID is returned when an image ID has invalid length.
	ErrInvalidImageID = errors.New("invalid image id: must be 32 bytes")
)

// ImageID is the 32-byte BLAKE3 content address of a program image.
type ImageID [ImageIDSize]byte

// ImageIDFromBase58 parses a base58-encoded image ID.
func ImageIDFromBase58(s string) (ImageID, error) {
	var id ImageID
	data, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("base58 decode: %w", err)
	}
	if len(data) != ImageIDSize {
		return id, ErrInvalidImageID
	}
	copy(id[:], data)
	return id, nil
}

// ImageIDFromBytes creates an ImageID from a byte slice.
func ImageIDFromBytes(b []byte) (ImageID, error) {
	var id ImageID
	if len(b) != ImageIDSize {
		return id, ErrInvalidImageID
	}
	copy(id[:], b)
	return id, nil
}

// DeriveImageID hashes a base address and instruction words into an ImageID.
// The hash input is the little-endian base address followed by each word in
// little-endian order, so identical images always derive the same ID.
func DeriveImageID(base uint64, words []uint32) ImageID {
	h := blake3.New()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], base)
	h.Write(buf[:])

	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[:4], w)
		h.Write(buf[:4])
	}

	var id ImageID
	h.Sum(id[:0])
	return id
}

// String returns the base58-encoded representation.
func (id ImageID) String() string {
	return base58.Encode(id[:])
}

// IsZero returns true if the image ID is all zeros.
func (id ImageID) IsZero() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return true
}

// Equals returns true if two image IDs are equal.
func (id ImageID) Equals(other ImageID) bool {
	return id == other
}

// Bytes returns the image ID as a byte slice.
func (id ImageID) Bytes() []byte {
	return id[:]
}

// MarshalText implements encoding.TextMarshaler.
func (id ImageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ImageID) UnmarshalText(text []byte) error {
	parsed, err := ImageIDFromBase58(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
