// Package runlog provides persistent storage for run reports.
//
// A run report is the driver-visible outcome of one guest execution:
// final registers, ticks consumed, the self-modification flag, and the
// interrupt log. Reports are keyed by the program's image ID plus a
// per-image sequence number, so repeated runs of the same image can be
// compared for regressions. Guest memory contents are deliberately not
// stored; only outcomes persist across runs.
package runlog

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/kestrelvm/kestrel/internal/types"
	"github.com/kestrelvm/kestrel/pkg/guest"
)

var (
	// ErrReportNotFound is returned when a report doesn't exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("runlog closed")
)

// Bucket names for BoltDB.
var (
	// bucketReports stores compressed reports keyed by image ID + sequence.
	bucketReports = []byte("reports")

	// bucketSequence stores the next sequence number per image ID.
	bucketSequence = []byte("sequence")
)

// Config holds run log configuration options.
type Config struct {
	// Path is the file path for the run log database.
	Path string

	// NoSync disables fsync after each write (faster but less durable).
	NoSync bool

	// ReadOnly opens the database in read-only mode.
	ReadOnly bool
}

// DefaultConfig returns the default run log configuration.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// Report is the recorded outcome of one guest execution.
type Report struct {
	// ImageID identifies the program that ran.
	ImageID types.ImageID

	// Seq is the per-image run sequence number, assigned by Put.
	Seq uint64

	// When is the wall-clock time the report was recorded.
	When time.Time

	// Regs is the final general-purpose register file (X0-X30).
	Regs [31]uint64

	// PC is the final program counter.
	PC uint64

	// TicksConsumed is the number of ticks the run consumed.
	TicksConsumed uint64

	// TicksRemaining is the budget left when the run stopped.
	TicksRemaining uint64

	// CodeModified reports whether the guest wrote into its own code.
	CodeModified bool

	// Events is the interrupt log of the run.
	Events []guest.Event
}

// Store persists run reports in a BoltDB file.
type Store struct {
	db     *bolt.DB
	config Config

	enc *zstd.Encoder
	dec *zstd.Decoder

	closed bool
}

// Open creates or opens a run log at the configured path.
func Open(config Config) (*Store, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	opts := &bolt.Options{
		Timeout:  5 * time.Second,
		NoSync:   config.NoSync,
		ReadOnly: config.ReadOnly,
	}
	db, err := bolt.Open(config.Path, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if !config.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			for _, name := range [][]byte{bucketReports, bucketSequence} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create buckets: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &Store{db: db, config: config, enc: enc, dec: dec}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// reportKey builds the composite key: image ID + big-endian sequence, so
// a cursor walks runs of one image in order.
func reportKey(id types.ImageID, seq uint64) []byte {
	key := make([]byte, types.ImageIDSize+8)
	copy(key, id[:])
	binary.BigEndian.PutUint64(key[types.ImageIDSize:], seq)
	return key
}

// Put records a report, assigning and returning its sequence number.
func (s *Store) Put(report *Report) (uint64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if report.When.IsZero() {
		report.When = time.Now().UTC()
	}

	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		seqs := tx.Bucket(bucketSequence)

		seq = 0
		if raw := seqs.Get(report.ImageID[:]); raw != nil {
			seq = binary.BigEndian.Uint64(raw)
		}
		report.Seq = seq

		var next [8]byte
		binary.BigEndian.PutUint64(next[:], seq+1)
		if err := seqs.Put(report.ImageID[:], next[:]); err != nil {
			return err
		}

		payload, err := s.encode(report)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketReports).Put(reportKey(report.ImageID, seq), payload)
	})
	if err != nil {
		return 0, fmt.Errorf("put report: %w", err)
	}
	return seq, nil
}

// Get returns one report by image ID and sequence number.
func (s *Store) Get(id types.ImageID, seq uint64) (*Report, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var report *Report
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketReports).Get(reportKey(id, seq))
		if raw == nil {
			return ErrReportNotFound
		}
		var err error
		report, err = s.decode(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// List returns all reports for an image, in run order.
func (s *Store) List(id types.ImageID) ([]*Report, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var reports []*Report
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketReports).Cursor()
		for k, v := c.Seek(id[:]); k != nil && bytes.HasPrefix(k, id[:]); k, v = c.Next() {
			report, err := s.decode(v)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Count returns the number of reports recorded for an image.
func (s *Store) Count(id types.ImageID) (uint64, error) {
	if s.closed {
		return 0, ErrClosed
	}

	var count uint64
	err := s.db.View(func(tx *bolt.Tx) error {
		if raw := tx.Bucket(bucketSequence).Get(id[:]); raw != nil {
			count = binary.BigEndian.Uint64(raw)
		}
		return nil
	})
	return count, err
}

// encode gob-serializes and compresses a report.
func (s *Store) encode(report *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(report); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return s.enc.EncodeAll(buf.Bytes(), nil), nil
}

// decode decompresses and gob-deserializes a report.
func (s *Store) decode(raw []byte) (*Report, error) {
	data, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	var report Report
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}
