package numtrie

import (
	"bytes"
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/numtrie/blobstore"
	"github.com/hupe1980/numtrie/index"
	"github.com/hupe1980/numtrie/internal/resource"
)

// Compression selects the snapshot payload compression scheme.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionS2
	CompressionZstd
	CompressionLZ4
)

var snapshotMagic = [4]byte{'N', 'T', 'S', '1'}

const snapshotFormatVersion = uint16(1)

// Snapshot layout:
//
//	magic "NTS1" | version u16 | scheme u8 | compressed payload | xxhash64 of compressed payload
//
// The payload holds the step configuration, the sealed term index and the
// stored sort values.

// SaveSnapshot writes the sealed store to a blob. The write streams
// through the resource controller, so snapshot IO respects the configured
// bandwidth limit and job slots.
func (s *Store) SaveSnapshot(ctx context.Context, bs blobstore.Store, name string) error {
	n, err := s.saveSnapshot(ctx, bs, name)
	s.logger.LogSnapshot(ctx, "save", name, n, err)
	return err
}

func (s *Store) saveSnapshot(ctx context.Context, bs blobstore.Store, name string) (int64, error) {
	if !s.IsSealed() {
		return 0, ErrNotSealed
	}

	if err := s.rc.AcquireJob(ctx); err != nil {
		return 0, err
	}
	defer s.rc.ReleaseJob()

	var payload bytes.Buffer
	if err := s.writePayload(&payload); err != nil {
		return 0, err
	}

	// The payload buffer is the dominant transient allocation; account for
	// it so concurrent snapshot jobs respect the memory limit.
	payloadLen := int64(payload.Len())
	if err := s.rc.AcquireMemory(payloadLen); err != nil {
		return 0, err
	}
	defer s.rc.ReleaseMemory(payloadLen)

	compressed, err := compress(payload.Bytes(), s.opts.compression)
	if err != nil {
		return 0, err
	}

	wb, err := bs.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	w := resource.NewLimitedWriter(ctx, wb, s.rc)

	header := make([]byte, 0, 7)
	header = append(header, snapshotMagic[:]...)
	header = binary.BigEndian.AppendUint16(header, snapshotFormatVersion)
	header = append(header, byte(s.opts.compression))

	var written int64
	for _, chunk := range [][]byte{header, compressed, binary.BigEndian.AppendUint64(nil, xxhash.Sum64(compressed))} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			_ = wb.Close()
			return written, err
		}
	}

	return written, wb.Close()
}

// LoadSnapshot reads a snapshot back into a sealed store. Options apply to
// the returned store; step configuration comes from the snapshot itself.
func LoadSnapshot(ctx context.Context, bs blobstore.Store, name string, optFns ...Option) (*Store, error) {
	s := New(optFns...)

	blob, err := bs.Open(ctx, name)
	if err != nil {
		s.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}
	defer func() { _ = blob.Close() }()

	r := resource.NewLimitedReader(ctx, io.NewSectionReader(blob, 0, blob.Size()), s.rc)
	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}

	if err := s.rc.AcquireMemory(int64(len(data))); err != nil {
		s.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}
	defer s.rc.ReleaseMemory(int64(len(data)))

	if err := s.readSnapshot(data); err != nil {
		s.logger.LogSnapshot(ctx, "load", name, 0, err)
		return nil, err
	}

	s.logger.LogSnapshot(ctx, "load", name, blob.Size(), nil)
	return s, nil
}

func (s *Store) readSnapshot(data []byte) error {
	if len(data) < 7+8 {
		return fmt.Errorf("%w: truncated snapshot", ErrSnapshotCorrupt)
	}
	if !bytes.Equal(data[:4], snapshotMagic[:]) {
		return fmt.Errorf("%w: bad magic", ErrSnapshotCorrupt)
	}
	if v := binary.BigEndian.Uint16(data[4:6]); v != snapshotFormatVersion {
		return &ErrSnapshotVersion{Version: v}
	}
	scheme := Compression(data[6])

	compressed := data[7 : len(data)-8]
	sum := binary.BigEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(compressed) != sum {
		return fmt.Errorf("%w: checksum mismatch", ErrSnapshotCorrupt)
	}

	payload, err := decompress(compressed, scheme)
	if err != nil {
		return err
	}

	return s.readPayload(bytes.NewReader(payload))
}

func (s *Store) writePayload(w io.Writer) error {
	// Step configuration.
	if err := writeU16(w, uint16(s.opts.defaultStep)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(s.opts.fieldSteps))); err != nil {
		return err
	}
	for _, field := range sortedKeys(s.opts.fieldSteps) {
		if err := writeString(w, field); err != nil {
			return err
		}
		if err := writeU16(w, uint16(s.opts.fieldSteps[field])); err != nil {
			return err
		}
	}

	// Term index.
	if _, err := s.idx.WriteTo(w); err != nil {
		return err
	}

	// Stored sort values.
	if err := writeU32(w, uint32(len(s.values))); err != nil {
		return err
	}
	for _, field := range sortedKeys(s.values) {
		vals := s.values[field]
		if err := writeString(w, field); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(vals))); err != nil {
			return err
		}
		for _, doc := range sortedKeys(vals) {
			if err := writeU32(w, doc); err != nil {
				return err
			}
			if err := writeU64(w, uint64(vals[doc])); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Store) readPayload(r io.Reader) error {
	defaultStep, err := readU16(r)
	if err != nil {
		return err
	}
	s.opts.defaultStep = uint(defaultStep)

	numSteps, err := readU32(r)
	if err != nil {
		return err
	}
	s.opts.fieldSteps = make(map[string]uint, numSteps)
	for range numSteps {
		field, err := readString(r)
		if err != nil {
			return err
		}
		step, err := readU16(r)
		if err != nil {
			return err
		}
		s.opts.fieldSteps[field] = uint(step)
	}

	idx, err := index.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	s.idx = idx

	numFields, err := readU32(r)
	if err != nil {
		return err
	}
	s.values = make(map[string]map[uint32]int64, numFields)
	for range numFields {
		field, err := readString(r)
		if err != nil {
			return err
		}
		count, err := readU32(r)
		if err != nil {
			return err
		}
		vals := make(map[uint32]int64, count)
		for range count {
			doc, err := readU32(r)
			if err != nil {
				return err
			}
			v, err := readU64(r)
			if err != nil {
				return err
			}
			vals[doc] = int64(v)
		}
		s.values[field] = vals
	}

	s.sealed = true
	return nil
}

func compress(payload []byte, scheme Compression) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return payload, nil
	case CompressionS2:
		return s2.Encode(nil, payload), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		out := enc.EncodeAll(payload, nil)
		return out, enc.Close()
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, &ErrUnknownCompression{Scheme: byte(scheme)}
	}
}

func decompress(compressed []byte, scheme Compression) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return compressed, nil
	case CompressionS2:
		out, err := s2.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
		}
		return out, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
		}
		return out, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
		}
		return out, nil
	default:
		return nil, &ErrUnknownCompression{Scheme: byte(scheme)}
	}
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("field name too long: %d bytes", len(s))
	}
	if err := writeU16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeU16(w io.Writer, v uint16) error {
	_, err := w.Write(binary.BigEndian.AppendUint16(nil, v))
	return err
}

func writeU32(w io.Writer, v uint32) error {
	_, err := w.Write(binary.BigEndian.AppendUint32(nil, v))
	return err
}

func writeU64(w io.Writer, v uint64) error {
	_, err := w.Write(binary.BigEndian.AppendUint64(nil, v))
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
