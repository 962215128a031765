package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

var indexMagic = [4]byte{'N', 'T', 'I', '1'}

const indexFormatVersion = uint16(1)

// ErrCorrupt is returned when serialized index data fails validation.
var ErrCorrupt = errors.New("corrupt index data")

// WriteTo serializes a sealed index.
//
// Layout: magic, version, field count, then per field the name and its
// levels; per level the shift, the sorted key column and one length-prefixed
// roaring bitmap per key.
func (ti *TermIndex) WriteTo(w io.Writer) (int64, error) {
	if !ti.IsSealed() {
		return 0, ErrNotSealed
	}

	cw := &countingWriter{w: bufio.NewWriter(w)}

	if _, err := cw.Write(indexMagic[:]); err != nil {
		return cw.n, err
	}
	if err := writeU16(cw, indexFormatVersion); err != nil {
		return cw.n, err
	}

	names := ti.Fields()
	if err := writeU32(cw, uint32(len(names))); err != nil {
		return cw.n, err
	}

	for _, name := range names {
		if len(name) > math.MaxUint16 {
			return cw.n, fmt.Errorf("field name too long: %d bytes", len(name))
		}
		if err := writeU16(cw, uint16(len(name))); err != nil {
			return cw.n, err
		}
		if _, err := io.WriteString(cw, name); err != nil {
			return cw.n, err
		}

		f := ti.fields[name]
		shifts := make([]uint, 0, len(f.levels))
		for shift := range f.levels {
			shifts = append(shifts, shift)
		}
		slices.Sort(shifts)

		if err := writeU32(cw, uint32(len(shifts))); err != nil {
			return cw.n, err
		}
		for _, shift := range shifts {
			lvl := f.levels[shift]
			if err := writeLevel(cw, shift, lvl); err != nil {
				return cw.n, err
			}
		}
	}

	return cw.n, cw.w.(*bufio.Writer).Flush()
}

func writeLevel(w io.Writer, shift uint, lvl *termLevel) error {
	if _, err := w.Write([]byte{byte(shift)}); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(lvl.keys))); err != nil {
		return err
	}
	var buf [8]byte
	for _, k := range lvl.keys {
		binary.BigEndian.PutUint64(buf[:], k)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	for _, p := range lvl.postings {
		size := p.rb.GetSerializedSizeInBytes()
		if err := writeU32(w, uint32(size)); err != nil {
			return err
		}
		if _, err := p.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrom deserializes an index written by WriteTo. The result is sealed.
func ReadFrom(r io.Reader) (*TermIndex, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, magic[:])
	}

	version, err := readU16(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if version != indexFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, version)
	}

	fieldCount, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	ti := New()
	for i := uint32(0); i < fieldCount; i++ {
		nameLen, err := readU16(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		levelCount, err := readU32(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		f := &termField{levels: make(map[uint]*termLevel, levelCount)}
		ti.fields[string(name)] = f

		for j := uint32(0); j < levelCount; j++ {
			shift, lvl, err := readLevel(br)
			if err != nil {
				return nil, err
			}
			if _, dup := f.levels[shift]; dup {
				return nil, fmt.Errorf("%w: duplicate level %d for field %q", ErrCorrupt, shift, name)
			}
			f.levels[shift] = lvl
		}
	}

	ti.sealed = true
	return ti, nil
}

func readLevel(r io.Reader) (uint, *termLevel, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	shift := uint(b[0])
	if shift >= 64 {
		return 0, nil, fmt.Errorf("%w: shift %d out of range", ErrCorrupt, shift)
	}

	keyCount, err := readU32(r)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	lvl := &termLevel{
		keys:     make([]uint64, keyCount),
		postings: make([]*Bitmap, keyCount),
	}

	var buf [8]byte
	var prev uint64
	for i := range lvl.keys {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		k := binary.BigEndian.Uint64(buf[:])
		if i > 0 && k <= prev {
			return 0, nil, fmt.Errorf("%w: key column not strictly ascending", ErrCorrupt)
		}
		lvl.keys[i] = k
		prev = k
	}

	for i := range lvl.postings {
		size, err := readU32(r)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		p := NewBitmap()
		if _, err := p.ReadFrom(io.LimitReader(r, int64(size))); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		lvl.postings[i] = p
	}

	return shift, lvl, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func writeU16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
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
