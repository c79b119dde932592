package nbt

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/nbt/mutf8"
)

// Writer is the symmetric counterpart to Reader: it writes a named tag,
// optionally gzip-framed. Close flushes and finalizes the framing; a Writer
// used after Close returns ErrClosed rather than silently truncating its
// output, matching the finalizer-semantics this module requires of every
// compression writer it owns.
type Writer struct {
	w      io.Writer
	gz     *gzip.Writer
	closed bool
}

// NewWriter wraps w. When compressed is set, output is gzip-framed
// (RFC 1952).
func NewWriter(w io.Writer, compressed bool) *Writer {
	wr := &Writer{w: w}
	if compressed {
		wr.gz = gzip.NewWriter(w)
		wr.w = wr.gz
	}
	return wr
}

// WriteNamedTag writes the kind byte, name (when tag is not End), and the
// tag's contents.
func (w *Writer) WriteNamedTag(name string, t Tag) error {
	if w.closed {
		return ErrClosed
	}
	if err := w.writeByte(byte(t.Kind())); err != nil {
		return err
	}
	if t.Kind() != KindEnd {
		if err := w.writeString(name); err != nil {
			return err
		}
	}
	return w.writeContents(t)
}

// Close flushes and finalizes any gzip framing, then marks the Writer
// closed. It is safe to call multiple times.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}

func (w *Writer) writeContents(t Tag) error {
	switch v := t.(type) {
	case End:
		return nil
	case Byte:
		return w.writeByte(byte(v))
	case Short:
		return w.writeUint16(uint16(v))
	case Int:
		return w.writeInt32(int32(v))
	case Long:
		return w.writeInt64(int64(v))
	case Float:
		return w.writeInt32(int32(math.Float32bits(float32(v))))
	case Double:
		return w.writeInt64(int64(math.Float64bits(float64(v))))
	case ByteArray:
		if err := w.writeInt32(int32(len(v))); err != nil {
			return err
		}
		buf := make([]byte, len(v))
		for i, b := range v {
			buf[i] = byte(b)
		}
		return w.writeRaw(buf)
	case String:
		return w.writeString(string(v))
	case List:
		return w.writeList(v)
	case Compound:
		return w.writeCompound(v)
	case IntArray:
		if err := w.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, x := range v {
			if err := w.writeInt32(x); err != nil {
				return err
			}
		}
		return nil
	case LongArray:
		if err := w.writeInt32(int32(len(v))); err != nil {
			return err
		}
		for _, x := range v {
			if err := w.writeInt64(x); err != nil {
				return err
			}
		}
		return nil
	default:
		return anvilerr.New("nbt.writeContents", anvilerr.Malformed, errUnknownKind)
	}
}

func (w *Writer) writeList(l List) error {
	elemKind := l.ElemKind
	if len(l.Elems) == 0 {
		// Per spec, writers emit End for an empty list for maximum
		// compatibility; readers accept either End or Byte.
		elemKind = KindEnd
	}
	if err := w.writeByte(byte(elemKind)); err != nil {
		return err
	}
	if err := w.writeInt32(int32(len(l.Elems))); err != nil {
		return err
	}
	for _, e := range l.Elems {
		if err := w.writeContents(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeCompound(c Compound) error {
	var err error
	c.Range(func(name string, value Tag) bool {
		if err = w.writeByte(byte(value.Kind())); err != nil {
			return false
		}
		if err = w.writeString(name); err != nil {
			return false
		}
		err = w.writeContents(value)
		return err == nil
	})
	if err != nil {
		return err
	}
	return w.writeByte(byte(KindEnd))
}

func (w *Writer) writeString(s string) error {
	enc := mutf8.Encode(s)
	if err := w.writeUint16(uint16(len(enc))); err != nil {
		return err
	}
	return w.writeRaw(enc)
}

func (w *Writer) writeRaw(b []byte) error {
	_, err := w.w.Write(b)
	if err != nil {
		return anvilerr.New("nbt.write", anvilerr.Io, err)
	}
	return nil
}

func (w *Writer) writeByte(b byte) error {
	return w.writeRaw([]byte{b})
}

func (w *Writer) writeUint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return w.writeRaw(b[:])
}

func (w *Writer) writeInt32(v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return w.writeRaw(b[:])
}

func (w *Writer) writeInt64(v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return w.writeRaw(b[:])
}
