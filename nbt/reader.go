package nbt

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"math"

	"github.com/go-mclib/anvil/anvilerr"
	"github.com/go-mclib/anvil/nbt/mutf8"
)

// DefaultMaxDepth is the default nesting cap for Compound/List recursion, a
// defense-in-depth limit against stack exhaustion on adversarial input, not
// a spec-meaningful limit.
const DefaultMaxDepth = 512

// Reader is a framed consumer over a byte stream, optionally gzip-wrapped.
type Reader struct {
	r        io.Reader
	gz       *gzip.Reader
	maxDepth int
}

// ReaderOption configures a Reader constructed by NewReader.
type ReaderOption func(*Reader)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) ReaderOption {
	return func(r *Reader) { r.maxDepth = n }
}

// NewReader wraps r. When compressed is set the stream is assumed to be
// gzip-framed (RFC 1952) at the outer layer and is decompressed transparently.
func NewReader(r io.Reader, compressed bool, opts ...ReaderOption) (*Reader, error) {
	rd := &Reader{r: r, maxDepth: DefaultMaxDepth}
	if compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, anvilerr.New("nbt.NewReader", anvilerr.Io, err)
		}
		rd.gz = gz
		rd.r = gz
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd, nil
}

// ReadNamedTag reads one named tag: a kind byte, a modified-UTF-8 name (when
// kind is not End), and the kind's contents. Kind End with no further data
// is returned as (\"\", End{}, nil) for callers that read a Compound's
// children directly; most callers only ever see this at end-of-document via
// io.EOF on the kind byte itself.
func (r *Reader) ReadNamedTag() (string, Tag, error) {
	kind, err := r.readKindByte()
	if err != nil {
		return "", nil, err
	}
	if kind == KindEnd {
		return "", End{}, nil
	}
	name, err := r.readString()
	if err != nil {
		return "", nil, err
	}
	val, err := r.readContents(kind, 0)
	if err != nil {
		return "", nil, err
	}
	return name, val, nil
}

// readKindByte reads the one-byte tag discriminant. Unlike the rest of the
// reader, an EOF here is reported verbatim (not wrapped as malformed) since
// it signals "no more documents" to a caller looping over a stream.
func (r *Reader) readKindByte() (Kind, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, r.truncated("read tag kind", err)
	}
	return Kind(b[0]), nil
}

func (r *Reader) readContents(kind Kind, depth int) (Tag, error) {
	if depth > r.maxDepth {
		return nil, anvilerr.New("nbt.readContents", anvilerr.Malformed, errNestingTooDeep)
	}
	switch kind {
	case KindEnd:
		return End{}, nil
	case KindByte:
		b, err := r.readByte()
		return Byte(b), err
	case KindShort:
		v, err := r.readInt16()
		return Short(v), err
	case KindInt:
		v, err := r.readInt32()
		return Int(v), err
	case KindLong:
		v, err := r.readInt64()
		return Long(v), err
	case KindFloat:
		v, err := r.readInt32()
		return Float(math.Float32frombits(uint32(v))), err
	case KindDouble:
		v, err := r.readInt64()
		return Double(math.Float64frombits(uint64(v))), err
	case KindByteArray:
		return r.readByteArray()
	case KindString:
		s, err := r.readString()
		return String(s), err
	case KindList:
		return r.readList(depth)
	case KindCompound:
		return r.readCompound(depth)
	case KindIntArray:
		return r.readIntArray()
	case KindLongArray:
		return r.readLongArray()
	default:
		return nil, anvilerr.New("nbt.readContents", anvilerr.Malformed, errUnknownKind)
	}
}

func (r *Reader) readList(depth int) (Tag, error) {
	elemKindByte, err := r.readByte()
	if err != nil {
		return nil, err
	}
	elemKind := Kind(elemKindByte)
	n, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, anvilerr.New("nbt.readList", anvilerr.Malformed, errNegativeLength)
	}
	var elems []Tag
	if n > 0 {
		elems = make([]Tag, n)
	}
	for i := range elems {
		elems[i], err = r.readContents(elemKind, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return List{ElemKind: elemKind, Elems: elems}, nil
}

func (r *Reader) readCompound(depth int) (Tag, error) {
	c := NewCompound()
	for {
		kind, err := r.readKindByte()
		if err != nil {
			if err == io.EOF {
				return nil, r.truncated("read compound entry", io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if kind == KindEnd {
			return c, nil
		}
		name, err := r.readString()
		if err != nil {
			return nil, err
		}
		val, err := r.readContents(kind, depth+1)
		if err != nil {
			return nil, err
		}
		c.Set(name, val)
	}
}

func (r *Reader) readByteArray() (Tag, error) {
	n, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, anvilerr.New("nbt.readByteArray", anvilerr.Malformed, errNegativeLength)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, r.truncated("read byte array", err)
	}
	out := make(ByteArray, n)
	for i, b := range buf {
		out[i] = int8(b)
	}
	return out, nil
}

func (r *Reader) readIntArray() (Tag, error) {
	n, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, anvilerr.New("nbt.readIntArray", anvilerr.Malformed, errNegativeLength)
	}
	out := make(IntArray, n)
	for i := range out {
		v, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Reader) readLongArray() (Tag, error) {
	n, err := r.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, anvilerr.New("nbt.readLongArray", anvilerr.Malformed, errNegativeLength)
	}
	out := make(LongArray, n)
	for i := range out {
		v, err := r.readInt64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Reader) readString() (string, error) {
	length, err := r.readUint16()
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", r.truncated("read string", err)
	}
	s, err := mutf8.Decode(buf)
	if err != nil {
		return "", anvilerr.New("nbt.readString", anvilerr.Encoding, err)
	}
	return s, nil
}

func (r *Reader) readByte() (int8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, r.truncated("read byte", err)
	}
	return int8(b[0]), nil
}

func (r *Reader) readUint16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, r.truncated("read uint16", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (r *Reader) readInt16() (int16, error) {
	v, err := r.readUint16()
	return int16(v), err
}

func (r *Reader) readInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, r.truncated("read int32", err)
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (r *Reader) readInt64() (int64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, r.truncated("read int64", err)
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

func (r *Reader) truncated(op string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return anvilerr.New("nbt."+op, anvilerr.Malformed, err)
}
