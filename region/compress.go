package region

import (
	"bytes"
	"io"

	kgzip "github.com/klauspost/compress/gzip"
	kzlib "github.com/klauspost/compress/zlib"

	"github.com/go-mclib/anvil/anvilerr"
)

const (
	compressionGzip = 1
	compressionZlib = 2
)

// compressColumn zlib-compresses (RFC 1950) raw using klauspost/compress's
// faster reimplementation; the region writer always emits compression type 2.
func compressColumn(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := kzlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, anvilerr.New("region.compressColumn", anvilerr.Io, err)
	}
	if err := w.Close(); err != nil {
		return nil, anvilerr.New("region.compressColumn", anvilerr.Io, err)
	}
	return buf.Bytes(), nil
}

// decompressColumn reverses compressColumn (or its gzip counterpart, which
// readers must also accept) per the compression type byte read from the
// chunk payload header.
func decompressColumn(compressionType byte, data []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch compressionType {
	case compressionGzip:
		r, err = kgzip.NewReader(bytes.NewReader(data))
	case compressionZlib:
		r, err = kzlib.NewReader(bytes.NewReader(data))
	default:
		return nil, anvilerr.New("region.decompressColumn", anvilerr.Malformed, errBadCompression)
	}
	if err != nil {
		return nil, anvilerr.New("region.decompressColumn", anvilerr.Malformed, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, anvilerr.New("region.decompressColumn", anvilerr.Malformed, err)
	}
	return out, nil
}
