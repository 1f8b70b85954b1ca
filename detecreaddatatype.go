package pgsbuilder

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZlib:  {0x78, 0x9c},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType compares the leading bytes of a stream against a set of
// known compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
	for dt, sig := range byteCodeSigs {
		if len(head) >= len(sig) && bytes.Equal(head[:len(sig)], sig) {
			return dt
		}
	}

	return DataTypeNoCompression
}

// MaybeDecompressReadCloser wraps rc with a decompressor when its leading bytes
// look compressed. It only peeks, so it works for streams that cannot seek
// (such as Google Storage readers). Closing the result closes rc.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)

	// Peek returns fewer bytes with io.EOF for tiny files; that is fine.
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var r io.Reader
	switch DetectDataType(head) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		r = gz
	case DataTypeZip:
		zr := zipstream.NewReader(br)
		// Only the first member of an archive is read.
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		xzr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
		r = xzr
	case DataTypeZlib:
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, err
		}
		r = zr
	default:
		// No data type detected. For now, we assume this is uncompressed.
		r = br
	}

	return &readCloser{Reader: r, closer: rc}, nil
}

// readCloser pairs a (possibly decompressing) reader with the Close of the
// underlying source.
type readCloser struct {
	io.Reader
	closer io.Closer
}

func (c *readCloser) Close() error {
	return c.closer.Close()
}
