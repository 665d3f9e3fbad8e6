package lancaster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
)

// CodecName identifies a container codec as it appears in the
// avro.codec header metadata value.
type CodecName string

const (
	// CodecNull is the identity codec: blocks are stored uncompressed.
	CodecNull CodecName = "null"
	// CodecDeflate compresses blocks with raw DEFLATE.
	CodecDeflate CodecName = "deflate"
	// CodecSnappy compresses blocks with Snappy, trailed by a 4-byte
	// big-endian CRC-32 (IEEE) of the uncompressed block, as used by
	// writers found in the wild beyond the two codecs spec.md names.
	CodecSnappy CodecName = "snappy"
)

// codec knows how to present a block's raw, possibly-compressed bytes as
// a decoded byte stream. wrap is handed a reader limited to exactly the
// block's declared byte length: codecs that can be driven incrementally
// (null, deflate) read straight from it; codecs whose wire framing isn't
// separable from the bare compressed stream (snappy's trailing checksum)
// must materialize the whole block first.
type codec interface {
	wrap(limited io.Reader) (io.Reader, error)
}

func resolveCodec(name CodecName) (codec, error) {
	switch name {
	case "", CodecNull:
		return nullCodec{}, nil
	case CodecDeflate:
		return deflateCodec{}, nil
	case CodecSnappy:
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
	}
}

type nullCodec struct{}

func (nullCodec) wrap(limited io.Reader) (io.Reader, error) {
	return limited, nil
}

type deflateCodec struct{}

func (deflateCodec) wrap(limited io.Reader) (io.Reader, error) {
	return flate.NewReader(limited), nil
}

type snappyCodec struct{}

func (snappyCodec) wrap(limited io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, wrapDecodeErr(err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: snappy block shorter than its checksum trailer", ErrBadEncoding)
	}
	compressed, trailer := data[:len(data)-4], data[len(data)-4:]

	decoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy decode failed: %s", ErrBadEncoding, err)
	}

	wantChecksum := binary.BigEndian.Uint32(trailer)
	if gotChecksum := crc32.ChecksumIEEE(decoded); gotChecksum != wantChecksum {
		return nil, fmt.Errorf("%w: snappy block checksum mismatch: got %08x, want %08x", ErrBadEncoding, gotChecksum, wantChecksum)
	}

	return bytes.NewReader(decoded), nil
}
