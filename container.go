package lancaster

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"golang.org/x/exp/slices"
)

const syncMarkerSize = 16

var magicBytes = [4]byte{'O', 'b', 'j', 0x01}

// Decoder reads objects out of an Avro object container file: a header
// (magic, metadata, sync marker) followed by a sequence of blocks, each
// holding a run of objects encoded per the container's schema and
// optionally compressed per its codec.
//
// A Decoder owns a single raw reader slot that moves between two
// states: between blocks (raw bytes straight off the underlying
// io.Reader) and inside a block (bytes passed through an io.LimitedReader
// bounded by the block's declared byte length, and through the codec's
// decompressor). Only beginBlock and endBlock touch the raw slot
// directly; Next only ever reads through the current block reader. This
// mirrors, in Go terms, a state machine that would hand a single owned
// reader back and forth between "raw" and "in block" halves.
type Decoder struct {
	src io.Reader // original reader passed to Open, for Close
	raw *bufio.Reader

	schema   *Schema
	metadata map[string]string
	codec    codec
	sync     [syncMarkerSize]byte

	inBlock       bool
	blockReader   byteReader
	limited       *io.LimitedReader
	remainingObjs int64
}

// Open reads and validates a container's header from r, compiling the
// embedded schema and resolving its codec, and returns a Decoder
// positioned at the first data block.
func Open(r io.Reader) (*Decoder, error) {
	raw := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(raw, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %s", ErrInvalidFormat, err)
	}
	if magic != magicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %q", ErrInvalidFormat, magic)
	}

	metadata, err := readMetadata(raw)
	if err != nil {
		return nil, err
	}

	schemaText, ok := metadata["avro.schema"]
	if !ok {
		return nil, fmt.Errorf("%w: header metadata missing \"avro.schema\"", ErrInvalidFormat)
	}
	schema, err := Compile(schemaText)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling avro.schema: %w", ErrInvalidFormat, err)
	}

	codecName := CodecName(metadata["avro.codec"])
	resolved, err := resolveCodec(codecName)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		src:      r,
		raw:      raw,
		schema:   schema,
		metadata: metadata,
		codec:    resolved,
	}
	if _, err := io.ReadFull(raw, d.sync[:]); err != nil {
		return nil, fmt.Errorf("%w: reading sync marker: %s", ErrInvalidFormat, err)
	}

	return d, nil
}

// readMetadata reads the block-count-encoded map of string to bytes that
// makes up the container header's metadata, validating every value as
// UTF-8 (the container format stores metadata values as raw bytes, but
// the well-known avro.schema / avro.codec entries are always text).
func readMetadata(r byteReader) (map[string]string, error) {
	metadata := make(map[string]string)
	for {
		count, err := readBlockCount(r)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return metadata, nil
		}
		for i := int64(0); i < count; i++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			value, err := readString(r)
			if err != nil {
				return nil, err
			}
			metadata[key] = value
		}
	}
}

// Schema returns the schema compiled from the container's header.
func (d *Decoder) Schema() *Schema {
	return d.schema
}

// Metadata returns the container header's metadata map, excluding
// neither avro.schema nor avro.codec.
func (d *Decoder) Metadata() map[string]string {
	return d.metadata
}

// MetadataKeys returns the container header's metadata keys in sorted
// order, for deterministic presentation (the metadata map itself makes
// no ordering guarantee).
func (d *Decoder) MetadataKeys() []string {
	keys := make([]string, 0, len(d.metadata))
	for k := range d.metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Next decodes and returns the next object in the container, advancing
// into a new block as needed. It returns io.EOF once every block has
// been consumed; any other error leaves the Decoder unfit for further
// use.
func (d *Decoder) Next() (interface{}, error) {
	for d.remainingObjs == 0 {
		if d.inBlock {
			if err := d.endBlock(); err != nil {
				return nil, err
			}
		}
		ok, err := d.beginBlock()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
	}

	v, err := decodeValue(d.schema.root, d.blockReader, d.schema.registry)
	if err != nil {
		return nil, err
	}
	d.remainingObjs--
	return v, nil
}

// beginBlock reads the object-count/byte-length pair introducing the
// next block and, if one is present, wraps the raw reader in an
// io.LimitedReader (plus the container's codec) for the duration of the
// block. A clean io.EOF here means the raw reader is exhausted right at
// a block boundary: normal, successful termination.
func (d *Decoder) beginBlock() (bool, error) {
	count, err := readLong(d.raw)
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("%w: reading block object count: %s", ErrBadEncoding, err)
	}
	if count < 0 {
		return false, fmt.Errorf("%w: negative block object count %d", ErrBadEncoding, count)
	}
	if count == 0 {
		return false, nil
	}

	blockLen, err := readLong(d.raw)
	if err != nil {
		return false, fmt.Errorf("%w: reading block byte length: %s", ErrBadEncoding, wrapDecodeErr(err))
	}
	if blockLen < 0 {
		return false, fmt.Errorf("%w: negative block byte length %d", ErrBadEncoding, blockLen)
	}

	limited := &io.LimitedReader{R: d.raw, N: blockLen}
	wrapped, err := d.codec.wrap(limited)
	if err != nil {
		return false, err
	}

	br, ok := wrapped.(byteReader)
	if !ok {
		br = bufio.NewReader(wrapped)
	}

	d.limited = limited
	d.blockReader = br
	d.inBlock = true
	d.remainingObjs = count
	return true, nil
}

// endBlock drains whatever the block's codec left unread (deflate, for
// instance, may stop short of the declared byte length once its
// internal stream ends) and verifies the sync marker that follows every
// block.
func (d *Decoder) endBlock() error {
	if d.limited.N > 0 {
		if _, err := io.CopyN(io.Discard, d.limited.R, d.limited.N); err != nil {
			return fmt.Errorf("%w: draining block padding: %s", ErrBadEncoding, wrapDecodeErr(err))
		}
	}

	var marker [syncMarkerSize]byte
	if _, err := io.ReadFull(d.raw, marker[:]); err != nil {
		return fmt.Errorf("%w: reading sync marker: %s", ErrBadEncoding, wrapDecodeErr(err))
	}
	if !bytes.Equal(marker[:], d.sync[:]) {
		return fmt.Errorf("%w: sync marker mismatch", ErrBadEncoding)
	}

	d.inBlock = false
	d.blockReader = nil
	d.limited = nil
	return nil
}

// Close releases the Decoder's resources. If the io.Reader passed to
// Open also implements io.Closer, Close closes it; otherwise Close is a
// no-op, since Decoder holds nothing else that needs releasing.
func (d *Decoder) Close() error {
	if c, ok := d.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
