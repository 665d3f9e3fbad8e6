package lancaster

import "errors"

// Sentinel errors identifying the taxonomy a caller can match on with
// errors.Is. An end of stream in the middle of a value is reported as
// ErrBadEncoding (see wrapDecodeErr); Decoder.Next returns io.EOF only when
// the stream ends at a block boundary. Other failures of the underlying
// reader are passed through unchanged by the value decoders, so callers can
// still tell a broken stream apart from a malformed one.
var (
	// ErrInvalidFormat indicates a structural mismatch at the container
	// layer: bad magic, missing avro.schema, a schema that fails to
	// compile, or a union branch index out of range.
	ErrInvalidFormat = errors.New("lancaster: invalid format")

	// ErrBadEncoding indicates well-formed framing but malformed value
	// bytes: varint overflow, invalid UTF-8, an enum index out of range,
	// or a sync marker mismatch.
	ErrBadEncoding = errors.New("lancaster: bad encoding")

	// ErrUnsupportedCodec indicates the header declared a codec this
	// reader does not implement.
	ErrUnsupportedCodec = errors.New("lancaster: unsupported codec")

	// ErrUnrecognizedType indicates an unknown primitive name or an
	// unresolved named-type reference during schema compilation.
	ErrUnrecognizedType = errors.New("lancaster: unrecognized type")

	// ErrInvalidType indicates an attribute of the wrong shape during
	// schema compilation (e.g. symbols is not an array of strings).
	ErrInvalidType = errors.New("lancaster: invalid type")

	// ErrInvalidSchema indicates a structural mismatch in the schema
	// document itself (e.g. an array missing items, or a duplicate
	// named-type registration).
	ErrInvalidSchema = errors.New("lancaster: invalid schema")
)
