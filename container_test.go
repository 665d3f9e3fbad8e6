package lancaster

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"reflect"
	"testing"

	"github.com/golang/snappy"
	"github.com/mohae/deepcopy"
)

func encodeAvroString(s string) []byte {
	var buf []byte
	buf = append(buf, encodeZigzagLong(int64(len(s)))...)
	buf = append(buf, s...)
	return buf
}

func encodeAvroBytes(b []byte) []byte {
	var buf []byte
	buf = append(buf, encodeZigzagLong(int64(len(b)))...)
	buf = append(buf, b...)
	return buf
}

func TestOpenRejectsBadMagic(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("nope")))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Open(bad magic) error = %v; want ErrInvalidFormat", err)
	}
}

func TestOpenAndDecodeRoundTrip(t *testing.T) {
	schemaJSON := `{"type": "record", "name": "Point", "fields": [
		{"name": "x", "type": "long"},
		{"name": "y", "type": "long"}
	]}`

	var sync [16]byte
	for i := range sync {
		sync[i] = byte(i)
	}

	var header []byte
	header = append(header, magicBytes[:]...)
	header = append(header, encodeZigzagLong(2)...)
	header = append(header, encodeAvroString("avro.schema")...)
	header = append(header, encodeAvroBytes([]byte(schemaJSON))...)
	header = append(header, encodeAvroString("avro.codec")...)
	header = append(header, encodeAvroBytes([]byte("null"))...)
	header = append(header, encodeZigzagLong(0)...)
	header = append(header, sync[:]...)

	var objects []byte
	objects = append(objects, encodeZigzagLong(3)...)
	objects = append(objects, encodeZigzagLong(4)...)
	objects = append(objects, encodeZigzagLong(5)...)
	objects = append(objects, encodeZigzagLong(6)...)

	var block []byte
	block = append(block, encodeZigzagLong(2)...) // object count
	block = append(block, encodeZigzagLong(int64(len(objects)))...)
	block = append(block, objects...)
	block = append(block, sync[:]...)

	full := append(header, block...)

	dec, err := Open(bytes.NewReader(full))
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	if dec.Metadata()["avro.codec"] != "null" {
		t.Errorf("Metadata()[avro.codec] = %q; want %q", dec.Metadata()["avro.codec"], "null")
	}

	var got []map[string]interface{}
	for {
		v, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: unexpected error: %v", err)
		}
		got = append(got, v.(map[string]interface{}))
	}

	if len(got) != 2 {
		t.Fatalf("decoded %d objects; want 2", len(got))
	}
	if got[0]["x"] != int64(3) || got[0]["y"] != int64(4) {
		t.Errorf("object 0 = %v; want {x:3 y:4}", got[0])
	}
	if got[1]["x"] != int64(5) || got[1]["y"] != int64(6) {
		t.Errorf("object 1 = %v; want {x:5 y:6}", got[1])
	}

	// Snapshot the decoded objects through deepcopy before the final
	// comparison, the same idiom the teacher's codec tests use to rule
	// out the comparison itself aliasing shared map storage.
	want := []map[string]interface{}{
		{"x": int64(3), "y": int64(4)},
		{"x": int64(5), "y": int64(6)},
	}
	snapshot := deepcopy.Copy(got).([]map[string]interface{})
	if !reflect.DeepEqual(snapshot, want) {
		t.Errorf("decoded objects = %v; want %v", snapshot, want)
	}
}

func TestOpenAndDecodeDeflateBlock(t *testing.T) {
	schemaJSON := `"long"`

	var sync [16]byte
	for i := range sync {
		sync[i] = byte(16 - i)
	}

	var header []byte
	header = append(header, magicBytes[:]...)
	header = append(header, encodeZigzagLong(2)...)
	header = append(header, encodeAvroString("avro.schema")...)
	header = append(header, encodeAvroBytes([]byte(schemaJSON))...)
	header = append(header, encodeAvroString("avro.codec")...)
	header = append(header, encodeAvroBytes([]byte("deflate"))...)
	header = append(header, encodeZigzagLong(0)...)
	header = append(header, sync[:]...)

	objects := encodeZigzagLong(42)

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: unexpected error: %v", err)
	}
	if _, err := fw.Write(objects); err != nil {
		t.Fatalf("flate Write: unexpected error: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("flate Close: unexpected error: %v", err)
	}

	var block []byte
	block = append(block, encodeZigzagLong(1)...)
	block = append(block, encodeZigzagLong(int64(compressed.Len()))...)
	block = append(block, compressed.Bytes()...)
	block = append(block, sync[:]...)

	full := append(header, block...)

	dec, err := Open(bytes.NewReader(full))
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}

	v, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: unexpected error: %v", err)
	}
	if v != int64(42) {
		t.Errorf("Next() = %v; want 42", v)
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("second Next() error = %v; want io.EOF", err)
	}
}

func TestOpenAndDecodeSnappyBlock(t *testing.T) {
	schemaJSON := `"string"`

	var sync [16]byte
	for i := range sync {
		sync[i] = byte(i * 3)
	}

	var header []byte
	header = append(header, magicBytes[:]...)
	header = append(header, encodeZigzagLong(2)...)
	header = append(header, encodeAvroString("avro.schema")...)
	header = append(header, encodeAvroBytes([]byte(schemaJSON))...)
	header = append(header, encodeAvroString("avro.codec")...)
	header = append(header, encodeAvroBytes([]byte("snappy"))...)
	header = append(header, encodeZigzagLong(0)...)
	header = append(header, sync[:]...)

	objects := encodeAvroString("hello, snappy")

	compressed := snappy.Encode(nil, objects)
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(objects))
	payload := append(compressed, trailer[:]...)

	var block []byte
	block = append(block, encodeZigzagLong(1)...)
	block = append(block, encodeZigzagLong(int64(len(payload)))...)
	block = append(block, payload...)
	block = append(block, sync[:]...)

	full := append(header, block...)

	dec, err := Open(bytes.NewReader(full))
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}

	v, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: unexpected error: %v", err)
	}
	if v != "hello, snappy" {
		t.Errorf("Next() = %q; want %q", v, "hello, snappy")
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("second Next() error = %v; want io.EOF", err)
	}
}

func TestSnappyCodecRejectsChecksumMismatch(t *testing.T) {
	objects := encodeAvroString("tampered")
	compressed := snappy.Encode(nil, objects)

	var badTrailer [4]byte
	binary.BigEndian.PutUint32(badTrailer[:], crc32.ChecksumIEEE(objects)+1)
	payload := append(compressed, badTrailer[:]...)

	c := snappyCodec{}
	_, err := c.wrap(bytes.NewReader(payload))
	if !errors.Is(err, ErrBadEncoding) {
		t.Fatalf("snappyCodec.wrap(bad checksum) error = %v; want ErrBadEncoding", err)
	}
}

func TestOpenRejectsMissingSchema(t *testing.T) {
	var buf []byte
	buf = append(buf, magicBytes[:]...)
	buf = append(buf, encodeZigzagLong(0)...) // empty metadata
	var sync [16]byte
	buf = append(buf, sync[:]...)

	_, err := Open(bytes.NewReader(buf))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Open(missing schema) error = %v; want ErrInvalidFormat", err)
	}
}

func TestOpenRejectsUnsupportedCodec(t *testing.T) {
	var buf []byte
	buf = append(buf, magicBytes[:]...)
	buf = append(buf, encodeZigzagLong(2)...)
	buf = append(buf, encodeAvroString("avro.schema")...)
	buf = append(buf, encodeAvroBytes([]byte(`"long"`))...)
	buf = append(buf, encodeAvroString("avro.codec")...)
	buf = append(buf, encodeAvroBytes([]byte("bzip2"))...)
	buf = append(buf, encodeZigzagLong(0)...)
	var sync [16]byte
	buf = append(buf, sync[:]...)

	_, err := Open(bytes.NewReader(buf))
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("Open(unsupported codec) error = %v; want ErrUnsupportedCodec", err)
	}
}
