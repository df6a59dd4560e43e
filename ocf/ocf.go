// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package ocf implements the Avro Object Container File format: a
// magic-prefixed, sync-marker-delimited, codec-compressed block
// stream with appendable semantics.
//
// The header and block framing are parsed directly off the input
// stream (the schema needed to build an avro.Codec isn't known until
// the header itself has been read), but once a block's bytes have
// been decompressed, the records inside it are decoded through the
// ordinary in-memory avro.Codec API.
package ocf

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/avrocore/avro"
	"github.com/avrocore/avro/codec"
)

const (
	metaSchemaKey  = "avro.schema"
	metaCodecKey   = "avro.codec"
	syncLen        = 16
	defaultSyncLen = 64 * 1024
)

var magicBytes = [4]byte{'O', 'b', 'j', 1}

// Block is one block of a container file: the decompressed bytes of
// its records plus enough bookkeeping to decode them or resume
// reading later.
type Block struct {
	Bytes        []byte
	NumRecords   int64
	Codec        string
	Offset       int64
	WriterSchema *avro.Codec
	ReaderSchema *avro.Codec
}

// Decode decodes the NumRecords records in the block, resolving
// against ReaderSchema if one is set and differs from WriterSchema.
func (b *Block) Decode() ([]interface{}, error) {
	buf := b.Bytes
	out := make([]interface{}, 0, b.NumRecords)
	var resolver *avro.Resolver
	if b.ReaderSchema != nil && b.ReaderSchema != b.WriterSchema {
		r, err := avro.NewResolver(b.WriterSchema, b.ReaderSchema)
		if err != nil {
			return nil, err
		}
		resolver = r
	}
	for i := int64(0); i < b.NumRecords; i++ {
		var v interface{}
		var err error
		if resolver != nil {
			v, buf, err = resolver.NativeFromBinary(buf)
		} else {
			v, buf, err = b.WriterSchema.NativeFromBinary(buf)
		}
		if err != nil {
			return nil, fmt.Errorf("ocf: decode record %d of block: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ---- header ----

type header struct {
	writerSchema *avro.Codec
	codecName    string
	meta         map[string][]byte
	sync         [syncLen]byte
}

// readHeader parses the header and also reports its length in bytes,
// the starting byte offset of the first block, needed to make
// BlockReader.Offset a usable stream position.
func readHeader(r *bufio.Reader) (*header, int64, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, fmt.Errorf("ocf: reading magic: %w", err)
	}
	if magic != magicBytes {
		return nil, 0, errors.New("ocf: not a container file: bad magic")
	}
	meta, metaLen, err := readMapBytes(r)
	if err != nil {
		return nil, 0, fmt.Errorf("ocf: reading header metadata: %w", err)
	}
	var sync [syncLen]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		return nil, 0, fmt.Errorf("ocf: reading sync marker: %w", err)
	}
	schemaJSON, ok := meta[metaSchemaKey]
	if !ok {
		return nil, 0, errors.New("ocf: header is missing avro.schema metadata")
	}
	ws, err := avro.NewCodec(string(schemaJSON))
	if err != nil {
		return nil, 0, fmt.Errorf("ocf: parsing writer schema: %w", err)
	}
	h := &header{
		writerSchema: ws,
		codecName:    string(meta[metaCodecKey]),
		meta:         meta,
		sync:         sync,
	}
	if h.codecName == "" {
		h.codecName = "null"
	}
	return h, int64(len(magic)) + metaLen + syncLen, nil
}

func writeHeader(w io.Writer, sync [syncLen]byte, meta map[string][]byte) error {
	if _, err := w.Write(magicBytes[:]); err != nil {
		return err
	}
	if err := writeMapBytes(w, meta); err != nil {
		return err
	}
	_, err := w.Write(sync[:])
	return err
}

// ---- primitive streaming helpers ----
//
// These mirror the zig-zag varint and length-prefixed byte encodings
// in the root package's binary.go, reimplemented against io.Reader
// since the outer framing must be parsed before a schema (and hence
// an avro.Codec) exists to decode it with.

// readVarint returns the decoded value along with the number of bytes
// the varint occupied on the wire, needed to track byte offsets
// through the block stream.
func readVarint(r io.ByteReader) (uint64, int64, error) {
	var u uint64
	for i := uint(0); i < 10; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		u |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return u, int64(i) + 1, nil
		}
	}
	return 0, 0, errors.New("ocf: corrupt varint")
}

func readLong(r io.ByteReader) (int64, int64, error) {
	u, n, err := readVarint(r)
	if err != nil {
		return 0, 0, err
	}
	return int64(u>>1) ^ -int64(u&1), n, nil
}

func writeLong(w io.Writer, n int64) error {
	u := uint64(n<<1) ^ uint64(n>>63)
	var buf []byte
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	buf = append(buf, byte(u))
	_, err := w.Write(buf)
	return err
}

// readBytesField returns the decoded bytes along with the total number
// of wire bytes consumed: the length varint plus the payload itself.
func readBytesField(r *bufio.Reader) ([]byte, int64, error) {
	n, nLen, err := readLong(r)
	if err != nil {
		return nil, 0, err
	}
	if n < 0 {
		return nil, 0, errors.New("ocf: negative byte-length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, err
	}
	return buf, nLen + n, nil
}

func writeBytesField(w io.Writer, b []byte) error {
	if err := writeLong(w, int64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readMapBytes decodes an Avro map<bytes> value (string keys, bytes
// values) directly off the stream, per the block-count/negative-count
// map encoding, and reports the total wire bytes consumed.
func readMapBytes(r *bufio.Reader) (map[string][]byte, int64, error) {
	m := map[string][]byte{}
	var total int64
	for {
		count, n, err := readLong(r)
		total += n
		if err != nil {
			return nil, 0, err
		}
		if count == 0 {
			return m, total, nil
		}
		if count < 0 {
			count = -count
			_, n, err := readLong(r) // block byte size, unused here
			total += n
			if err != nil {
				return nil, 0, err
			}
		}
		for i := int64(0); i < count; i++ {
			key, kn, err := readBytesField(r)
			total += kn
			if err != nil {
				return nil, 0, err
			}
			val, vn, err := readBytesField(r)
			total += vn
			if err != nil {
				return nil, 0, err
			}
			m[string(key)] = val
		}
	}
}

func writeMapBytes(w io.Writer, m map[string][]byte) error {
	if len(m) > 0 {
		if err := writeLong(w, int64(len(m))); err != nil {
			return err
		}
		for k, v := range m {
			if err := writeBytesField(w, []byte(k)); err != nil {
				return err
			}
			if err := writeBytesField(w, v); err != nil {
				return err
			}
		}
	}
	return writeLong(w, 0)
}

// ---- Writer ----

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	codecName        string
	compressionLevel int
	syncInterval     int
	metadata         map[string][]byte
}

// WithCodec selects the block compressor by name (must be registered
// in the codec package).
func WithCodec(name string) WriterOption {
	return func(c *writerConfig) { c.codecName = name }
}

// WithCompressionLevel sets the codec's compression level; values
// outside a codec's accepted range fall back to its default.
func WithCompressionLevel(level int) WriterOption {
	return func(c *writerConfig) { c.compressionLevel = level }
}

// WithSyncInterval sets the approximate number of uncompressed bytes
// buffered before a block is flushed.
func WithSyncInterval(n int) WriterOption {
	return func(c *writerConfig) { c.syncInterval = n }
}

// WithMetadata sets additional header metadata key/value pairs.
func WithMetadata(meta map[string][]byte) WriterOption {
	return func(c *writerConfig) { c.metadata = meta }
}

// Writer writes an Avro container file to an output stream.
type Writer struct {
	w            io.Writer
	schema       *avro.Codec
	blockCodec   codec.Block
	codecName    string
	compression  int
	syncInterval int
	sync         [syncLen]byte

	buf   []byte
	count int64
}

// NewWriter starts a fresh container file: magic, header, and a new
// random sync marker.
func NewWriter(w io.Writer, schema *avro.Codec, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{
		codecName:        "null",
		compressionLevel: -1,
		syncInterval:     defaultSyncLen,
		metadata:         map[string][]byte{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	bc, err := codec.Get(cfg.codecName)
	if err != nil {
		return nil, err
	}

	wtr := &Writer{
		w:            w,
		schema:       schema,
		blockCodec:   bc,
		codecName:    cfg.codecName,
		compression:  cfg.compressionLevel,
		syncInterval: cfg.syncInterval,
	}
	if _, err := rand.Read(wtr.sync[:]); err != nil {
		return nil, err
	}

	meta := make(map[string][]byte, len(cfg.metadata)+2)
	for k, v := range cfg.metadata {
		meta[k] = v
	}
	meta[metaSchemaKey] = []byte(schema.Schema())
	meta[metaCodecKey] = []byte(cfg.codecName)

	if err := writeHeader(w, wtr.sync, meta); err != nil {
		return nil, err
	}
	return wtr, nil
}

// NewAppendWriter reopens an existing container file for appending:
// it reads the header to recover the sync marker, codec, and writer
// schema, seeks to the end of the stream, and writes new blocks from
// there. The caller's schema must match the file's writer schema.
func NewAppendWriter(rw io.ReadWriteSeeker, schema *avro.Codec, opts ...WriterOption) (*Writer, error) {
	h, _, err := readHeader(bufio.NewReader(rw))
	if err != nil {
		return nil, err
	}
	if _, err := rw.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("ocf: append: seeking to end: %w", err)
	}
	if h.writerSchema.CanonicalSchema() != schema.CanonicalSchema() {
		return nil, errors.New("ocf: append: schema does not match the file's writer schema")
	}
	cfg := writerConfig{compressionLevel: -1, syncInterval: defaultSyncLen}
	for _, o := range opts {
		o(&cfg)
	}
	name := h.codecName
	if cfg.codecName != "" {
		name = cfg.codecName
	}
	bc, err := codec.Get(name)
	if err != nil {
		return nil, err
	}
	wtr := &Writer{
		w:            rw,
		schema:       schema,
		blockCodec:   bc,
		codecName:    name,
		compression:  cfg.compressionLevel,
		syncInterval: cfg.syncInterval,
	}
	wtr.sync = h.sync
	return wtr, nil
}

// Append encodes v under the writer schema and appends it to the
// pending block, flushing a block once it reaches the configured
// sync interval.
func (wtr *Writer) Append(v interface{}) error {
	buf, err := wtr.schema.BinaryFromNative(wtr.buf, v)
	if err != nil {
		return err
	}
	wtr.buf = buf
	wtr.count++
	if len(wtr.buf) >= wtr.syncInterval {
		return wtr.flushBlock()
	}
	return nil
}

// Flush writes out any buffered records as a final (possibly short)
// block. Call it before discarding a Writer that wasn't filled to a
// sync boundary.
func (wtr *Writer) Flush() error {
	if wtr.count == 0 {
		return nil
	}
	return wtr.flushBlock()
}

func (wtr *Writer) flushBlock() error {
	compressed, err := wtr.blockCodec.Encode(wtr.buf, wtr.compression)
	if err != nil {
		return err
	}
	if err := writeLong(wtr.w, wtr.count); err != nil {
		return err
	}
	if err := writeLong(wtr.w, int64(len(compressed))); err != nil {
		return err
	}
	if _, err := wtr.w.Write(compressed); err != nil {
		return err
	}
	if _, err := wtr.w.Write(wtr.sync[:]); err != nil {
		return err
	}
	wtr.buf = wtr.buf[:0]
	wtr.count = 0
	return nil
}

// ---- BlockReader ----

// BlockReader iterates the raw blocks of a container file without
// decoding individual records, useful for splitting a file across
// workers or resuming from a known offset.
type BlockReader struct {
	r            *bufio.Reader
	offset       int64
	writerSchema *avro.Codec
	readerSchema *avro.Codec
	codecName    string
	blockCodec   codec.Block
	sync         [syncLen]byte
}

// NewBlockReader opens a container file for block-level iteration.
func NewBlockReader(r io.Reader, opts ...ReaderOption) (*BlockReader, error) {
	cfg := readerConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	br := bufio.NewReader(r)
	h, headerLen, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	bc, err := codec.Get(h.codecName)
	if err != nil {
		return nil, err
	}
	readerSchema := cfg.readerSchema
	if readerSchema == nil {
		readerSchema = h.writerSchema
	}
	return &BlockReader{
		r:            br,
		offset:       headerLen,
		writerSchema: h.writerSchema,
		readerSchema: readerSchema,
		codecName:    h.codecName,
		blockCodec:   bc,
		sync:         h.sync,
	}, nil
}

// Next reads the next block, or returns io.EOF once the file is
// exhausted.
func (br *BlockReader) Next() (*Block, error) {
	offset := br.offset
	count, countLen, err := readLong(br.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("ocf: reading block record count: %w", err)
	}
	size, sizeLen, err := readLong(br.r)
	if err != nil {
		return nil, fmt.Errorf("ocf: reading block byte count: %w", err)
	}
	compressed := make([]byte, size)
	if _, err := io.ReadFull(br.r, compressed); err != nil {
		return nil, fmt.Errorf("ocf: reading block payload: %w", err)
	}
	var marker [syncLen]byte
	if _, err := io.ReadFull(br.r, marker[:]); err != nil {
		return nil, fmt.Errorf("ocf: reading block sync marker: %w", err)
	}
	if marker != br.sync {
		return nil, errors.New("ocf: corrupt file: sync marker mismatch")
	}
	br.offset += countLen + sizeLen + size + syncLen

	decompressed, err := br.blockCodec.Decode(compressed)
	if err != nil {
		return nil, fmt.Errorf("ocf: decompressing block: %w", err)
	}
	return &Block{
		Bytes:        decompressed,
		NumRecords:   count,
		Codec:        br.codecName,
		Offset:       offset,
		WriterSchema: br.writerSchema,
		ReaderSchema: br.readerSchema,
	}, nil
}

// WriterSchema reports the schema the file was written with.
func (br *BlockReader) WriterSchema() *avro.Codec { return br.writerSchema }

// ---- Reader ----

// ReaderOption configures a Reader or BlockReader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	readerSchema *avro.Codec
}

// WithReaderSchema enables schema resolution: records are decoded
// under the writer schema recovered from the file header and
// resolved into this reader schema.
func WithReaderSchema(schema *avro.Codec) ReaderOption {
	return func(c *readerConfig) { c.readerSchema = schema }
}

// Reader iterates the individual records of a container file.
type Reader struct {
	blocks  *BlockReader
	current []interface{}
	pos     int
}

// NewReader opens a container file for record-by-record iteration.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	br, err := NewBlockReader(r, opts...)
	if err != nil {
		return nil, err
	}
	return &Reader{blocks: br}, nil
}

// WriterSchema reports the schema the file was written with.
func (rdr *Reader) WriterSchema() *avro.Codec { return rdr.blocks.WriterSchema() }

// Read returns the next record, or io.EOF once the file is exhausted.
func (rdr *Reader) Read() (interface{}, error) {
	for rdr.pos >= len(rdr.current) {
		block, err := rdr.blocks.Next()
		if err != nil {
			return nil, err
		}
		records, err := block.Decode()
		if err != nil {
			return nil, err
		}
		rdr.current = records
		rdr.pos = 0
	}
	v := rdr.current[rdr.pos]
	rdr.pos++
	return v, nil
}
