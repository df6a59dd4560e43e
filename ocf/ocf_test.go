// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package ocf

import (
	"bytes"
	"io"
	"testing"

	"github.com/avrocore/avro"
)

var personSchema = avro.MustParse(`{
	"type": "record",
	"name": "person",
	"fields": [
		{"name": "name", "type": "string"},
		{"name": "age", "type": "long"}
	]
}`)

func writeFile(t *testing.T, opts ...WriterOption) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, personSchema, opts...)
	if err != nil {
		t.Fatal(err)
	}
	people := []map[string]interface{}{
		{"name": "Alice", "age": int64(30)},
		{"name": "Bob", "age": int64(25)},
		{"name": "Carol", "age": int64(40)},
	}
	for _, p := range people {
		if err := w.Append(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWriteReadRoundTripNullCodec(t *testing.T) {
	data := writeFile(t, WithCodec("null"))

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	var got []interface{}
	for {
		v, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}
	if len(got) != 3 {
		t.Fatalf("GOT: %d records; WANT: 3", len(got))
	}
	first := got[0].(map[string]interface{})
	if first["name"] != "Alice" || first["age"] != int64(30) {
		t.Fatalf("GOT: %v", first)
	}
}

func TestWriteReadRoundTripDeflateCodec(t *testing.T) {
	data := writeFile(t, WithCodec("deflate"))

	r, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("GOT: %d; WANT: 3", count)
	}
}

func TestBadMagicRejected(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not an ocf file at all")))
	if err == nil {
		t.Fatal("expected an error for bad magic")
	}
}

func TestBlockReaderExposesCounts(t *testing.T) {
	data := writeFile(t, WithCodec("null"), WithSyncInterval(1)) // force one block per record

	br, err := NewBlockReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for {
		block, err := br.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		total += block.NumRecords
	}
	if total != 3 {
		t.Fatalf("GOT: %d; WANT: 3", total)
	}
}

func TestAppendWriterAddsMoreRecords(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, personSchema, WithCodec("null"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(map[string]interface{}{"name": "Alice", "age": int64(30)}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	appendBuf := &seekableBuffer{buf: append([]byte{}, buf.Bytes()...)}
	aw, err := NewAppendWriter(appendBuf, personSchema)
	if err != nil {
		t.Fatal(err)
	}
	if err := aw.Append(map[string]interface{}{"name": "Dave", "age": int64(50)}); err != nil {
		t.Fatal(err)
	}
	if err := aw.Flush(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(appendBuf.buf))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("GOT: %d; WANT: 2", count)
	}
}

// seekableBuffer is a minimal io.ReadWriteSeeker over an in-memory
// byte slice: reads start at the front and follow Seek, and writes
// always append to the end, enough to exercise NewAppendWriter without
// a real file.
type seekableBuffer struct {
	buf []byte
	pos int
}

func (s *seekableBuffer) Read(p []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = int(offset)
	case io.SeekCurrent:
		s.pos += int(offset)
	case io.SeekEnd:
		s.pos = len(s.buf) + int(offset)
	}
	return int64(s.pos), nil
}
