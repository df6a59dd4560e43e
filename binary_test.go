// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/mohae/deepcopy"
)

var morePositiveThanMaxBlockCount, morePositiveThanMaxBlockSize, moreNegativeThanMaxBlockCount, mostNegativeBlockCount []byte

func init() {
	c, err := NewCodec(`"long"`)
	if err != nil {
		panic(err)
	}

	morePositiveThanMaxBlockCount, err = c.BinaryFromNative(nil, int64(MaxBlockCount+1))
	if err != nil {
		panic(err)
	}

	morePositiveThanMaxBlockSize, err = c.BinaryFromNative(nil, int64(MaxBlockSize+1))
	if err != nil {
		panic(err)
	}

	moreNegativeThanMaxBlockCount, err = c.BinaryFromNative(nil, -int64(MaxBlockCount+1))
	if err != nil {
		panic(err)
	}

	mostNegativeBlockCount, err = c.BinaryFromNative(nil, int64(math.MinInt64))
	if err != nil {
		panic(err)
	}
}

func ensureError(t *testing.T, err error, contains ...string) {
	t.Helper()
	if len(contains) == 0 || (len(contains) == 1 && contains[0] == "") {
		if err != nil {
			t.Fatalf("GOT: %v; WANT: nil", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("GOT: %v; WANT: %s", err, contains)
	}
	for _, c := range contains {
		if !strings.Contains(err.Error(), c) {
			t.Errorf("GOT: %v; WANT: %s", err, c)
		}
	}
}

func testBinaryDecodeFail(t *testing.T, schema string, buf []byte, errorMessage string) {
	t.Helper()
	c, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	value, _, err := c.NativeFromBinary(buf)
	ensureError(t, err, errorMessage)
	if value != nil {
		t.Errorf("GOT: %v; WANT: %v", value, nil)
	}
}

func testBinaryEncodeFail(t *testing.T, schema string, datum interface{}, errorMessage string) {
	t.Helper()
	c, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := c.BinaryFromNative(nil, datum)
	ensureError(t, err, errorMessage)
	if buf != nil {
		t.Errorf("GOT: %v; WANT: %v", buf, nil)
	}
}

func testBinaryEncodeFailBadDatumType(t *testing.T, schema string, datum interface{}) {
	t.Helper()
	testBinaryEncodeFail(t, schema, datum, "received: ")
}

func testBinaryDecodeFailShortBuffer(t *testing.T, schema string, buf []byte) {
	t.Helper()
	testBinaryDecodeFail(t, schema, buf, "short buffer")
}

func testBinaryDecodePass(t *testing.T, schema string, datum interface{}, encoded []byte) {
	t.Helper()
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}

	value, remaining, err := codec.NativeFromBinary(encoded)
	if err != nil {
		t.Fatalf("schema: %s; %s", schema, err)
	}

	if actual, expected := len(remaining), 0; actual != expected {
		t.Errorf("schema: %s; Datum: %v; Actual: %#v; Expected: %#v", schema, datum, actual, expected)
	}

	datumCopy := deepcopy.Copy(datum)
	if reflect.DeepEqual(value, datumCopy) {
		return
	}

	actual := fmt.Sprintf("%v", value)
	expected := fmt.Sprintf("%v", datumCopy)

	if actual != expected {
		expectedBytes, err := json.Marshal(datumCopy)
		if err != nil {
			t.Error(err)
		}
		actualBytes, err := json.Marshal(value)
		if err != nil {
			t.Error(err)
		}
		if !bytes.Equal(actualBytes, expectedBytes) {
			t.Errorf("schema: %s; Datum: %v; Actual: %#v; Expected: %#v", schema, datum, actual, expected)
		}
	}
}

func testBinaryEncodePass(t *testing.T, schema string, datum interface{}, expected []byte) {
	t.Helper()
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatalf("Schema: %q %s", schema, err)
	}

	actual, err := codec.BinaryFromNative(nil, datum)
	if err != nil {
		t.Fatalf("schema: %s; Datum: %v; %s", schema, datum, err)
	}
	if !bytes.Equal(actual, expected) {
		t.Errorf("schema: %s; Datum: %v; Actual: %#v; Expected: %#v", schema, datum, actual, expected)
	}
}

// testBinaryCodecPass does a bi-directional codec check, by encoding datum to
// bytes, then decoding bytes back to datum.
func testBinaryCodecPass(t *testing.T, schema string, datum interface{}, buf []byte) {
	t.Helper()
	testBinaryDecodePass(t, schema, datum, buf)
	testBinaryEncodePass(t, schema, datum, buf)
}

func TestBinaryNull(t *testing.T) {
	testBinaryCodecPass(t, `"null"`, nil, []byte{})
}

func TestBinaryBoolean(t *testing.T) {
	testBinaryCodecPass(t, `"boolean"`, true, []byte{0x01})
	testBinaryCodecPass(t, `"boolean"`, false, []byte{0x00})
	testBinaryDecodeFailShortBuffer(t, `"boolean"`, []byte{})
}

func TestBinaryInt(t *testing.T) {
	testBinaryCodecPass(t, `"int"`, int32(0), []byte{0x00})
	testBinaryCodecPass(t, `"int"`, int32(-1), []byte{0x01})
	testBinaryCodecPass(t, `"int"`, int32(1), []byte{0x02})
	testBinaryCodecPass(t, `"int"`, int32(-64), []byte{0x7f})
	testBinaryEncodeFailBadDatumType(t, `"int"`, "not an int")
}

func TestBinaryLong(t *testing.T) {
	testBinaryCodecPass(t, `"long"`, int64(0), []byte{0x00})
	testBinaryCodecPass(t, `"long"`, int64(-1), []byte{0x01})
	testBinaryCodecPass(t, `"long"`, int64(math.MaxInt64), []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01})
}

func TestBinaryFloat(t *testing.T) {
	testBinaryCodecPass(t, `"float"`, float32(3.5), []byte{0x00, 0x00, 0x60, 0x40})
}

func TestBinaryDouble(t *testing.T) {
	testBinaryCodecPass(t, `"double"`, float64(3.5), []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0c, 0x40})
}

func TestBinaryBytes(t *testing.T) {
	testBinaryCodecPass(t, `"bytes"`, []byte("foo"), []byte{0x06, 'f', 'o', 'o'})
	testBinaryDecodeFailShortBuffer(t, `"bytes"`, []byte{0x06, 'f', 'o'})
}

func TestBinaryString(t *testing.T) {
	testBinaryCodecPass(t, `"string"`, "foo", []byte{0x06, 'f', 'o', 'o'})
}

func TestBinaryStringInvalidUTF8(t *testing.T) {
	invalid := []byte{0x04, 0xff, 0xfe} // length 2, invalid UTF-8 bytes

	strict, err := NewCodec(`"string"`)
	ensureError(t, err)
	if _, _, err := strict.NativeFromBinary(invalid); err == nil {
		t.Fatal("GOT: nil; WANT: InvalidUTF8Error")
	} else if _, ok := err.(*InvalidUTF8Error); !ok {
		t.Fatalf("GOT: %T; WANT: *InvalidUTF8Error", err)
	}

	replace, err := NewCodec(`"string"`, OptionUnicodeReplace())
	ensureError(t, err)
	v, _, err := replace.NativeFromBinary(invalid)
	ensureError(t, err)
	if s := v.(string); !strings.Contains(s, "�") {
		t.Fatalf("GOT: %q; WANT: replacement character present", s)
	}

	ignore, err := NewCodec(`"string"`, OptionUnicodeIgnore())
	ensureError(t, err)
	v, _, err = ignore.NativeFromBinary(invalid)
	ensureError(t, err)
	if s := v.(string); strings.ContainsAny(s, "\xff\xfe") {
		t.Fatalf("GOT: %q; WANT: invalid bytes dropped", s)
	}
}

func TestBinaryArrayBlockCountTooLarge(t *testing.T) {
	testBinaryDecodeFail(t, `{"type":"array","items":"long"}`, morePositiveThanMaxBlockCount, "block count exceeds limit")
}

func TestBinaryBytesSizeTooLarge(t *testing.T) {
	buf := append([]byte{}, morePositiveThanMaxBlockSize...)
	testBinaryDecodeFail(t, `"bytes"`, buf, "size ought to be in range")
}

func TestBinaryArray(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"array","items":"long"}`, []interface{}{int64(1), int64(2), int64(3)},
		[]byte{0x06, 0x02, 0x04, 0x06, 0x00})
}

func TestBinaryMap(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"map","values":"long"}`,
		map[string]interface{}{"a": int64(1)},
		[]byte{0x02, 0x02, 'a', 0x02, 0x00})
}
