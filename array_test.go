// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "testing"

func TestArrayEmpty(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"array","items":"long"}`, []interface{}{}, []byte{0x00})
}

func TestArrayOfStrings(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"array","items":"string"}`,
		[]interface{}{"a", "bb"},
		[]byte{0x04, 0x02, 'a', 0x04, 'b', 'b', 0x00})
}

func TestArrayOfRecords(t *testing.T) {
	schema := `{"type":"array","items":{"type":"record","name":"pair","fields":[
		{"name":"k","type":"string"},{"name":"v","type":"long"}
	]}}`
	datum := []interface{}{
		map[string]interface{}{"k": "a", "v": int64(1)},
		map[string]interface{}{"k": "b", "v": int64(2)},
	}
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	buf := mustEncode(t, codec, datum)
	value, rest, err := codec.NativeFromBinary(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatalf("leftover bytes: %v", rest)
	}
	out, ok := value.([]interface{})
	if !ok || len(out) != 2 {
		t.Fatalf("GOT: %#v", value)
	}
}

func TestArrayDecodeShortBuffer(t *testing.T) {
	testBinaryDecodeFailShortBuffer(t, `{"type":"array","items":"long"}`, []byte{})
}

func TestArrayEncodeFailBadType(t *testing.T) {
	testBinaryEncodeFailBadDatumType(t, `{"type":"array","items":"long"}`, "not a slice")
}
