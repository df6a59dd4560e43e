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

func TestMapEmpty(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"map","values":"long"}`, map[string]interface{}{}, []byte{0x00})
}

func TestMapOfLongs(t *testing.T) {
	testBinaryCodecPass(t, `{"type":"map","values":"long"}`,
		map[string]interface{}{"a": int64(1)},
		[]byte{0x02, 0x02, 'a', 0x02, 0x00})
}

func TestMapOfRecords(t *testing.T) {
	schema := `{"type":"map","values":{"type":"record","name":"point","fields":[
		{"name":"x","type":"long"},{"name":"y","type":"long"}
	]}}`
	datum := map[string]interface{}{
		"origin": map[string]interface{}{"x": int64(0), "y": int64(0)},
	}
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	buf := mustEncode(t, codec, datum)
	value, _, err := codec.NativeFromBinary(buf)
	if err != nil {
		t.Fatal(err)
	}
	out, ok := value.(map[string]interface{})
	if !ok || len(out) != 1 {
		t.Fatalf("GOT: %#v", value)
	}
}

func TestMapEncodeFailBadType(t *testing.T) {
	testBinaryEncodeFailBadDatumType(t, `{"type":"map","values":"long"}`, []int{1, 2, 3})
}
