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

func TestFixedBasic(t *testing.T) {
	schema := `{"type":"fixed","name":"md5","size":4}`
	testBinaryCodecPass(t, schema, []byte{0x01, 0x02, 0x03, 0x04}, []byte{0x01, 0x02, 0x03, 0x04})
}

func TestFixedWrongSizeRejected(t *testing.T) {
	schema := `{"type":"fixed","name":"md5","size":4}`
	testBinaryEncodeFail(t, schema, []byte{0x01, 0x02}, "requires 4 bytes; received 2")
}

func TestFixedMissingSizeRejected(t *testing.T) {
	schema := `{"type":"fixed","name":"md5"}`
	_, err := NewCodec(schema)
	ensureError(t, err, "missing size property")
}

func TestFixedDecodeShortBuffer(t *testing.T) {
	schema := `{"type":"fixed","name":"md5","size":4}`
	testBinaryDecodeFailShortBuffer(t, schema, []byte{0x01, 0x02})
}

func TestFixedRedefinedNameRejected(t *testing.T) {
	schema := `{"type":"record","name":"wrap","fields":[
		{"name":"a","type":{"type":"fixed","name":"f","size":2}},
		{"name":"b","type":{"type":"fixed","name":"f","size":4}}
	]}`
	_, err := NewCodec(schema)
	ensureError(t, err, "redefined type name")
}
