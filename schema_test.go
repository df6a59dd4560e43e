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

func TestSchemaInvalidJSONRejected(t *testing.T) {
	_, err := NewCodec(`{not json`)
	ensureError(t, err, "cannot unmarshal schema JSON")
}

func TestSchemaUnknownTypeNameRejected(t *testing.T) {
	_, err := NewCodec(`"bogus"`)
	ensureError(t, err, "unknown type name")
}

func TestSchemaBareStringPrimitive(t *testing.T) {
	codec, err := NewCodec(`"string"`)
	if err != nil {
		t.Fatal(err)
	}
	if codec.TypeName() != "string" {
		t.Fatalf("GOT: %v; WANT: %v", codec.TypeName(), "string")
	}
}

func TestSchemaWrappedTypeNode(t *testing.T) {
	codec, err := NewCodec(`{"type":"string"}`)
	if err != nil {
		t.Fatal(err)
	}
	if codec.TypeName() != "string" {
		t.Fatalf("GOT: %v; WANT: %v", codec.TypeName(), "string")
	}
}

func TestSchemaNamespaceQualification(t *testing.T) {
	schema := `{"type":"record","name":"Foo","namespace":"com.example","fields":[
		{"name":"a","type":"long"}
	]}`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	if codec.TypeName() != "com.example.Foo" {
		t.Fatalf("GOT: %v; WANT: %v", codec.TypeName(), "com.example.Foo")
	}
}

func TestSchemaRecordReferencesSiblingByFullName(t *testing.T) {
	schema := `{"type":"record","name":"Outer","namespace":"com.example","fields":[
		{"name":"inner","type":{"type":"record","name":"Inner","fields":[{"name":"v","type":"long"}]}},
		{"name":"inner2","type":"com.example.Inner"}
	]}`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	datum := map[string]interface{}{
		"inner":  map[string]interface{}{"v": int64(1)},
		"inner2": map[string]interface{}{"v": int64(2)},
	}
	buf := mustEncode(t, codec, datum)
	if _, _, err := codec.NativeFromBinary(buf); err != nil {
		t.Fatal(err)
	}
}

func TestSchemaArrayMissingItemsRejected(t *testing.T) {
	_, err := NewCodec(`{"type":"array"}`)
	ensureError(t, err, "missing items property")
}

func TestSchemaMapMissingValuesRejected(t *testing.T) {
	_, err := NewCodec(`{"type":"map"}`)
	ensureError(t, err, "missing values property")
}

func TestSchemaRecordMissingFieldsRejected(t *testing.T) {
	_, err := NewCodec(`{"type":"record","name":"r"}`)
	ensureError(t, err, "missing fields property")
}
