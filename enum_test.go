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

func TestEnumBasic(t *testing.T) {
	schema := `{"type":"enum","name":"suit","symbols":["CLUBS","DIAMONDS","HEARTS","SPADES"]}`
	testBinaryCodecPass(t, schema, "HEARTS", []byte{0x04})
}

func TestEnumUnknownSymbolEncodeFails(t *testing.T) {
	schema := `{"type":"enum","name":"suit","symbols":["CLUBS","DIAMONDS"]}`
	testBinaryEncodeFail(t, schema, "SPADES", "ought to be member of symbols")
}

func TestEnumDuplicateSymbolRejected(t *testing.T) {
	schema := `{"type":"enum","name":"suit","symbols":["CLUBS","CLUBS"]}`
	_, err := NewCodec(schema)
	ensureError(t, err, "duplicate symbol")
}

func TestEnumDefaultMustBeAmongSymbols(t *testing.T) {
	schema := `{"type":"enum","name":"suit","symbols":["CLUBS"],"default":"SPADES"}`
	_, err := NewCodec(schema)
	ensureError(t, err, "not among symbols")
}

func TestEnumInvalidIdentifierRejected(t *testing.T) {
	schema := `{"type":"enum","name":"suit","symbols":["not valid"]}`
	_, err := NewCodec(schema)
	ensureError(t, err, "invalid symbol")
}
