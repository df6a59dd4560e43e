// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

// Schemaless I/O (§4.8): encode or decode a single record with no
// framing, header, or codec — just the bytes BinaryFromNative/
// NativeFromBinary already produce and consume. These three functions
// exist only as the documented entry point the spec calls out as its
// own component; they add no behavior beyond what *Codec and
// *Resolver already expose, the same way the teacher's own
// TextualFromNative/NativeFromTextual wrap the lower-level codec
// without inventing a new representation.

// Marshal encodes datum under schema with no framing, returning the
// raw Avro binary bytes. Equivalent to schema.BinaryFromNative(nil,
// datum).
func Marshal(schema *Codec, datum interface{}) ([]byte, error) {
	return schema.BinaryFromNative(nil, datum)
}

// Unmarshal decodes a single schemaless record from buf using schema
// as both writer and reader schema, returning the decoded value and
// any trailing bytes.
func Unmarshal(schema *Codec, buf []byte) (interface{}, []byte, error) {
	return schema.NativeFromBinary(buf)
}

// UnmarshalResolved decodes a single schemaless record written under
// writer and projects it through reader per §4.5, returning the
// decoded value and any trailing bytes. Callers that need to resolve
// many records against the same writer/reader pair should build a
// *Resolver once with NewResolver instead of paying its build cost on
// every call.
func UnmarshalResolved(writer, reader *Codec, buf []byte) (interface{}, []byte, error) {
	r, err := NewResolver(writer, reader)
	if err != nil {
		return nil, nil, err
	}
	return r.NativeFromBinary(buf)
}
