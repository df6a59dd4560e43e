// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package avro implements the core of the Apache Avro binary
// serialization format: schema parsing and canonicalization, the
// binary codec, writer/reader schema resolution, and a logical-type
// registry. Object container files live in the sibling avro/ocf
// package, and block compressors live in avro/codec.
package avro

import "fmt"

type schemaKind int

const (
	kindNull schemaKind = iota
	kindBoolean
	kindInt
	kindLong
	kindFloat
	kindDouble
	kindBytes
	kindString
	kindFixed
	kindEnum
	kindArray
	kindMap
	kindRecord
	kindUnion
)

func (k schemaKind) String() string {
	switch k {
	case kindNull:
		return "null"
	case kindBoolean:
		return "boolean"
	case kindInt:
		return "int"
	case kindLong:
		return "long"
	case kindFloat:
		return "float"
	case kindDouble:
		return "double"
	case kindBytes:
		return "bytes"
	case kindString:
		return "string"
	case kindFixed:
		return "fixed"
	case kindEnum:
		return "enum"
	case kindArray:
		return "array"
	case kindMap:
		return "map"
	case kindRecord:
		return "record"
	case kindUnion:
		return "union"
	}
	return "unknown"
}

// recordField is one declared field of a record schema, in the order
// the schema declared it.
type recordField struct {
	name       string
	aliases    []string
	doc        string
	hasDefault bool
	def        interface{}
	codec      *Codec
}

// Codec is a parsed Avro schema together with the closures that
// encode and decode values of that schema's shape, mirroring the
// teacher's union.go Codec: a typeName plus a nativeFromBinary /
// binaryFromNative pair. Every schema variant (primitive, named,
// array, map, record, union) builds one of these via buildCodec.
type Codec struct {
	kind     schemaKind
	typeName *name
	aliases  []string

	nativeFromBinary func(buf []byte) (interface{}, []byte, error)
	binaryFromNative func(buf []byte, datum interface{}) ([]byte, error)
	skipBinary       func(buf []byte) ([]byte, error)

	itemsCodec  *Codec // array
	valuesCodec *Codec // map

	fields []*recordField // record
	doc    string         // record/enum/field doc

	symbols        []string // enum
	hasEnumDefault bool
	enumDefault    string

	size int // fixed

	unionInfo *codecInfo // union

	logicalType    string
	logicalBase    schemaKind
	precision      int
	scale          int
	logicalPrepare func(datum interface{}, c *Codec) (interface{}, error)

	schemaJSON interface{} // the parsed JSON-compatible tree, for Schema()/canonicalization
}

// NativeFromBinary decodes the leading Avro-encoded value of this
// codec's schema from buf, returning the decoded value and whatever
// bytes remain.
func (c *Codec) NativeFromBinary(buf []byte) (interface{}, []byte, error) {
	return c.nativeFromBinary(buf)
}

// BinaryFromNative appends the Avro binary encoding of datum to buf
// and returns the extended slice.
func (c *Codec) BinaryFromNative(buf []byte, datum interface{}) ([]byte, error) {
	return c.binaryFromNative(buf, datum)
}

// SkipBinary consumes one encoded value from buf without constructing
// a native value, used by the resolution engine to discard
// writer-only fields.
func (c *Codec) SkipBinary(buf []byte) ([]byte, error) {
	if c.skipBinary != nil {
		return c.skipBinary(buf)
	}
	_, rest, err := c.nativeFromBinary(buf)
	return rest, err
}

// TypeName returns the schema's fullname (for named types) or its
// primitive/union type string.
func (c *Codec) TypeName() string {
	if c.typeName == nil {
		return c.kind.String()
	}
	return c.typeName.fullName()
}

// Schema returns the original JSON-compatible schema this codec was
// built from.
func (c *Codec) Schema() string {
	b, err := marshalCanonicalJSON(c.schemaJSON)
	if err != nil {
		return ""
	}
	return string(b)
}

type codecOptions struct {
	strict               bool
	strictAllowDefault   bool
	disableTupleNotation bool
	returnRecordName     bool
	returnRecordNameOver bool
	unicodeMode          unicodeMode
}

type unicodeMode int

const (
	unicodeStrict unicodeMode = iota
	unicodeReplace
	unicodeIgnore
)

// CodecOption configures strict-mode and decode-shape behavior for a
// single NewCodec call, the way the teacher's NewCodecFrom accepts a
// *codecBuilder to swap behavior in.
type CodecOption func(*codecOptions)

// OptionStrict rejects records with fields absent from the schema, or
// schema fields absent from the value, regardless of declared
// defaults.
func OptionStrict() CodecOption { return func(o *codecOptions) { o.strict = true } }

// OptionStrictAllowDefault is like OptionStrict but accepts a missing
// field when the schema declares a default for it.
func OptionStrictAllowDefault() CodecOption {
	return func(o *codecOptions) { o.strictAllowDefault = true }
}

// OptionDisableTupleNotation disables the (name, value) tuple hint
// form for selecting a union branch.
func OptionDisableTupleNotation() CodecOption {
	return func(o *codecOptions) { o.disableTupleNotation = true }
}

// OptionReturnRecordName wraps union-selected records (and other named
// types) as a (fullname, value) pair on decode.
func OptionReturnRecordName() CodecOption {
	return func(o *codecOptions) { o.returnRecordName = true }
}

// OptionReturnRecordNameOverride is like OptionReturnRecordName, but
// unwraps a nullable-of-single-record union ([null, record] in either
// order) back to a plain record value.
func OptionReturnRecordNameOverride() CodecOption {
	return func(o *codecOptions) { o.returnRecordNameOver = true; o.returnRecordName = true }
}

// OptionUnicodeStrict rejects invalid UTF-8 string content (the
// default).
func OptionUnicodeStrict() CodecOption { return func(o *codecOptions) { o.unicodeMode = unicodeStrict } }

// OptionUnicodeReplace coerces invalid UTF-8 by substituting the
// Unicode replacement character.
func OptionUnicodeReplace() CodecOption {
	return func(o *codecOptions) { o.unicodeMode = unicodeReplace }
}

// OptionUnicodeIgnore coerces invalid UTF-8 by dropping invalid bytes.
func OptionUnicodeIgnore() CodecOption {
	return func(o *codecOptions) { o.unicodeMode = unicodeIgnore }
}

// NewCodec parses an Avro schema (JSON text) and returns a Codec ready
// to encode and decode values of that schema.
func NewCodec(schema string, opts ...CodecOption) (*Codec, error) {
	o := &codecOptions{}
	for _, opt := range opts {
		opt(o)
	}
	st := make(map[string]*Codec)
	tree, err := schemaJSONFromString(schema)
	if err != nil {
		return nil, &SchemaError{Msg: err.Error()}
	}
	c, err := buildCodec(st, nullNamespace, tree, o)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MustParse is like NewCodec but panics on error; useful for package
// level schema constants such as header schemas.
func MustParse(schema string) *Codec {
	c, err := NewCodec(schema)
	if err != nil {
		panic(fmt.Sprintf("avro: MustParse: %s", err))
	}
	return c
}
