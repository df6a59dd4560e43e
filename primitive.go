// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "fmt"

// newPrimitiveCodec builds the Codec for one of the eight Avro
// primitive types, wiring in the §4.1 binary primitive functions. o
// may be nil, in which case string decoding uses the default strict
// Unicode mode (see OptionUnicodeStrict).
func newPrimitiveCodec(typeName string, o *codecOptions) (*Codec, error) {
	c := &Codec{schemaJSON: typeName}
	switch typeName {
	case "null":
		c.kind = kindNull
		c.nativeFromBinary = nullNativeFromBinary
		c.binaryFromNative = nullBinaryFromNative
		c.skipBinary = func(buf []byte) ([]byte, error) { return buf, nil }
	case "boolean":
		c.kind = kindBoolean
		c.nativeFromBinary = booleanNativeFromBinary
		c.binaryFromNative = booleanBinaryFromNative
		c.skipBinary = func(buf []byte) ([]byte, error) {
			if len(buf) < 1 {
				return nil, &EOFError{Msg: "boolean"}
			}
			return buf[1:], nil
		}
	case "int":
		c.kind = kindInt
		c.nativeFromBinary = intNativeFromBinary
		c.binaryFromNative = intBinaryFromNative
		c.skipBinary = skipVarint
	case "long":
		c.kind = kindLong
		c.nativeFromBinary = longNativeFromBinary
		c.binaryFromNative = longBinaryFromNative
		c.skipBinary = skipVarint
	case "float":
		c.kind = kindFloat
		c.nativeFromBinary = floatNativeFromBinary
		c.binaryFromNative = floatBinaryFromNative
		c.skipBinary = func(buf []byte) ([]byte, error) {
			if len(buf) < 4 {
				return nil, &EOFError{Msg: "float"}
			}
			return buf[4:], nil
		}
	case "double":
		c.kind = kindDouble
		c.nativeFromBinary = doubleNativeFromBinary
		c.binaryFromNative = doubleBinaryFromNative
		c.skipBinary = func(buf []byte) ([]byte, error) {
			if len(buf) < 8 {
				return nil, &EOFError{Msg: "double"}
			}
			return buf[8:], nil
		}
	case "bytes":
		c.kind = kindBytes
		c.nativeFromBinary = bytesNativeFromBinary
		c.binaryFromNative = bytesBinaryFromNative
		c.skipBinary = skipLengthPrefixed
	case "string":
		mode := unicodeStrict
		if o != nil {
			mode = o.unicodeMode
		}
		c.kind = kindString
		c.nativeFromBinary = stringNativeFromBinaryMode(mode)
		c.binaryFromNative = stringBinaryFromNative
		c.skipBinary = skipLengthPrefixed
	default:
		return nil, fmt.Errorf("unknown primitive type: %q", typeName)
	}
	return c, nil
}

func skipVarint(buf []byte) ([]byte, error) {
	_, rest, err := varintUint64FromBinary(buf)
	return rest, err
}

func skipLengthPrefixed(buf []byte) ([]byte, error) {
	n, rest, err := varintUint64FromBinary(buf)
	if err != nil {
		return nil, err
	}
	size := zigZagDecode64(n)
	if size < 0 || int64(len(rest)) < size {
		return nil, &EOFError{Msg: "length-prefixed"}
	}
	return rest[size:], nil
}
