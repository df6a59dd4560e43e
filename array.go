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

// newArrayCodec builds the Codec for an array schema: block-framed per
// §4.1/§4.3, a positive long count followed by that many items,
// terminated by a zero-count long. A negative count is followed by a
// byte-size that must be honored even when skipping.
func newArrayCodec(items *Codec, m map[string]interface{}) *Codec {
	c := &Codec{kind: kindArray, itemsCodec: items, schemaJSON: m}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		var out []interface{}
		for {
			countVal, rest, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary array: %s", err)
			}
			buf = rest
			count := countVal.(int64)
			if count == 0 {
				break
			}
			if count < 0 {
				count = -count
				// byte size of the block follows; consumed then ignored
				// since we decode item by item anyway.
				_, rest, err := longNativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary array: %s", err)
				}
				buf = rest
			}
			if count > MaxBlockCount {
				return nil, nil, fmt.Errorf("cannot decode binary array: block count exceeds limit: %d", count)
			}
			for i := int64(0); i < count; i++ {
				v, rest, err := items.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary array item %d: %w", i+1, err)
				}
				out = append(out, v)
				buf = rest
			}
		}
		if out == nil {
			out = []interface{}{}
		}
		return out, buf, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		slice, err := sliceFromDatum(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary array: %s", err)
		}
		if len(slice) > 0 {
			buf, err = longBinaryFromNative(buf, int64(len(slice)))
			if err != nil {
				return nil, err
			}
			for i, v := range slice {
				buf, err = items.binaryFromNative(buf, v)
				if err != nil {
					return nil, fmt.Errorf("cannot encode binary array item %d: %w", i+1, err)
				}
			}
		}
		return longBinaryFromNative(buf, 0)
	}

	c.skipBinary = func(buf []byte) ([]byte, error) {
		var err error
		for {
			countVal, rest, err2 := longNativeFromBinary(buf)
			if err2 != nil {
				return nil, err2
			}
			buf = rest
			count := countVal.(int64)
			if count == 0 {
				break
			}
			if count < 0 {
				count = -count
				sizeVal, rest, err2 := longNativeFromBinary(buf)
				if err2 != nil {
					return nil, err2
				}
				size := sizeVal.(int64)
				buf = rest
				if int64(len(buf)) < size {
					return nil, &EOFError{Msg: "array block"}
				}
				buf = buf[size:]
				continue
			}
			for i := int64(0); i < count; i++ {
				buf, err = items.SkipBinary(buf)
				if err != nil {
					return nil, err
				}
			}
		}
		return buf, nil
	}

	return c
}

// sliceFromDatum accepts any of the common Go slice-of-anything shapes
// a caller might reasonably hand in for an array value.
func sliceFromDatum(datum interface{}) ([]interface{}, error) {
	switch v := datum.(type) {
	case []interface{}:
		return v, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []int64:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected Go slice; received: %T", datum)
	}
}
