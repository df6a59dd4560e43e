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

// newMapCodec builds the Codec for a map schema: block-framed like an
// array, but every item is a UTF-8 key followed by the value.
func newMapCodec(values *Codec, m map[string]interface{}) *Codec {
	c := &Codec{kind: kindMap, valuesCodec: values, schemaJSON: m}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		out := make(map[string]interface{})
		for {
			countVal, rest, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary map: %s", err)
			}
			buf = rest
			count := countVal.(int64)
			if count == 0 {
				break
			}
			if count < 0 {
				count = -count
				_, rest, err := longNativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary map: %s", err)
				}
				buf = rest
			}
			if count > MaxBlockCount {
				return nil, nil, fmt.Errorf("cannot decode binary map: block count exceeds limit: %d", count)
			}
			for i := int64(0); i < count; i++ {
				keyVal, rest, err := stringNativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary map key: %w", err)
				}
				buf = rest
				v, rest2, err := values.nativeFromBinary(buf)
				if err != nil {
					return nil, nil, fmt.Errorf("cannot decode binary map value for key %q: %w", keyVal, err)
				}
				out[keyVal.(string)] = v
				buf = rest2
			}
		}
		return out, buf, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		m, err := mapFromDatum(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary map: %s", err)
		}
		if len(m) > 0 {
			buf, err = longBinaryFromNative(buf, int64(len(m)))
			if err != nil {
				return nil, err
			}
			for k, v := range m {
				buf, err = stringBinaryFromNative(buf, k)
				if err != nil {
					return nil, err
				}
				buf, err = values.binaryFromNative(buf, v)
				if err != nil {
					return nil, fmt.Errorf("cannot encode binary map value for key %q: %w", k, err)
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
					return nil, &EOFError{Msg: "map block"}
				}
				buf = buf[size:]
				continue
			}
			for i := int64(0); i < count; i++ {
				buf, err = skipLengthPrefixed(buf)
				if err != nil {
					return nil, err
				}
				buf, err = values.SkipBinary(buf)
				if err != nil {
					return nil, err
				}
			}
		}
		return buf, nil
	}

	return c
}

func mapFromDatum(datum interface{}) (map[string]interface{}, error) {
	switch v := datum.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected Go map[string]interface{}; received: %T", datum)
	}
}
