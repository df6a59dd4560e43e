// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

// valueMatchesSchema performs the cheap structural match described in
// §3 ("Value validator"): does datum have the shape this codec's
// schema requires? It is used to drive union branch selection
// (§4.3) without fully encoding the candidate.
func valueMatchesSchema(c *Codec, datum interface{}) bool {
	if c.logicalPrepare != nil {
		if v2, err := c.logicalPrepare(datum, c); err == nil {
			datum = v2
		}
	}
	switch c.kind {
	case kindNull:
		return datum == nil
	case kindBoolean:
		_, ok := datum.(bool)
		return ok
	case kindInt, kindLong:
		return isIntLike(datum)
	case kindFloat, kindDouble:
		return isNumericLike(datum)
	case kindBytes:
		_, ok := datum.([]byte)
		return ok
	case kindString:
		_, ok := datum.(string)
		return ok
	case kindFixed:
		b, ok := datum.([]byte)
		return ok && len(b) == c.size
	case kindEnum:
		s, ok := datum.(string)
		if !ok {
			return false
		}
		for _, sym := range c.symbols {
			if sym == s {
				return true
			}
		}
		return false
	case kindArray:
		switch datum.(type) {
		case []interface{}, []string, []int, []int64, []float64:
			return true
		default:
			return false
		}
	case kindMap:
		_, ok := datum.(map[string]interface{})
		return ok
	case kindRecord:
		m, ok := datum.(map[string]interface{})
		if !ok {
			return false
		}
		for _, f := range c.fields {
			v, present := m[f.name]
			if !present {
				if f.hasDefault {
					continue
				}
				return false
			}
			if !valueMatchesSchema(f.codec, v) && v != nil {
				return false
			}
		}
		return true
	case kindUnion:
		for _, m := range c.unionInfo.codecFromIndex {
			if valueMatchesSchema(m, datum) {
				return true
			}
		}
		return false
	}
	return false
}

func isIntLike(datum interface{}) bool {
	switch v := datum.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return float32(int64(v)) == v
	case float64:
		return float64(int64(v)) == v
	default:
		return false
	}
}

func isNumericLike(datum interface{}) bool {
	switch datum.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}
