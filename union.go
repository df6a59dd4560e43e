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

// codecInfo is a set of quick lookups holding all the bookkeeping
// needed to handle the member list of a union: the generalization of
// the teacher's original codecInfo to an arbitrary number of members
// instead of the restricted two-member (null, other) case.
type codecInfo struct {
	allowedTypes   []string
	codecFromIndex []*Codec
	codecFromName  map[string]*Codec
	indexFromName  map[string]int
}

// makeCodecInfo takes the union's member schema array and builds the
// lookup indices used by both encode and decode.
func makeCodecInfo(st map[string]*Codec, enclosingNamespace string, schemaArray []interface{}, o *codecOptions) (codecInfo, error) {
	allowedTypes := make([]string, len(schemaArray))
	codecFromIndex := make([]*Codec, len(schemaArray))
	codecFromName := make(map[string]*Codec, len(schemaArray))
	indexFromName := make(map[string]int, len(schemaArray))

	for i, memberSchema := range schemaArray {
		memberCodec, err := buildCodec(st, enclosingNamespace, memberSchema, o)
		if err != nil {
			return codecInfo{}, fmt.Errorf("union item %d ought to be valid Avro type: %w", i+1, err)
		}
		if memberCodec.kind == kindUnion {
			return codecInfo{}, fmt.Errorf("union item %d: unions may not immediately contain other unions", i+1)
		}
		key := unionMemberKey(memberCodec)
		if _, ok := indexFromName[key]; ok {
			return codecInfo{}, fmt.Errorf("union item %d ought to be unique type: %s", i+1, key)
		}
		allowedTypes[i] = key
		codecFromIndex[i] = memberCodec
		codecFromName[key] = memberCodec
		indexFromName[key] = i
	}

	return codecInfo{
		allowedTypes:   allowedTypes,
		codecFromIndex: codecFromIndex,
		codecFromName:  codecFromName,
		indexFromName:  indexFromName,
	}, nil
}

// unionMemberKey is the name a union member is looked up by: the
// fullname for named types (record/enum/fixed), the kind string
// otherwise. This is also the per-spec uniqueness key ("no two
// members may be the same non-named type, and at most one of each
// named type").
func unionMemberKey(c *Codec) string {
	switch c.kind {
	case kindRecord, kindEnum, kindFixed:
		return c.typeName.fullName()
	default:
		return c.kind.String()
	}
}

// buildCodecForUnion implements §3/§4.2's union schema parsing and
// wires in the §4.3/§4.4 encode/decode behavior.
func buildCodecForUnion(st map[string]*Codec, enclosingNamespace string, schemaArray []interface{}, o *codecOptions) (*Codec, error) {
	ci, err := makeCodecInfo(st, enclosingNamespace, schemaArray, o)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		kind:       kindUnion,
		typeName:   &name{"union", nullNamespace},
		unionInfo:  &ci,
		schemaJSON: schemaArray,
	}

	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		idxVal, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode binary union: %s", err)
		}
		index := idxVal.(int64)
		if index < 0 || index >= int64(len(ci.codecFromIndex)) {
			return nil, nil, &CorruptFrameError{Msg: fmt.Sprintf("cannot decode binary union: index ought to be between 0 and %d; read index: %d", len(ci.codecFromIndex)-1, index)}
		}
		member := ci.codecFromIndex[index]
		decoded, rest2, err := member.nativeFromBinary(rest)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode binary union item %d: %w", index+1, err)
		}
		return wrapUnionDecoded(&ci, member, decoded, o), rest2, nil
	}

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		index, value, err := selectUnionBranch(&ci, datum, o)
		if err != nil {
			return nil, err
		}
		buf, err = longBinaryFromNative(buf, int64(index))
		if err != nil {
			return nil, err
		}
		return ci.codecFromIndex[index].binaryFromNative(buf, value)
	}

	c.skipBinary = func(buf []byte) ([]byte, error) {
		idxVal, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, err
		}
		index := idxVal.(int64)
		if index < 0 || index >= int64(len(ci.codecFromIndex)) {
			return nil, &CorruptFrameError{Msg: "cannot skip binary union: index out of range"}
		}
		return ci.codecFromIndex[index].SkipBinary(rest)
	}

	return c, nil
}

// wrapUnionDecoded applies the return-record-name decode option
// (§4.4): off by default, wraps named-type results as (fullname,
// value) under return_record_name, and unwraps the single-record
// nullable case under the _override flavor.
func wrapUnionDecoded(ci *codecInfo, member *Codec, decoded interface{}, o *codecOptions) interface{} {
	if decoded == nil || !o.returnRecordName {
		return decoded
	}
	switch member.kind {
	case kindRecord, kindEnum, kindFixed:
		if o.returnRecordNameOver && isNullableSingleRecordUnion(ci) {
			return decoded
		}
		return map[string]interface{}{member.TypeName(): decoded}
	default:
		return decoded
	}
}

func isNullableSingleRecordUnion(ci *codecInfo) bool {
	if len(ci.codecFromIndex) != 2 {
		return false
	}
	var sawNull, sawRecord bool
	for _, m := range ci.codecFromIndex {
		if m.kind == kindNull {
			sawNull = true
		} else if m.kind == kindRecord {
			sawRecord = true
		}
	}
	return sawNull && sawRecord
}

// Union wraps datum as an explicit branch-selection hint for encoding
// into a union schema: map[string]interface{}{name: datum}. name must
// match a member's fullname (named types) or primitive/compound kind
// string.
func Union(name string, datum interface{}) map[string]interface{} {
	return map[string]interface{}{name: datum}
}

const explicitTypeKey = "-type"

// selectUnionBranch implements §4.3's union member selection: explicit
// hints first, then the deterministic structural scan with the
// record-overlap and float-before-double tie-breaks.
func selectUnionBranch(ci *codecInfo, datum interface{}, o *codecOptions) (int, interface{}, error) {
	if datum == nil {
		if idx, ok := ci.indexFromName["null"]; ok {
			return idx, nil, nil
		}
		return 0, nil, &UnionMatchError{Value: datum, AllowedTypes: ci.allowedTypes}
	}

	// record-embedded "-type" hint
	if m, ok := datum.(map[string]interface{}); ok {
		if tv, ok := m["-type"]; ok {
			if tname, ok := tv.(string); ok {
				idx, ok := ci.indexFromName[tname]
				if !ok {
					return 0, nil, &UnionMatchError{Value: datum, AllowedTypes: ci.allowedTypes}
				}
				stripped := make(map[string]interface{}, len(m)-1)
				for k, v := range m {
					if k != explicitTypeKey {
						stripped[k] = v
					}
				}
				return idx, stripped, nil
			}
		}
		// tuple-notation hint: single-key map naming a member
		if !o.disableTupleNotation && len(m) == 1 {
			for k, v := range m {
				if idx, ok := ci.indexFromName[k]; ok {
					return idx, v, nil
				}
			}
		}
	}

	return structuralSelectUnionBranch(ci, datum)
}

// structuralSelectUnionBranch scans candidates in declared order.
// Non-record, non-map candidates resolve on first structural match
// (with the float-before-double override held open until a double is
// ruled out). Map and record candidates share a Go shape
// (map[string]interface{}) so they are deferred to a second pass: any
// matching record wins (by largest field-set overlap, ties going to
// the first declared), falling back to the first matching map.
func structuralSelectUnionBranch(ci *codecInfo, datum interface{}) (int, interface{}, error) {
	floatIdx := -1
	mapIdx := -1
	bestRecordIdx := -1
	bestRecordOverlap := -1

	for i, c := range ci.codecFromIndex {
		if !valueMatchesSchema(c, datum) {
			continue
		}
		switch c.kind {
		case kindRecord:
			overlap := recordFieldOverlap(c, datum)
			if overlap > bestRecordOverlap {
				bestRecordOverlap = overlap
				bestRecordIdx = i
			}
		case kindMap:
			if mapIdx == -1 {
				mapIdx = i
			}
		case kindFloat:
			if floatIdx == -1 {
				floatIdx = i
			}
		case kindDouble:
			return i, datum, nil
		default:
			if floatIdx != -1 {
				continue // a float match is held; only a double overrides it
			}
			return i, datum, nil
		}
	}

	if bestRecordIdx != -1 {
		return bestRecordIdx, datum, nil
	}
	if mapIdx != -1 {
		return mapIdx, datum, nil
	}
	if floatIdx != -1 {
		return floatIdx, datum, nil
	}
	return 0, nil, &UnionMatchError{Value: datum, AllowedTypes: ci.allowedTypes}
}

func recordFieldOverlap(c *Codec, datum interface{}) int {
	m, ok := datum.(map[string]interface{})
	if !ok {
		return 0
	}
	overlap := 0
	for _, f := range c.fields {
		if _, ok := m[f.name]; ok {
			overlap++
		}
	}
	return overlap
}
