// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
)

func schemaJSONFromString(schema string) (interface{}, error) {
	var tree interface{}
	dec := json.NewDecoder(strings.NewReader(schema))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("cannot unmarshal schema JSON: %s", err)
	}
	return tree, nil
}

// buildCodec is the recursive-descent entry point described in §4.2:
// dispatch on whether the schema node is a list (union), a string
// (primitive or name reference), or a map (named/compound type).
func buildCodec(st map[string]*Codec, enclosingNamespace string, schema interface{}, o *codecOptions) (*Codec, error) {
	switch v := schema.(type) {
	case []interface{}:
		return buildCodecForUnion(st, enclosingNamespace, v, o)
	case string:
		return buildCodecForString(st, enclosingNamespace, v, o)
	case map[string]interface{}:
		return buildCodecForMap(st, enclosingNamespace, v, o)
	default:
		return nil, &SchemaError{Msg: fmt.Sprintf("unexpected schema node type: %T", schema)}
	}
}

func buildCodecForString(st map[string]*Codec, enclosingNamespace string, s string, o *codecOptions) (*Codec, error) {
	if isPrimitiveTypeName(s) {
		return newPrimitiveCodec(s, o)
	}
	full := qualify(s, enclosingNamespace)
	if c, ok := st[full]; ok {
		return c, nil
	}
	if c, ok := st[s]; ok {
		return c, nil
	}
	return nil, &UnknownTypeError{Name: s}
}

func buildCodecForMap(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, o *codecOptions) (*Codec, error) {
	t, ok := m["type"]
	if !ok {
		return nil, &SchemaError{Msg: "missing type property"}
	}
	// A {"type": <node>} wrapper around a primitive/reference/list is
	// legal Avro; recurse on the inner node if type isn't a plain
	// string naming a compound kind.
	typeStr, isStr := t.(string)
	if !isStr {
		return buildCodec(st, enclosingNamespace, t, o)
	}

	switch typeStr {
	case "array":
		items, ok := m["items"]
		if !ok {
			return nil, &SchemaError{Msg: "array: missing items property"}
		}
		itemsCodec, err := buildCodec(st, enclosingNamespace, items, o)
		if err != nil {
			return nil, fmt.Errorf("array: items: %w", err)
		}
		return newArrayCodec(itemsCodec, m), nil

	case "map":
		values, ok := m["values"]
		if !ok {
			return nil, &SchemaError{Msg: "map: missing values property"}
		}
		valuesCodec, err := buildCodec(st, enclosingNamespace, values, o)
		if err != nil {
			return nil, fmt.Errorf("map: values: %w", err)
		}
		return newMapCodec(valuesCodec, m), nil

	case "fixed":
		return buildCodecForFixed(st, enclosingNamespace, m)

	case "enum":
		return buildCodecForEnum(st, enclosingNamespace, m)

	case "record", "error":
		return buildCodecForRecord(st, enclosingNamespace, m, o)

	case "null", "boolean", "int", "long", "float", "double", "bytes", "string":
		c, err := newPrimitiveCodec(typeStr, o)
		if err != nil {
			return nil, err
		}
		return applyLogicalType(c, m)

	default:
		// A bare reference wrapped in {"type": "name"}.
		return buildCodecForString(st, enclosingNamespace, typeStr, o)
	}
}

func nameAndNamespace(m map[string]interface{}, enclosing string) (*name, error) {
	n, ok := m["name"]
	if !ok {
		return nil, &SchemaError{Msg: "missing name property"}
	}
	nStr, ok := n.(string)
	if !ok || nStr == "" {
		return nil, &SchemaError{Msg: "name property must be a non-empty string"}
	}
	ns := ""
	if nsRaw, ok := m["namespace"]; ok {
		ns, _ = nsRaw.(string)
	}
	return newName(nStr, ns, enclosing), nil
}

func stringSliceFromAny(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, &SchemaError{Msg: "aliases must be a list of strings"}
	}
	out := make([]string, len(arr))
	for i, a := range arr {
		s, ok := a.(string)
		if !ok {
			return nil, &SchemaError{Msg: "aliases must be a list of strings"}
		}
		out[i] = s
	}
	return out, nil
}

func buildCodecForFixed(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}) (*Codec, error) {
	nm, err := nameAndNamespace(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("fixed: %w", err)
	}
	if _, dup := st[nm.fullName()]; dup {
		return nil, &SchemaError{Msg: fmt.Sprintf("redefined type name: %q", nm.fullName())}
	}
	sizeRaw, ok := m["size"]
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("fixed %q: missing size property", nm)}
	}
	size, err := intFromAny(sizeRaw)
	if err != nil || size < 0 {
		return nil, &SchemaError{Msg: fmt.Sprintf("fixed %q: invalid size", nm)}
	}
	aliases, err := stringSliceFromAny(m["aliases"])
	if err != nil {
		return nil, err
	}
	c := &Codec{kind: kindFixed, typeName: nm, size: size, aliases: aliases, schemaJSON: m}
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		if len(buf) < size {
			return nil, nil, &EOFError{Msg: "fixed"}
		}
		v := make([]byte, size)
		copy(v, buf[:size])
		return v, buf[size:], nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		v, err := bytesFromDatum(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary fixed %q: %s", nm, err)
		}
		if len(v) != size {
			return nil, &ValueMismatchError{Path: nm.fullName(), Msg: fmt.Sprintf("fixed %q requires %d bytes; received %d", nm, size, len(v))}
		}
		return append(buf, v...), nil
	}
	c.skipBinary = func(buf []byte) ([]byte, error) {
		if len(buf) < size {
			return nil, &EOFError{Msg: "fixed"}
		}
		return buf[size:], nil
	}
	st[nm.fullName()] = c
	return applyLogicalType(c, m)
}

func buildCodecForEnum(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}) (*Codec, error) {
	nm, err := nameAndNamespace(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("enum: %w", err)
	}
	if _, dup := st[nm.fullName()]; dup {
		return nil, &SchemaError{Msg: fmt.Sprintf("redefined type name: %q", nm.fullName())}
	}
	symsRaw, ok := m["symbols"]
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("enum %q: missing symbols property", nm)}
	}
	symsArr, ok := symsRaw.([]interface{})
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("enum %q: symbols must be a list", nm)}
	}
	seen := make(map[string]bool, len(symsArr))
	symbols := make([]string, len(symsArr))
	for i, s := range symsArr {
		sym, ok := s.(string)
		if !ok || !isValidIdentifier(sym) {
			return nil, &SchemaError{Msg: fmt.Sprintf("enum %q: invalid symbol: %v", nm, s)}
		}
		if seen[sym] {
			return nil, &SchemaError{Msg: fmt.Sprintf("enum %q: duplicate symbol: %q", nm, sym)}
		}
		seen[sym] = true
		symbols[i] = sym
	}
	aliases, err := stringSliceFromAny(m["aliases"])
	if err != nil {
		return nil, err
	}
	c := &Codec{kind: kindEnum, typeName: nm, symbols: symbols, aliases: aliases, schemaJSON: m}
	if def, ok := m["default"]; ok {
		defStr, ok := def.(string)
		if !ok || !slices.Contains(symbols, defStr) {
			return nil, &SchemaError{Msg: fmt.Sprintf("enum %q: default %v not among symbols", nm, def)}
		}
		c.hasEnumDefault = true
		c.enumDefault = defStr
	}
	indexOf := make(map[string]int, len(symbols))
	for i, s := range symbols {
		indexOf[s] = i
	}
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		idx, rest, err := intNativeFromBinary(buf)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode binary enum %q: %s", nm, err)
		}
		i := int(idx.(int32))
		if i < 0 || i >= len(symbols) {
			return nil, nil, &CorruptFrameError{Msg: fmt.Sprintf("cannot decode binary enum %q: index out of range: %d", nm, i)}
		}
		return symbols[i], rest, nil
	}
	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		s, ok := datum.(string)
		if !ok {
			if str, ok2 := datum.(fmt.Stringer); ok2 {
				s = str.String()
			} else {
				return nil, fmt.Errorf("cannot encode binary enum %q: expected Go string; received: %T", nm, datum)
			}
		}
		i, ok := indexOf[s]
		if !ok {
			return nil, fmt.Errorf("cannot encode binary enum %q: value ought to be member of symbols: %v; %q", nm, symbols, s)
		}
		return intBinaryFromNative(buf, int32(i))
	}
	c.skipBinary = func(buf []byte) ([]byte, error) {
		_, rest, err := intNativeFromBinary(buf)
		return rest, err
	}
	st[nm.fullName()] = c
	return c, nil
}

func buildCodecForRecord(st map[string]*Codec, enclosingNamespace string, m map[string]interface{}, o *codecOptions) (*Codec, error) {
	nm, err := nameAndNamespace(m, enclosingNamespace)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if _, dup := st[nm.fullName()]; dup {
		return nil, &SchemaError{Msg: fmt.Sprintf("redefined type name: %q", nm.fullName())}
	}
	aliases, err := stringSliceFromAny(m["aliases"])
	if err != nil {
		return nil, err
	}
	c := &Codec{kind: kindRecord, typeName: nm, aliases: aliases, schemaJSON: m}
	if doc, ok := m["doc"].(string); ok {
		c.doc = doc
	}
	// Insert the name BEFORE parsing fields so self-references resolve
	// (§4.2 step 3, record/error).
	st[nm.fullName()] = c

	fieldsRaw, ok := m["fields"]
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("record %q: missing fields property", nm)}
	}
	fieldsArr, ok := fieldsRaw.([]interface{})
	if !ok {
		return nil, &SchemaError{Msg: fmt.Sprintf("record %q: fields must be a list", nm)}
	}
	fields := make([]*recordField, len(fieldsArr))
	seen := make(map[string]bool, len(fieldsArr))
	for i, fr := range fieldsArr {
		fm, ok := fr.(map[string]interface{})
		if !ok {
			return nil, &SchemaError{Msg: fmt.Sprintf("record %q: field %d must be a map", nm, i)}
		}
		fname, ok := fm["name"].(string)
		if !ok || fname == "" {
			return nil, &SchemaError{Msg: fmt.Sprintf("record %q: field %d missing name", nm, i)}
		}
		if seen[fname] {
			return nil, &SchemaError{Msg: fmt.Sprintf("record %q: duplicate field name: %q", nm, fname)}
		}
		seen[fname] = true
		ftype, ok := fm["type"]
		if !ok {
			return nil, &SchemaError{Msg: fmt.Sprintf("record %q: field %q missing type", nm, fname)}
		}
		fcodec, err := buildCodec(st, nm.namespace, ftype, o)
		if err != nil {
			return nil, fmt.Errorf("record %q: field %q: %w", nm, fname, err)
		}
		falias, err := stringSliceFromAny(fm["aliases"])
		if err != nil {
			return nil, err
		}
		rf := &recordField{name: fname, codec: fcodec, aliases: falias}
		if doc, ok := fm["doc"].(string); ok {
			rf.doc = doc
		}
		if def, ok := fm["default"]; ok {
			rf.hasDefault = true
			rf.def = def
			// JSON numbers arrive as json.Number; keep numeric defaults
			// as the Go type the field's primitive codec works with.
			if n, isNum := def.(json.Number); isNum {
				i, ierr := n.Int64()
				f, ferr := n.Float64()
				switch {
				case fcodec.kind == kindInt && ierr == nil:
					rf.def = int32(i)
				case fcodec.kind == kindLong && ierr == nil:
					rf.def = i
				case fcodec.kind == kindFloat && ferr == nil:
					rf.def = float32(f)
				case fcodec.kind == kindDouble && ferr == nil:
					rf.def = f
				}
			}
		}
		fields[i] = rf
	}
	c.fields = fields

	c.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		valueMap, err := recordValueMap(datum)
		if err != nil {
			return nil, fmt.Errorf("cannot encode binary record %q: %s", nm, err)
		}
		if o.strict || o.strictAllowDefault {
			if err := checkStrictRecord(nm.fullName(), fields, valueMap, o); err != nil {
				return nil, err
			}
		}
		var err2 error
		for _, f := range fields {
			v, ok := valueMap[f.name]
			if !ok {
				if !f.hasDefault {
					return nil, &ValueMismatchError{Path: nm.fullName() + "." + f.name, Msg: "value missing and field has no default"}
				}
				v = f.def
			}
			buf, err2 = f.codec.binaryFromNative(buf, v)
			if err2 != nil {
				return nil, fmt.Errorf("cannot encode binary record %q field %q: %w", nm, f.name, err2)
			}
		}
		return buf, nil
	}
	c.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		out := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			v, rest, err := f.codec.nativeFromBinary(buf)
			if err != nil {
				return nil, nil, fmt.Errorf("cannot decode binary record %q field %q: %w", nm, f.name, err)
			}
			out[f.name] = v
			buf = rest
		}
		return out, buf, nil
	}
	c.skipBinary = func(buf []byte) ([]byte, error) {
		var err error
		for _, f := range fields {
			buf, err = f.codec.SkipBinary(buf)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return c, nil
}

func checkStrictRecord(path string, fields []*recordField, valueMap map[string]interface{}, o *codecOptions) error {
	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		declared[f.name] = true
		if _, ok := valueMap[f.name]; !ok {
			if o.strictAllowDefault && f.hasDefault {
				continue
			}
			return &ValueMismatchError{Path: path, Msg: fmt.Sprintf("strict mode: field %q present in schema but absent from value", f.name)}
		}
	}
	for k := range valueMap {
		if !declared[k] {
			return &ValueMismatchError{Path: path, Msg: fmt.Sprintf("strict mode: field %q present in value but absent from schema", k)}
		}
	}
	return nil
}

func recordValueMap(datum interface{}) (map[string]interface{}, error) {
	switch v := datum.(type) {
	case map[string]interface{}:
		return v, nil
	default:
		return nil, fmt.Errorf("expected Go map[string]interface{}; received: %T", datum)
	}
}

func intFromAny(v interface{}) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number; received %T", v)
	}
}

func floatFromAny(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number; received %T", v)
	}
}

// decimalMaxPrecisionForSize is floor(log10(2) * (8*size - 1)), the
// largest decimal precision a `fixed` of this byte size can hold.
func decimalMaxPrecisionForSize(size int) int {
	return int(math.Floor(math.Log10(2) * float64(8*size-1)))
}
