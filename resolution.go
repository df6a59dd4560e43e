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
	"fmt"

	"golang.org/x/exp/slices"
)

// Resolver projects a byte stream written under a writer schema
// through a reader schema, per §4.5. Real goavro has no such engine;
// this is the largest supplement this module adds over the teacher.
type Resolver struct {
	writer, reader *Codec
	decode         func(buf []byte) (interface{}, []byte, error)
}

type resolverKey struct{ w, r *Codec }

// NewResolver builds a Resolver that decodes bytes written under
// writer and produces values shaped according to reader.
func NewResolver(writer, reader *Codec) (*Resolver, error) {
	cache := map[resolverKey]func(buf []byte) (interface{}, []byte, error){}
	fn, err := buildResolver(writer, reader, cache, "")
	if err != nil {
		return nil, err
	}
	return &Resolver{writer: writer, reader: reader, decode: fn}, nil
}

// NativeFromBinary decodes one writer-schema-encoded value, resolved
// against the reader schema.
func (r *Resolver) NativeFromBinary(buf []byte) (interface{}, []byte, error) {
	return r.decode(buf)
}

func buildResolver(w, rd *Codec, cache map[resolverKey]func([]byte) (interface{}, []byte, error), path string) (func([]byte) (interface{}, []byte, error), error) {
	key := resolverKey{w, rd}
	if fn, ok := cache[key]; ok {
		return fn, nil
	}

	// placeholder slot to break cycles through recursive records
	var resolved func([]byte) (interface{}, []byte, error)
	cache[key] = func(buf []byte) (interface{}, []byte, error) { return resolved(buf) }

	fn, err := buildResolverUncached(w, rd, cache, path)
	if err != nil {
		delete(cache, key)
		return nil, err
	}
	resolved = fn
	cache[key] = fn
	return fn, nil
}

func buildResolverUncached(w, rd *Codec, cache map[resolverKey]func([]byte) (interface{}, []byte, error), path string) (func([]byte) (interface{}, []byte, error), error) {
	// Union on the writer side: read the index, resolve the chosen
	// member against the reader (which may or may not itself be a
	// union).
	if w.kind == kindUnion {
		return buildResolverForWriterUnion(w, rd, cache, path)
	}
	if rd.kind == kindUnion {
		return buildResolverForReaderUnion(w, rd, cache, path)
	}

	if promoted, ok := promotionResolver(w, rd); ok {
		return promoted, nil
	}

	switch w.kind {
	case kindNull, kindBoolean, kindInt, kindLong, kindFloat, kindDouble, kindBytes, kindString:
		if w.kind != rd.kind {
			return nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer type %s incompatible with reader type %s", w.kind, rd.kind)}
		}
		return rd.nativeFromBinary, nil

	case kindFixed:
		if rd.kind != kindFixed || !namedTypesCompatible(w, rd) || w.size != rd.size {
			return nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer fixed %q incompatible with reader %q", w.typeName, rd.typeName)}
		}
		return w.nativeFromBinary, nil

	case kindEnum:
		return buildEnumResolver(w, rd, path)

	case kindArray:
		if rd.kind != kindArray {
			return nil, &ResolutionError{Path: path, Msg: "writer array incompatible with reader " + rd.kind.String()}
		}
		itemFn, err := buildResolver(w.itemsCodec, rd.itemsCodec, cache, path+"[]")
		if err != nil {
			return nil, err
		}
		return arrayResolverFromItemFn(itemFn), nil

	case kindMap:
		if rd.kind != kindMap {
			return nil, &ResolutionError{Path: path, Msg: "writer map incompatible with reader " + rd.kind.String()}
		}
		valFn, err := buildResolver(w.valuesCodec, rd.valuesCodec, cache, path+"{}")
		if err != nil {
			return nil, err
		}
		return mapResolverFromValueFn(valFn), nil

	case kindRecord:
		if rd.kind != kindRecord || !namedTypesCompatible(w, rd) {
			return nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer record %q incompatible with reader %q", w.typeName, rd.typeName)}
		}
		return buildRecordResolver(w, rd, cache, path)
	}
	return nil, &ResolutionError{Path: path, Msg: "unsupported writer schema kind"}
}

// namedTypesCompatible implements §4.5's named-type matching rule:
// equal unqualified name, or the writer name appears in the reader's
// aliases.
func namedTypesCompatible(w, rd *Codec) bool {
	if w.typeName.short == rd.typeName.short {
		return true
	}
	full := w.typeName.fullName()
	for _, a := range rd.aliases {
		if a == full || a == w.typeName.short {
			return true
		}
	}
	return false
}

func promotionResolver(w, rd *Codec) (func([]byte) (interface{}, []byte, error), bool) {
	promote := func(conv func(interface{}) interface{}) func([]byte) (interface{}, []byte, error) {
		return func(buf []byte) (interface{}, []byte, error) {
			v, rest, err := w.nativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
			}
			return conv(v), rest, nil
		}
	}
	switch {
	case w.kind == kindInt && rd.kind == kindLong:
		return promote(func(v interface{}) interface{} { return int64(v.(int32)) }), true
	case w.kind == kindInt && rd.kind == kindFloat:
		return promote(func(v interface{}) interface{} { return float32(v.(int32)) }), true
	case w.kind == kindInt && rd.kind == kindDouble:
		return promote(func(v interface{}) interface{} { return float64(v.(int32)) }), true
	case w.kind == kindLong && rd.kind == kindFloat:
		return promote(func(v interface{}) interface{} { return float32(v.(int64)) }), true
	case w.kind == kindLong && rd.kind == kindDouble:
		return promote(func(v interface{}) interface{} { return float64(v.(int64)) }), true
	case w.kind == kindFloat && rd.kind == kindDouble:
		return promote(func(v interface{}) interface{} { return float64(v.(float32)) }), true
	case w.kind == kindString && rd.kind == kindBytes:
		return promote(func(v interface{}) interface{} { return []byte(v.(string)) }), true
	case w.kind == kindBytes && rd.kind == kindString:
		return promote(func(v interface{}) interface{} { return string(v.([]byte)) }), true
	}
	return nil, false
}

func buildEnumResolver(w, rd *Codec, path string) (func([]byte) (interface{}, []byte, error), error) {
	if rd.kind != kindEnum || !namedTypesCompatible(w, rd) {
		return nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer enum %q incompatible with reader %q", w.typeName, rd.typeName)}
	}
	readerHas := make(map[string]bool, len(rd.symbols))
	for _, s := range rd.symbols {
		readerHas[s] = true
	}
	return func(buf []byte) (interface{}, []byte, error) {
		sym, rest, err := w.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		s := sym.(string)
		if readerHas[s] {
			return s, rest, nil
		}
		if rd.hasEnumDefault {
			return rd.enumDefault, rest, nil
		}
		return nil, nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer symbol %q absent from reader and reader has no default", s)}
	}, nil
}

func arrayResolverFromItemFn(itemFn func([]byte) (interface{}, []byte, error)) func([]byte) (interface{}, []byte, error) {
	return func(buf []byte) (interface{}, []byte, error) {
		var out []interface{}
		for {
			countVal, rest, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
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
					return nil, nil, err
				}
				buf = rest
			}
			for i := int64(0); i < count; i++ {
				v, rest, err := itemFn(buf)
				if err != nil {
					return nil, nil, err
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
}

func mapResolverFromValueFn(valFn func([]byte) (interface{}, []byte, error)) func([]byte) (interface{}, []byte, error) {
	return func(buf []byte) (interface{}, []byte, error) {
		out := make(map[string]interface{})
		for {
			countVal, rest, err := longNativeFromBinary(buf)
			if err != nil {
				return nil, nil, err
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
					return nil, nil, err
				}
				buf = rest
			}
			for i := int64(0); i < count; i++ {
				keyVal, rest, err := stringNativeFromBinary(buf)
				if err != nil {
					return nil, nil, err
				}
				buf = rest
				v, rest2, err := valFn(buf)
				if err != nil {
					return nil, nil, err
				}
				out[keyVal.(string)] = v
				buf = rest2
			}
		}
		return out, buf, nil
	}
}

type resolvedField struct {
	name    string
	fn      func([]byte) (interface{}, []byte, error)
	skip    bool
	skipFn  func([]byte) ([]byte, error)
	useDef  bool
	def     interface{}
	rdField string
}

func buildRecordResolver(w, rd *Codec, cache map[resolverKey]func([]byte) (interface{}, []byte, error), path string) (func([]byte) (interface{}, []byte, error), error) {
	writerByName := make(map[string]*recordField, len(w.fields))
	for _, f := range w.fields {
		writerByName[f.name] = f
	}

	// For each writer field (in writer order, since binary layout is
	// writer order): find the matching reader field by name or alias,
	// or mark it to be skipped.
	var plan []resolvedField
	matchedReaderFields := make(map[string]bool, len(rd.fields))
	for _, wf := range w.fields {
		rf := findReaderField(rd, wf.name)
		if rf == nil {
			plan = append(plan, resolvedField{name: wf.name, skip: true, skipFn: wf.codec.SkipBinary})
			continue
		}
		matchedReaderFields[rf.name] = true
		fn, err := buildResolver(wf.codec, rf.codec, cache, path+"."+wf.name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, resolvedField{name: rf.name, fn: fn})
	}

	// Reader fields the writer never mentioned need a declared default.
	var defaults []resolvedField
	for _, rf := range rd.fields {
		if matchedReaderFields[rf.name] {
			continue
		}
		if !rf.hasDefault {
			return nil, &ResolutionError{Path: path + "." + rf.name, Msg: "reader field absent from writer and has no default"}
		}
		defaults = append(defaults, resolvedField{name: rf.name, useDef: true, def: rf.def})
	}

	return func(buf []byte) (interface{}, []byte, error) {
		out := make(map[string]interface{}, len(rd.fields))
		var err error
		for _, p := range plan {
			if p.skip {
				buf, err = p.skipFn(buf)
				if err != nil {
					return nil, nil, err
				}
				continue
			}
			var v interface{}
			v, buf, err = p.fn(buf)
			if err != nil {
				return nil, nil, err
			}
			out[p.name] = v
		}
		for _, d := range defaults {
			out[d.name] = d.def
		}
		return out, buf, nil
	}, nil
}

func findReaderField(rd *Codec, writerFieldName string) *recordField {
	for _, rf := range rd.fields {
		if rf.name == writerFieldName || slices.Contains(rf.aliases, writerFieldName) {
			return rf
		}
	}
	return nil
}

func buildResolverForWriterUnion(w, rd *Codec, cache map[resolverKey]func([]byte) (interface{}, []byte, error), path string) (func([]byte) (interface{}, []byte, error), error) {
	members := w.unionInfo.codecFromIndex
	fns := make([]func([]byte) (interface{}, []byte, error), len(members))
	for i, m := range members {
		var target *Codec
		if rd.kind == kindUnion {
			target = findCompatibleReaderUnionMember(rd, m)
			if target == nil {
				fns[i] = nil
				continue
			}
		} else {
			target = rd
		}
		fn, err := buildResolver(m, target, cache, fmt.Sprintf("%s<%d>", path, i))
		if err != nil {
			fns[i] = nil
			continue
		}
		fns[i] = fn
	}
	return func(buf []byte) (interface{}, []byte, error) {
		idxVal, rest, err := longNativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		idx := idxVal.(int64)
		if idx < 0 || int(idx) >= len(fns) || fns[idx] == nil {
			return nil, nil, &ResolutionError{Path: path, Msg: fmt.Sprintf("writer union branch %d not resolvable against reader schema", idx)}
		}
		return fns[idx](rest)
	}, nil
}

func buildResolverForReaderUnion(w, rd *Codec, cache map[resolverKey]func([]byte) (interface{}, []byte, error), path string) (func([]byte) (interface{}, []byte, error), error) {
	target := findCompatibleReaderUnionMember(rd, w)
	if target == nil {
		return nil, &ResolutionError{Path: path, Msg: "writer schema matches no reader union member"}
	}
	return buildResolver(w, target, cache, path)
}

func findCompatibleReaderUnionMember(rd *Codec, writerMember *Codec) *Codec {
	for _, m := range rd.unionInfo.codecFromIndex {
		if schemaKindsResolvable(writerMember, m) {
			return m
		}
	}
	return nil
}

func schemaKindsResolvable(w, rd *Codec) bool {
	if w.kind == rd.kind {
		if w.kind == kindRecord || w.kind == kindEnum || w.kind == kindFixed {
			return namedTypesCompatible(w, rd)
		}
		return true
	}
	_, ok := promotionResolver(w, rd)
	return ok
}

// Skip consumes one writer-schema-encoded value without constructing a
// native value, used internally to discard writer-only fields and
// exposed for callers that need to fast-forward a stream.
func Skip(writer *Codec, buf []byte) ([]byte, error) {
	return writer.SkipBinary(buf)
}
