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
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// NewCodecFromDir parses schema (JSON text) the same way NewCodec
// does, except that an UnknownTypeError for some name N triggers a
// fallback: read "<dir>/N.avsc", splice it into the schema being
// parsed as an additional union member alongside the root, and retry.
// This is §4.2's directory-loading algorithm, used for schemas split
// across files the way the Avro reference tools lay out a directory of
// *.avsc fragments that reference one another by name.
//
// Resolution proceeds breadth-first: each missing name found pulls in
// at most one new file, and parsing retries from scratch with the
// enlarged root each time a file is added. A cycle of names that can
// never be satisfied by any file in dir terminates the loop with the
// original UnknownTypeError once a retry adds no new file.
func NewCodecFromDir(dir, schema string, opts ...CodecOption) (*Codec, error) {
	tree, err := schemaJSONFromString(schema)
	if err != nil {
		return nil, &SchemaError{Msg: err.Error()}
	}

	o := &codecOptions{}
	for _, opt := range opts {
		opt(o)
	}

	loaded := map[string]bool{}
	for {
		st := make(map[string]*Codec)
		c, buildErr := buildCodec(st, nullNamespace, tree, o)
		if buildErr == nil {
			return c, nil
		}
		var ute *UnknownTypeError
		if !errors.As(buildErr, &ute) {
			return nil, buildErr
		}
		if loaded[ute.Name] {
			return nil, buildErr
		}
		fragment, readErr := loadSchemaFragment(dir, ute.Name)
		if readErr != nil {
			return nil, fmt.Errorf("%w (and could not load %q from %s: %s)", buildErr, ute.Name, dir, readErr)
		}
		loaded[ute.Name] = true
		tree = spliceUnionMember(tree, fragment)
	}
}

// loadSchemaFragment reads "<dir>/<name>.avsc" (using only the
// unqualified part of a dotted fullname as the file's base name, the
// convention the Avro tools' schema-repo directories follow) and
// parses it as a standalone schema JSON tree.
func loadSchemaFragment(dir, name string) (interface{}, error) {
	base := name
	if i := len(name) - 1; i >= 0 {
		for j := i; j >= 0; j-- {
			if name[j] == '.' {
				base = name[j+1:]
				break
			}
		}
	}
	path := filepath.Join(dir, base+".avsc")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schemaJSONFromString(string(data))
}

// spliceUnionMember folds an additional named-type definition into the
// schema tree being parsed: if the root is already a union (a JSON
// list), fragment is inserted as its first member; otherwise fragment
// and the root become the two members of a new top-level union,
// fragment first. Union members are parsed in order, so the
// fragment's named type is in the names table before the members that
// reference it are parsed, and the original root schema is still a
// satisfiable member of the resulting union.
func spliceUnionMember(root, fragment interface{}) interface{} {
	if arr, ok := root.([]interface{}); ok {
		return append([]interface{}{fragment}, arr...)
	}
	return []interface{}{fragment, root}
}
