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
	"regexp"
	"strings"
)

const nullNamespace = ""

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// name holds a parsed type name together with the namespace it was
// qualified under, mirroring the way the teacher's union.go stores a
// type's fullName on the Codec it builds.
type name struct {
	short     string
	namespace string
}

// newName computes a name from a schema's "name" and "namespace"
// properties plus the enclosing namespace, following the Avro
// unqualified-name-inherits-enclosing-namespace rule.
func newName(n, ns, enclosing string) *name {
	if i := strings.LastIndexByte(n, '.'); i >= 0 {
		return &name{short: n[i+1:], namespace: n[:i]}
	}
	if ns != "" {
		return &name{short: n, namespace: ns}
	}
	return &name{short: n, namespace: enclosing}
}

// fullName returns "<namespace>.<name>", or just "<name>" when the
// namespace is empty.
func (n *name) fullName() string {
	if n == nil || n.namespace == "" {
		if n == nil {
			return ""
		}
		return n.short
	}
	return n.namespace + "." + n.short
}

func (n *name) String() string { return n.fullName() }

// qualify resolves a possibly-unqualified reference string against an
// enclosing namespace, returning the fullname used to look the type up
// in the named-schemas table.
func qualify(ref, enclosing string) string {
	if strings.IndexByte(ref, '.') >= 0 || enclosing == "" {
		return ref
	}
	if isPrimitiveTypeName(ref) {
		return ref
	}
	return enclosing + "." + ref
}

func isValidIdentifier(s string) bool {
	return identifierRegexp.MatchString(s)
}

var primitiveTypeNames = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

func isPrimitiveTypeName(s string) bool {
	return primitiveTypeNames[s]
}
