// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

// Package codec is the §4.6 block-compressor plug-in table: a mapping
// from codec name to a read_block/write_block pair, populated at
// init time with the built-in compressors and extensible via
// Register.
package codec

import "fmt"

// Block is what a single registered codec must implement: decode a
// stored block back to its uncompressed bytes, and encode a block of
// uncompressed bytes (at the given compression level, where the
// codec supports one; -1 means "use the codec's default").
type Block interface {
	Name() string
	Decode(compressed []byte) ([]byte, error)
	Encode(uncompressed []byte, level int) ([]byte, error)
}

// UnavailableError reports a codec name with no registered
// implementation, or one whose optional backing library could not be
// used. Get returns it when called with such a name. The ocf package
// calls Get when a reader or writer is opened, so a file whose header
// names an unregistered codec is rejected by NewReader/NewBlockReader
// before any block is read.
type UnavailableError struct {
	Name string
	Msg  string
}

func (e *UnavailableError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("codec unavailable: %q", e.Name)
	}
	return fmt.Sprintf("codec unavailable: %q: %s", e.Name, e.Msg)
}

var registry = map[string]Block{}

// Register installs a codec under name, overwriting any previous
// registration. Per §5 ("Shared state"), registration must happen
// before any reader or writer is constructed; concurrent registration
// during active streaming is unsupported.
func Register(name string, b Block) {
	registry[name] = b
}

// Get looks up a registered codec by name.
func Get(name string) (Block, error) {
	b, ok := registry[name]
	if !ok {
		return nil, &UnavailableError{Name: name}
	}
	return b, nil
}

// Names lists every registered codec name.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	return out
}
