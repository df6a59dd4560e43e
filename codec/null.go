// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package codec

func init() {
	Register("null", nullCodec{})
}

// nullCodec stores blocks uncompressed.
type nullCodec struct{}

func (nullCodec) Name() string { return "null" }

func (nullCodec) Decode(compressed []byte) ([]byte, error) {
	return compressed, nil
}

func (nullCodec) Encode(uncompressed []byte, level int) ([]byte, error) {
	return uncompressed, nil
}
