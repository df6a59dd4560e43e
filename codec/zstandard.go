// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package codec

import (
	"github.com/klauspost/compress/zstd"
)

func init() {
	Register("zstandard", zstandardCodec{})
}

// zstandardCodec implements the "zstandard" block codec. Readers
// accept either raw or streaming zstd framing, both of which
// klauspost/compress/zstd handles transparently.
type zstandardCodec struct{}

func (zstandardCodec) Name() string { return "zstandard" }

func (zstandardCodec) Decode(compressed []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(compressed, nil)
}

func (zstandardCodec) Encode(uncompressed []byte, level int) ([]byte, error) {
	lvl := zstd.SpeedDefault
	switch {
	case level < 0:
		// negative (e.g. -1): keep the default level
	case level <= 1:
		lvl = zstd.SpeedFastest
	case level >= 9:
		lvl = zstd.SpeedBestCompression
	}
	e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(lvl))
	if err != nil {
		return nil, err
	}
	defer e.Close()
	return e.EncodeAll(uncompressed, nil), nil
}
