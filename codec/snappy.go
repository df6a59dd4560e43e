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
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
)

func init() {
	Register("snappy", snappyCodec{})
}

// snappyCodec implements the "snappy" block codec: the
// snappy-compressed blob followed by a 4-byte big-endian CRC32 of the
// *uncompressed* block, per §4.6.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Decode(compressed []byte) ([]byte, error) {
	if len(compressed) < 4 {
		return nil, fmt.Errorf("snappy: block too short to hold CRC32 trailer")
	}
	body := compressed[:len(compressed)-4]
	wantCRC := binary.BigEndian.Uint32(compressed[len(compressed)-4:])

	uncompressed, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	if gotCRC := crc32.ChecksumIEEE(uncompressed); gotCRC != wantCRC {
		return nil, fmt.Errorf("snappy: CRC32 mismatch: got %#x; want %#x", gotCRC, wantCRC)
	}
	return uncompressed, nil
}

func (snappyCodec) Encode(uncompressed []byte, level int) ([]byte, error) {
	compressed := snappy.Encode(nil, uncompressed)
	crc := crc32.ChecksumIEEE(uncompressed)
	out := make([]byte, len(compressed)+4)
	copy(out, compressed)
	binary.BigEndian.PutUint32(out[len(compressed):], crc)
	return out, nil
}
