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
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

func marshalCanonicalJSON(tree interface{}) ([]byte, error) {
	return json.Marshal(tree)
}

// CanonicalSchema renders the codec's schema in Avro Parsing Canonical
// Form (§4.2): whitespace-free, annotations stripped except type
// structure/names/symbols/sizes/order-sensitive field order, and
// named-type references fully qualified, following the published key
// ordering from the Avro specification.
func (c *Codec) CanonicalSchema() string {
	var buf bytes.Buffer
	writeCanonical(&buf, c, map[string]bool{})
	return buf.String()
}

func writeCanonical(buf *bytes.Buffer, c *Codec, seen map[string]bool) {
	switch c.kind {
	case kindNull, kindBoolean, kindInt, kindLong, kindFloat, kindDouble, kindBytes, kindString:
		fmt.Fprintf(buf, "%q", c.kind.String())

	case kindFixed:
		full := c.typeName.fullName()
		if seen[full] {
			fmt.Fprintf(buf, "%q", full)
			return
		}
		seen[full] = true
		fmt.Fprintf(buf, `{"name":%q,"type":"fixed","size":%d}`, full, c.size)

	case kindEnum:
		full := c.typeName.fullName()
		if seen[full] {
			fmt.Fprintf(buf, "%q", full)
			return
		}
		seen[full] = true
		buf.WriteString(`{"name":`)
		fmt.Fprintf(buf, "%q", full)
		buf.WriteString(`,"type":"enum","symbols":[`)
		for i, s := range c.symbols {
			if i > 0 {
				buf.WriteByte(',')
			}
			fmt.Fprintf(buf, "%q", s)
		}
		buf.WriteString("]}")

	case kindArray:
		buf.WriteString(`{"type":"array","items":`)
		writeCanonical(buf, c.itemsCodec, seen)
		buf.WriteByte('}')

	case kindMap:
		buf.WriteString(`{"type":"map","values":`)
		writeCanonical(buf, c.valuesCodec, seen)
		buf.WriteByte('}')

	case kindRecord:
		full := c.typeName.fullName()
		if seen[full] {
			fmt.Fprintf(buf, "%q", full)
			return
		}
		seen[full] = true
		buf.WriteString(`{"name":`)
		fmt.Fprintf(buf, "%q", full)
		buf.WriteString(`,"type":"record","fields":[`)
		for i, f := range c.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"name":`)
			fmt.Fprintf(buf, "%q", f.name)
			buf.WriteString(`,"type":`)
			writeCanonical(buf, f.codec, seen)
			buf.WriteByte('}')
		}
		buf.WriteString("]}")

	case kindUnion:
		buf.WriteByte('[')
		for i, m := range c.unionInfo.codecFromIndex {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, m, seen)
		}
		buf.WriteByte(']')
	}
}

// FingerprintAlgorithm selects the hash used by Fingerprint.
type FingerprintAlgorithm int

const (
	// FingerprintCRC64Avro is the Avro-defined Rabin fingerprint.
	FingerprintCRC64Avro FingerprintAlgorithm = iota
	FingerprintMD5
	FingerprintSHA256
)

// avroCRC64Table is the CRC-64-AVRO polynomial table from the Avro
// specification's "Schema Fingerprints" section (Rabin fingerprinting
// algorithm), built once at init.
var avroCRC64Table [256]uint64

func init() {
	for i := 0; i < 256; i++ {
		fp := uint64(i)
		for j := 0; j < 8; j++ {
			if fp&1 != 0 {
				fp = (fp >> 1) ^ 0xc96c5795d7870f42
			} else {
				fp = fp >> 1
			}
		}
		avroCRC64Table[i] = fp
	}
}

func crc64AvroFingerprint(buf []byte) uint64 {
	var fp uint64 = 0xc15d213aa4d7a795
	for _, b := range buf {
		fp = (fp >> 8) ^ avroCRC64Table[(byte(fp)^b)&0xff]
	}
	return fp
}

// Fingerprint computes the fingerprint of the codec's canonical-form
// schema using the selected algorithm, per §4.2/§8.4.
func (c *Codec) Fingerprint(algo FingerprintAlgorithm) ([]byte, error) {
	canon := []byte(c.CanonicalSchema())
	switch algo {
	case FingerprintCRC64Avro:
		fp := crc64AvroFingerprint(canon)
		b := make([]byte, 8)
		for i := 0; i < 8; i++ {
			b[i] = byte(fp >> (8 * uint(i)))
		}
		return b, nil
	case FingerprintMD5:
		sum := md5.Sum(canon)
		return sum[:], nil
	case FingerprintSHA256:
		sum := sha256.Sum256(canon)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("unknown fingerprint algorithm: %d", algo)
	}
}
