// Copyright [2019] LinkedIn Corp. Licensed under the Apache License, Version
// 2.0 (the "License"); you may not use this file except in compliance with the
// License.  You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.

package avro

import "testing"

func TestCanonicalSchemaStripsDocAndOrder(t *testing.T) {
	schema := `{"type":"record","name":"rec","doc":"a record","fields":[
		{"name":"a","type":"long","doc":"field a","default":0}
	]}`
	codec, err := NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"name":"rec","type":"record","fields":[{"name":"a","type":"long"}]}`
	if got := codec.CanonicalSchema(); got != want {
		t.Fatalf("GOT: %s; WANT: %s", got, want)
	}
}

func TestCanonicalSchemaEquivalentFormsMatch(t *testing.T) {
	a, err := NewCodec(`"int"`)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCodec(`{"type":"int"}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.CanonicalSchema() != b.CanonicalSchema() {
		t.Fatalf("GOT: %s != %s", a.CanonicalSchema(), b.CanonicalSchema())
	}
}

func TestFingerprintCRC64AvroIsStable(t *testing.T) {
	codec, err := NewCodec(`"string"`)
	if err != nil {
		t.Fatal(err)
	}
	fp1, err := codec.Fingerprint(FingerprintCRC64Avro)
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := codec.Fingerprint(FingerprintCRC64Avro)
	if err != nil {
		t.Fatal(err)
	}
	if len(fp1) != 8 {
		t.Fatalf("GOT: %d bytes; WANT: 8", len(fp1))
	}
	if string(fp1) != string(fp2) {
		t.Fatalf("fingerprint not stable across calls")
	}
}

func TestFingerprintDiffersAcrossAlgorithms(t *testing.T) {
	codec, err := NewCodec(`"string"`)
	if err != nil {
		t.Fatal(err)
	}
	crc, err := codec.Fingerprint(FingerprintCRC64Avro)
	if err != nil {
		t.Fatal(err)
	}
	md5fp, err := codec.Fingerprint(FingerprintMD5)
	if err != nil {
		t.Fatal(err)
	}
	if len(crc) == len(md5fp) {
		t.Fatalf("expected different fingerprint lengths, got %d and %d", len(crc), len(md5fp))
	}
}

func TestFingerprintMD5AndSHA256Lengths(t *testing.T) {
	codec, err := NewCodec(`"long"`)
	if err != nil {
		t.Fatal(err)
	}
	md5fp, err := codec.Fingerprint(FingerprintMD5)
	if err != nil {
		t.Fatal(err)
	}
	if len(md5fp) != 16 {
		t.Fatalf("GOT: %d; WANT: 16", len(md5fp))
	}
	sha, err := codec.Fingerprint(FingerprintSHA256)
	if err != nil {
		t.Fatal(err)
	}
	if len(sha) != 32 {
		t.Fatalf("GOT: %d; WANT: 32", len(sha))
	}
}
