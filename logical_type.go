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
	"math/big"
	"time"
)

// logicalWriters and logicalReaders are the process-wide, read-heavy tables described
// in §5 ("Shared state"): populated at init time with the built-in
// logical types, and extensible via RegisterLogicalTypeWriter /
// RegisterLogicalTypeReader before any reader or writer is
// constructed. Concurrent registration during active streaming is
// undefined, per §5.
type logicalWriterFunc func(datum interface{}, c *Codec) (interface{}, error)
type logicalReaderFunc func(datum interface{}, c *Codec) (interface{}, error)

var logicalWriters = map[string]logicalWriterFunc{}
var logicalReaders = map[string]logicalReaderFunc{}

func logicalKey(baseType, logicalType string) string { return baseType + ":" + logicalType }

// RegisterLogicalTypeWriter registers a value->base-value transformer
// for a (avro_type, logical_type) pair, per the §6 registry interface.
func RegisterLogicalTypeWriter(baseType, logicalType string, fn func(datum interface{}, c *Codec) (interface{}, error)) {
	logicalWriters[logicalKey(baseType, logicalType)] = fn
}

// RegisterLogicalTypeReader registers a base-value->value transformer
// for a (avro_type, logical_type) pair, per the §6 registry interface.
func RegisterLogicalTypeReader(baseType, logicalType string, fn func(datum interface{}, c *Codec) (interface{}, error)) {
	logicalReaders[logicalKey(baseType, logicalType)] = fn
}

func init() {
	RegisterLogicalTypeWriter("bytes", "decimal", decimalToBase)
	RegisterLogicalTypeReader("bytes", "decimal", decimalFromBase)
	RegisterLogicalTypeWriter("fixed", "decimal", decimalToBase)
	RegisterLogicalTypeReader("fixed", "decimal", decimalFromBaseFixed)

	RegisterLogicalTypeWriter("string", "uuid", func(datum interface{}, c *Codec) (interface{}, error) {
		switch v := datum.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		default:
			return nil, fmt.Errorf("cannot encode uuid: expected Go string; received: %T", datum)
		}
	})
	RegisterLogicalTypeReader("string", "uuid", func(datum interface{}, c *Codec) (interface{}, error) {
		return datum, nil
	})

	RegisterLogicalTypeWriter("int", "date", func(datum interface{}, c *Codec) (interface{}, error) {
		t, err := timeFromDatum(datum)
		if err != nil {
			return nil, err
		}
		days := t.UTC().Unix() / 86400
		return int32(days), nil
	})
	RegisterLogicalTypeReader("int", "date", func(datum interface{}, c *Codec) (interface{}, error) {
		days := int64(datum.(int32))
		return time.Unix(days*86400, 0).UTC(), nil
	})

	RegisterLogicalTypeWriter("int", "time-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		d, err := durationFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return int32(d.Milliseconds()), nil
	})
	RegisterLogicalTypeReader("int", "time-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		return time.Duration(datum.(int32)) * time.Millisecond, nil
	})

	RegisterLogicalTypeWriter("long", "time-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		d, err := durationFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return d.Microseconds(), nil
	})
	RegisterLogicalTypeReader("long", "time-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		return time.Duration(datum.(int64)) * time.Microsecond, nil
	})

	RegisterLogicalTypeWriter("long", "timestamp-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		t, err := timeFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return t.UnixMilli(), nil
	})
	RegisterLogicalTypeReader("long", "timestamp-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		return time.UnixMilli(datum.(int64)).UTC(), nil
	})

	RegisterLogicalTypeWriter("long", "timestamp-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		t, err := timeFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return t.Unix()*1e6 + int64(t.Nanosecond())/1e3, nil
	})
	RegisterLogicalTypeReader("long", "timestamp-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		micros := datum.(int64)
		return time.Unix(micros/1e6, (micros%1e6)*1e3).UTC(), nil
	})

	RegisterLogicalTypeWriter("long", "local-timestamp-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		t, err := timeFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return t.Unix()*1000 + int64(t.Nanosecond())/1e6, nil
	})
	RegisterLogicalTypeReader("long", "local-timestamp-millis", func(datum interface{}, c *Codec) (interface{}, error) {
		ms := datum.(int64)
		return time.Unix(ms/1000, (ms%1000)*1e6), nil
	})

	RegisterLogicalTypeWriter("long", "local-timestamp-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		t, err := timeFromDatum(datum)
		if err != nil {
			return nil, err
		}
		return t.Unix()*1e6 + int64(t.Nanosecond())/1e3, nil
	})
	RegisterLogicalTypeReader("long", "local-timestamp-micros", func(datum interface{}, c *Codec) (interface{}, error) {
		micros := datum.(int64)
		return time.Unix(micros/1e6, (micros%1e6)*1e3), nil
	})
}

func timeFromDatum(datum interface{}) (time.Time, error) {
	switch v := datum.(type) {
	case time.Time:
		return v, nil
	default:
		return time.Time{}, fmt.Errorf("expected Go time.Time; received: %T", datum)
	}
}

func durationFromDatum(datum interface{}) (time.Duration, error) {
	switch v := datum.(type) {
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("expected Go time.Duration; received: %T", datum)
	}
}

// applyLogicalType inspects a just-built base codec's schema node for
// a "logicalType" property and, if one is registered, wraps the
// codec's encode/decode/match functions with the registered
// transformer. Unrecognized logical types pass through as their base
// type without error, per §3.
func applyLogicalType(c *Codec, m map[string]interface{}) (*Codec, error) {
	ltRaw, ok := m["logicalType"]
	if !ok {
		return c, nil
	}
	lt, ok := ltRaw.(string)
	if !ok {
		return c, nil
	}

	baseType := c.kind.String()

	if lt == "decimal" {
		if err := validateDecimalProps(c, m); err != nil {
			return nil, err
		}
	}

	writer, hasWriter := logicalWriters[logicalKey(baseType, lt)]
	reader, hasReader := logicalReaders[logicalKey(baseType, lt)]
	if !hasWriter || !hasReader {
		return c, nil // unknown logical type: pass through as base type
	}

	c.logicalType = lt
	base := c
	wrapped := &Codec{
		kind:        c.kind,
		typeName:    c.typeName,
		size:        c.size,
		logicalType: lt,
		logicalBase: c.kind,
		precision:   c.precision,
		scale:       c.scale,
		schemaJSON:  m,
	}
	wrapped.binaryFromNative = func(buf []byte, datum interface{}) ([]byte, error) {
		baseVal, err := writer(datum, wrapped)
		if err != nil {
			return nil, fmt.Errorf("cannot encode logical type %q: %w", lt, err)
		}
		return base.binaryFromNative(buf, baseVal)
	}
	wrapped.nativeFromBinary = func(buf []byte) (interface{}, []byte, error) {
		baseVal, rest, err := base.nativeFromBinary(buf)
		if err != nil {
			return nil, nil, err
		}
		v, err := reader(baseVal, wrapped)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot decode logical type %q: %w", lt, err)
		}
		return v, rest, nil
	}
	wrapped.skipBinary = base.skipBinary
	wrapped.logicalPrepare = func(datum interface{}, c *Codec) (interface{}, error) {
		return writer(datum, wrapped)
	}
	return wrapped, nil
}

func validateDecimalProps(c *Codec, m map[string]interface{}) error {
	precRaw, ok := m["precision"]
	if !ok {
		return &SchemaError{Msg: "decimal: missing precision property"}
	}
	precision, err := intFromAny(precRaw)
	if err != nil || precision < 1 {
		return &SchemaError{Msg: "decimal: precision must be >= 1"}
	}
	scale := 0
	if scaleRaw, ok := m["scale"]; ok {
		scale, err = intFromAny(scaleRaw)
		if err != nil || scale < 0 {
			return &SchemaError{Msg: "decimal: scale must be >= 0"}
		}
	}
	if scale > precision {
		return &SchemaError{Msg: "decimal: scale must be <= precision"}
	}
	if c.kind == kindFixed {
		maxPrec := decimalMaxPrecisionForSize(c.size)
		if precision > maxPrec {
			return &SchemaError{Msg: fmt.Sprintf("decimal: precision %d exceeds max %d for fixed size %d", precision, maxPrec, c.size)}
		}
	}
	c.precision = precision
	c.scale = scale
	return nil
}

// decimalToBase converts a *big.Rat (or a *big.Int, taken as the
// already-unscaled integer) into the minimum-byte-count big-endian two's-complement unscaled
// integer representation required by §8 scenario 5.
func decimalToBase(datum interface{}, c *Codec) (interface{}, error) {
	var unscaled *big.Int
	switch v := datum.(type) {
	case *big.Rat:
		scaled := new(big.Rat).Mul(v, new(big.Rat).SetFrac(pow10(c.scale), big.NewInt(1)))
		if !scaled.IsInt() {
			return nil, fmt.Errorf("decimal value cannot be represented exactly at scale %d", c.scale)
		}
		unscaled = scaled.Num()
	case *big.Int:
		unscaled = v
	default:
		return nil, fmt.Errorf("cannot encode decimal: expected *big.Rat or *big.Int; received: %T", datum)
	}
	b := minimalTwosComplement(unscaled)
	if c.logicalBase == kindFixed {
		if len(b) > c.size {
			return nil, fmt.Errorf("decimal: unscaled value does not fit in fixed size %d", c.size)
		}
		padded := make([]byte, c.size)
		sign := byte(0)
		if unscaled.Sign() < 0 {
			sign = 0xff
		}
		for i := range padded {
			padded[i] = sign
		}
		copy(padded[c.size-len(b):], b)
		return padded, nil
	}
	return b, nil
}

func decimalFromBase(datum interface{}, c *Codec) (interface{}, error) {
	b := datum.([]byte)
	unscaled := bigIntFromTwosComplement(b)
	return new(big.Rat).SetFrac(unscaled, pow10(c.scale)), nil
}

func decimalFromBaseFixed(datum interface{}, c *Codec) (interface{}, error) {
	return decimalFromBase(datum, c)
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func minimalTwosComplement(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0}
	}
	if n.Sign() > 0 {
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// negative: two's complement of minimal byte length; -n-1 needs
	// bitLen bits plus a sign bit.
	bitLen := new(big.Int).Not(n).BitLen()
	nbytes := bitLen/8 + 1
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nbytes*8))
	v := new(big.Int).Add(mod, n)
	b := v.Bytes()
	for len(b) < nbytes {
		b = append([]byte{0}, b...)
	}
	return b
}

func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		v.Sub(v, mod)
	}
	return v
}
