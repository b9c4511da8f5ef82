// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"math"
	"math/big"
	"reflect"
	"strings"
	"unsafe"

	"go.opentelemetry.io/usdt/internal/pkg/fault"
)

// Encode returns the word v is transmitted as when declared with t.
//
// String values are borrowed or copied into f and must not be used by the
// engine after f is released. Encode never blocks and has no side effect
// other than pinning memory in f.
func Encode(f *Frame, v any, t Type) (uint64, error) {
	switch t.kind {
	case KindString:
		return encodeString(f, v)
	case KindFloat:
		return encodeFloat(v)
	case KindInteger:
		return encodeInteger(v)
	case KindRawWord:
		if t.Valid() {
			return encodeRawWord(v, int(t.width))
		}
	}
	return 0, fault.New(fault.Argument, "", "invalid argument type %s", t)
}

func encodeString(f *Frame, v any) (uint64, error) {
	var p *byte
	switch s := v.(type) {
	case string:
		if err := checkNUL(s); err != nil {
			return 0, err
		}
		if n := len(s); n > 0 && s[n-1] == 0 {
			// Already terminated, borrow it.
			p = unsafe.StringData(s)
		} else {
			p = f.cstring(s)
		}
	case []byte:
		if i := bytes.IndexByte(s, 0); i >= 0 && i != len(s)-1 {
			return 0, nulError(i)
		}
		if n := len(s); n > 0 && s[n-1] == 0 {
			p = &s[0]
		} else {
			p = f.cstring(string(s))
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.String {
			return 0, typeError(v, "string")
		}
		return encodeString(f, rv.String())
	}
	f.pin(p)
	return uint64(uintptr(unsafe.Pointer(p))), nil
}

// checkNUL rejects strings a C reader would truncate.
func checkNUL(s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 && i != len(s)-1 {
		return nulError(i)
	}
	return nil
}

func nulError(offset int) error {
	return fault.New(fault.Range, "", "string contains null byte at offset %d", offset)
}

func encodeFloat(v any) (uint64, error) {
	switch x := v.(type) {
	case float64:
		return math.Float64bits(x), nil
	case float32:
		return math.Float64bits(float64(x)), nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return math.Float64bits(rv.Float()), nil
	}

	n, err := integer(v)
	if err != nil {
		if isTypeError(err) {
			return 0, typeError(v, "float")
		}
		return 0, err
	}
	f, acc := n.float()
	if acc != big.Exact {
		return 0, fault.New(fault.Range, "", "%v cannot be represented exactly as a float", v)
	}
	return math.Float64bits(f), nil
}

func encodeInteger(v any) (uint64, error) {
	n, err := integer(v)
	if err != nil {
		return 0, err
	}
	if n.neg && n.mag > 1<<63 {
		return 0, fault.New(fault.Range, "", "%v cannot be represented in 64 bits", v)
	}
	return n.word(), nil
}

func encodeRawWord(v any, width int) (uint64, error) {
	if k := reflect.ValueOf(v).Kind(); k == reflect.Float32 || k == reflect.Float64 {
		return 0, typeError(v, "integer")
	}
	n, err := integer(v)
	if err != nil {
		return 0, err
	}

	bits := 8 * width
	if width < 0 {
		bits = -bits
		limit := uint64(1) << (bits - 1)
		if (n.neg && n.mag > limit) || (!n.neg && n.mag > limit-1) {
			return 0, fault.New(fault.Range, "", "%v overflows int%d", v, bits)
		}
		return n.word(), nil
	}

	if n.neg {
		return 0, fault.New(fault.Range, "", "%v overflows uint%d", v, bits)
	}
	if bits < 64 && n.mag > uint64(1)<<bits-1 {
		return 0, fault.New(fault.Range, "", "%v overflows uint%d", v, bits)
	}
	return n.mag, nil
}

// intValue is an integer in sign-magnitude form. A magnitude of 1<<63 with
// neg set is math.MinInt64.
type intValue struct {
	mag uint64
	neg bool
}

func (n intValue) word() uint64 {
	if n.neg {
		return ^n.mag + 1
	}
	return n.mag
}

func (n intValue) float() (float64, big.Accuracy) {
	f := new(big.Float).SetUint64(n.mag)
	if n.neg {
		f.Neg(f)
	}
	return f.Float64()
}

func fromInt64(i int64) intValue {
	if i < 0 {
		return intValue{mag: uint64(-(i + 1)) + 1, neg: true}
	}
	return intValue{mag: uint64(i)}
}

var (
	maxUint64Float = math.Ldexp(1, 64)
	minInt64Float  = -math.Ldexp(1, 63)
)

// integer normalizes v to an intValue. Integral floats are accepted when in
// range.
func integer(v any) (intValue, error) {
	switch x := v.(type) {
	case int:
		return fromInt64(int64(x)), nil
	case int8:
		return fromInt64(int64(x)), nil
	case int16:
		return fromInt64(int64(x)), nil
	case int32:
		return fromInt64(int64(x)), nil
	case int64:
		return fromInt64(x), nil
	case uint:
		return intValue{mag: uint64(x)}, nil
	case uint8:
		return intValue{mag: uint64(x)}, nil
	case uint16:
		return intValue{mag: uint64(x)}, nil
	case uint32:
		return intValue{mag: uint64(x)}, nil
	case uint64:
		return intValue{mag: x}, nil
	case uintptr:
		return intValue{mag: uint64(x)}, nil
	case *big.Int:
		if x == nil {
			return intValue{}, typeError(v, "integer")
		}
		if x.BitLen() > 64 {
			return intValue{}, fault.New(fault.Range, "", "%s cannot be represented in 64 bits", x)
		}
		abs := new(big.Int).Abs(x)
		return intValue{mag: abs.Uint64(), neg: x.Sign() < 0}, nil
	case float64:
		return integralFloat(x)
	case float32:
		return integralFloat(float64(x))
	case nil:
		return intValue{}, typeError(v, "integer")
	}

	// Named numeric types.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fromInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return intValue{mag: rv.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return integralFloat(rv.Float())
	}
	return intValue{}, typeError(v, "integer")
}

func integralFloat(f float64) (intValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return intValue{}, fault.New(fault.Range, "", "%v is not an integer", f)
	}
	if f < minInt64Float || f >= maxUint64Float {
		return intValue{}, fault.New(fault.Range, "", "%v cannot be represented in 64 bits", f)
	}
	if f < 0 {
		return fromInt64(int64(f)), nil
	}
	return intValue{mag: uint64(f)}, nil
}

func typeError(v any, want string) error {
	if v == nil {
		return fault.New(fault.Type, "", "no implicit conversion from nil to %s", want)
	}
	return fault.New(fault.Type, "", "no implicit conversion of %T into %s", v, want)
}

func isTypeError(err error) bool {
	e, ok := err.(*fault.Error)
	return ok && e.Kind == fault.Type
}
