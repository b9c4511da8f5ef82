// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import "math"

// Decode reverses Encode for the value-carrying kinds.
//
// Floats decode to float64, integers to uint64 (the caller chooses whether to
// view it as signed), and raw words to int64 or uint64 truncated to their
// declared width. String words decode to the uintptr address they hold; use
// [StringAt] to read the string while it is still pinned.
func Decode(w uint64, t Type) any {
	switch t.kind {
	case KindString:
		return uintptr(w)
	case KindFloat:
		return math.Float64frombits(w)
	case KindInteger:
		return w
	case KindRawWord:
		if !t.Valid() {
			return nil
		}
		width := int(t.width)
		if width < 0 {
			shift := uint(64 + 8*width)
			return int64(w<<shift) >> shift
		}
		bits := uint(8 * width)
		if bits == 64 {
			return w
		}
		return w & (uint64(1)<<bits - 1)
	}
	return nil
}
