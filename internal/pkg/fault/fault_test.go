// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.opentelemetry.io/usdt/engine"
)

func TestErrorIs(t *testing.T) {
	err := New(Argument, "fire", "expected %d argument(s), got %d", 1, 0)
	assert.ErrorIs(t, err, ErrArgument)
	assert.NotErrorIs(t, err, ErrRange)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.ErrorIs(t, wrapped, ErrArgument)

	// A non-sentinel with the same kind is not a match.
	other := New(Argument, "fire", "something else")
	assert.False(t, errors.Is(err, other))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"Sentinel", ErrLoad, "usdt: load error"},
		{"NoOp", &Error{Kind: Range, Msg: "overflow"}, "usdt: overflow"},
		{"NoMsg", &Error{Kind: State, Op: "load"}, "usdt: load: state error"},
		{"Full", New(Creation, "create", "could not create provider with name %s", "x"), "usdt: create: could not create provider with name x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	inner := New(Range, "", "value 300 overflows uint8")
	err := Wrap(Range, "fire", inner, "argument %d: %s", 0, inner.Msg)
	assert.ErrorIs(t, err, ErrRange)
	assert.Same(t, inner, errors.Unwrap(err))
}

func TestEngineState(t *testing.T) {
	st := engine.ErrorState{Code: engine.SharedLibraryOpen, Message: "dlopen failed"}
	err := &Error{Kind: Load, Op: "load", Msg: st.Message, Engine: &st}

	var target *Error
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &target))
	assert.Equal(t, engine.SharedLibraryOpen, target.Engine.Code)
	assert.Equal(t, "usdt: load: dlopen failed", err.Error())
}
