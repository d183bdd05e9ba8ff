package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Wrap(nil, "msg"))
	assert.NoError(t, Wrapf(nil, "msg %d", 1))
}

func TestWrapIs(t *testing.T) {
	t.Parallel()
	err := Wrap(context.Canceled, "watch")
	assert.True(t, Is(err, context.Canceled))
	assert.Equal(t, "watch: context canceled", err.Error())
	var wrapped *wrappedError
	assert.True(t, As(err, &wrapped))
	assert.Equal(t, context.Canceled, wrapped.Unwrap())
}

func TestMultiErrorOrNil(t *testing.T) {
	t.Parallel()
	e := NewMultiError()
	assert.NoError(t, e.ErrorOrNil())
	assert.Equal(t, "", e.Error())

	e.Append(context.Canceled)
	assert.Error(t, e.ErrorOrNil())
	assert.True(t, Is(e, context.Canceled))
}

func TestMultiErrorFlatten(t *testing.T) {
	t.Parallel()
	inner := NewMultiError()
	inner.Append(New("a"), New("b"))

	prefixed := NewMultiError()
	prefixed.SetPrefix("prefixed.")
	prefixed.Append(New("c"))

	e := NewMultiError()
	e.Append(inner, prefixed)
	assert.Equal(t, 3, e.Len())
	assert.Equal(t, "- a\n- b\n- prefixed:\n  - c", e.Error())
}

func TestMultiErrorAs(t *testing.T) {
	t.Parallel()
	e := NewMultiError()
	e.SetPrefix("outer 1")
	e.Append(New("inner"))
	err := Wrap(e, "wrapped")
	var multi *MultiError
	assert.True(t, As(err, &multi))
	assert.Equal(t, 1, multi.Len())
	assert.Equal(t, "wrapped: outer 1:\n- inner", err.Error())
}
