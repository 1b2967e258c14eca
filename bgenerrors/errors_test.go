package bgenerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEWrapsCauseAndMessage(t *testing.T) {
	cause := errors.New("short read")
	err := E("foo.bgen", Io, "reading header", cause)

	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, "foo.bgen", e.Path)
	assert.Equal(t, Io, e.Kind)
	assert.Contains(t, err.Error(), "foo.bgen")
	assert.Contains(t, err.Error(), "reading header")
	assert.Contains(t, err.Error(), "short read")
}

func TestEWithoutCause(t *testing.T) {
	err := E("foo.bgi", IndexMismatch, "counts disagree")
	assert.Contains(t, err.Error(), "counts disagree")
	assert.Contains(t, err.Error(), "index mismatch")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "I/O error", Io.String())
	assert.Equal(t, "error", Other.String())
}

func TestOnceKeepsFirstError(t *testing.T) {
	var once Once
	assert.NoError(t, once.Err())

	first := E("a", Malformed, "bad magic")
	second := E("b", Unsupported, "phased data")
	once.Set(first)
	once.Set(second)
	assert.Equal(t, first, once.Err())

	once.Set(nil)
	assert.Equal(t, first, once.Err())
}
