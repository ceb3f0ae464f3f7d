package ldbc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageFormatting_IncludesSQLStateWhenPresent(t *testing.T) {
	err := NewServerError("42S02", 1146, "Table 'app.missing' doesn't exist")
	assert.Contains(t, err.Error(), "42S02")
	assert.Contains(t, err.Error(), "1146")
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestError_MessageFormatting_OmitsSQLStateWhenAbsent(t *testing.T) {
	err := NewClientStateError("connection is closed")
	assert.NotContains(t, err.Error(), "[]")
}

func TestError_Unwrap_ReachesCause(t *testing.T) {
	cause := errors.New("read: connection reset")
	err := NewProtocolError(cause, "unexpected EOF mid-packet")
	assert.ErrorIs(t, err, cause)
}

func TestIsKind_MatchesWrappedError(t *testing.T) {
	err := NewAuthorizationError("28000", 1045, "Access denied")
	assert.True(t, IsKind(err, KindAuthorizationFailure))
	assert.False(t, IsKind(err, KindServerError))
}

func TestIsKind_FalseForNonLdbcError(t *testing.T) {
	assert.False(t, IsKind(errors.New("plain error"), KindServerError))
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "AuthorizationFailure", KindAuthorizationFailure.String())
	assert.Equal(t, "Unknown", ErrorKind(99).String())
}
