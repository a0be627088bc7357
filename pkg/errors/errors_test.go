package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromAPICode(t *testing.T) {
	cases := map[int]ErrorType{
		CodeAuthFailed:      ErrorTypeAuth,
		CodeTooManyRequests: ErrorTypeRateLimit,
		CodeFloodControl:    ErrorTypeRateLimit,
		CodeProfilePrivate:  ErrorTypeAccessDenied,
		CodeAccessDenied:    ErrorTypeAccessDenied,
		CodeInvalidUserID:   ErrorTypeNotFound,
		CodeInternal:        ErrorTypeServerError,
		100:                 ErrorTypeAPI,
	}
	for code, want := range cases {
		assert.Equal(t, want, FromAPICode(code), "code %d", code)
	}
}

func TestTypeOfWrapped(t *testing.T) {
	base := New(ErrorTypeAccessDenied, CodeProfilePrivate, "profile %s is private", "42")
	wrapped := fmt.Errorf("fetch photos: %w", base)

	assert.Equal(t, ErrorTypeAccessDenied, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Type: ErrorTypeRateLimit, Code: CodeTooManyRequests, Message: "Too many requests per second", Method: "photos.getAll"}
	assert.Equal(t, "rate_limit error on photos.getAll (code 6): Too many requests per second", err.Error())

	plain := New(ErrorTypeNetwork, 0, "dial failed")
	assert.Equal(t, "network error (code 0): dial failed", plain.Error())
}

func TestRetryability(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.False(t, IsRetryable(ErrorTypeAccessDenied))
	assert.False(t, IsRetryable(ErrorTypeParsing))

	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(503))
	assert.False(t, IsRetryableStatusCode(404))
	assert.False(t, IsRetryableStatusCode(200))
}
