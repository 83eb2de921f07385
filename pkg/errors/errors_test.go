package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected ErrorType
	}{
		{429, ErrorTypeRateLimit},
		{404, ErrorTypeNotFound},
		{410, ErrorTypeNotFound},
		{403, ErrorTypeForbidden},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			err := FromStatus("http://x/d", tt.code)
			if assert.NotNil(t, err) {
				assert.Equal(t, tt.expected, err.Type)
				assert.Equal(t, tt.code, err.Code)
				assert.Equal(t, "http://x/d", err.URL)
			}
		})
	}

	assert.Nil(t, FromStatus("http://x/d", 200))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeParsing))
	assert.False(t, IsRetryable(ErrorTypeCheckpoint))
}

func TestTypeOfWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("visit failed: %w", Wrap(ErrorTypeNetwork, "http://x/d", cause))

	assert.Equal(t, ErrorTypeNetwork, TypeOf(err))
	assert.True(t, Is(err, ErrorTypeNetwork))
	assert.False(t, Is(err, ErrorTypeParsing))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))
}
