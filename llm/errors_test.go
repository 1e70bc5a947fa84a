package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	openai "github.com/sashabaranov/go-openai"
)

func TestClassifyErrorNil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyErrorPassthrough(t *testing.T) {
	original := &Error{Type: ErrorTypeAuth, Message: "invalid API key"}
	classified := ClassifyError(original)
	assert.Same(t, original, classified)
}

func TestClassifyErrorDeadline(t *testing.T) {
	classified := ClassifyError(context.DeadlineExceeded)
	require.NotNil(t, classified)
	assert.Equal(t, ErrorTypeTimeout, classified.Type)
	assert.True(t, classified.IsRetryable())
}

func TestClassifyErrorAPIStatuses(t *testing.T) {
	cases := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{http.StatusUnauthorized, ErrorTypeAuth, false},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusBadRequest, ErrorTypeBadRequest, false},
		{http.StatusBadGateway, ErrorTypeUpstream, true},
		{http.StatusNotFound, ErrorTypeUpstream, false},
	}

	for _, tc := range cases {
		apiErr := &openai.APIError{HTTPStatusCode: tc.status, Message: "boom"}
		classified := ClassifyError(apiErr)
		require.NotNil(t, classified, "status %d", tc.status)
		assert.Equal(t, tc.wantType, classified.Type, "status %d", tc.status)
		assert.Equal(t, tc.status, classified.StatusCode, "status %d", tc.status)
		assert.Equal(t, tc.retryable, classified.IsRetryable(), "status %d", tc.status)
	}
}

func TestClassifyErrorRateLimitBackoff(t *testing.T) {
	classified := ClassifyError(&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests})
	require.NotNil(t, classified)
	assert.Greater(t, classified.RetryAfter.Seconds(), 0.0)
}

func TestClassifyErrorUnknown(t *testing.T) {
	cause := errors.New("connection refused")
	classified := ClassifyError(cause)
	require.NotNil(t, classified)
	assert.Equal(t, ErrorTypeUpstream, classified.Type)
	assert.ErrorIs(t, classified, cause)
}

func TestErrorMessageFormat(t *testing.T) {
	withStatus := &Error{Type: ErrorTypeAuth, Message: "invalid API key", StatusCode: 401}
	assert.Equal(t, "llm: auth (401): invalid API key", withStatus.Error())

	withoutStatus := &Error{Type: ErrorTypeTimeout, Message: "request timed out"}
	assert.Equal(t, "llm: timeout: request timed out", withoutStatus.Error())
}
