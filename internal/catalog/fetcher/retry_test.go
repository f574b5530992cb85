package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher/mocks"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

func TestRetryFetcher_Do_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		respErr       error
		expectedCalls int
	}{
		{name: "Success (200) - No Retry", status: http.StatusOK, expectedCalls: 1},
		{name: "Not Found (404) - No Retry", status: http.StatusNotFound, expectedCalls: 1},
		{name: "Not Implemented (501) - No Retry", status: http.StatusNotImplemented, expectedCalls: 1},
		{name: "Internal Server Error (500) - Retry", status: http.StatusInternalServerError, expectedCalls: 3},
		{name: "Too Many Requests (429) - Retry", status: http.StatusTooManyRequests, expectedCalls: 3},
		{name: "Network Error - Retry", respErr: errors.New("connection refused"), expectedCalls: 3},
		{name: "Context Canceled - No Retry", respErr: context.Canceled, expectedCalls: 1},
		{name: "4xx Status Error - No Retry", respErr: &fetcher.HTTPStatusError{StatusCode: http.StatusBadRequest}, expectedCalls: 1},
		{name: "5xx Status Error - Retry", respErr: &fetcher.HTTPStatusError{StatusCode: http.StatusBadGateway}, expectedCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFetcher := mocks.NewMockFetcher()
			retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 2, time.Millisecond, 20*time.Millisecond)

			call := mockFetcher.On("Do", mock.Anything)
			if tt.respErr != nil {
				call.Return(nil, tt.respErr)
			} else {
				call.Return(mocks.NewMockResponse("", tt.status), nil)
			}

			req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
			require.NoError(t, err)

			resp, err := retryFetcher.Do(req)
			if tt.respErr != nil {
				assert.Error(t, err)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.status, resp.StatusCode)
			}

			mockFetcher.AssertNumberOfCalls(t, "Do", tt.expectedCalls)
		})
	}
}

func TestRetryFetcher_Do_ExhaustedNetworkErrorIsUnavailable(t *testing.T) {
	mockFetcher := mocks.NewMockFetcher()
	mockFetcher.On("Do", mock.Anything).Return(nil, errors.New("connection reset"))

	retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 1, time.Millisecond, 5*time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	_, err := retryFetcher.Do(req)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRetryFetcher_Do_WithoutRetrySendsSingleRequest(t *testing.T) {
	mockFetcher := mocks.NewMockFetcher()
	mockFetcher.On("Do", mock.Anything).Return(nil, errors.New("connection reset"))

	retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 2, time.Millisecond, 5*time.Millisecond)

	ctx := fetcher.WithoutRetry(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
	_, err := retryFetcher.Do(req)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	mockFetcher.AssertNumberOfCalls(t, "Do", 1)

	assert.True(t, fetcher.RetriesDisabled(ctx))
	assert.False(t, fetcher.RetriesDisabled(context.Background()))
}

func TestRetryFetcher_Do_NonIdempotentMethodIsNotRetried(t *testing.T) {
	mockFetcher := mocks.NewMockFetcher()
	mockFetcher.On("Do", mock.Anything).Return(mocks.NewMockResponse("", http.StatusServiceUnavailable), nil)

	retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 3, time.Millisecond, 5*time.Millisecond)

	req, _ := http.NewRequest(http.MethodPost, "http://example.com", strings.NewReader("{}"))
	resp, err := retryFetcher.Do(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	mockFetcher.AssertNumberOfCalls(t, "Do", 1)
}

func TestRetryFetcher_Do_RetryAfterBeyondMaxDelayGivesUp(t *testing.T) {
	resp := mocks.NewMockResponse("", http.StatusTooManyRequests)
	resp.Header.Set("Retry-After", "120")

	mockFetcher := mocks.NewMockFetcher()
	mockFetcher.On("Do", mock.Anything).Return(resp, nil)

	retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 3, time.Millisecond, time.Second)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	start := time.Now()
	_, err := retryFetcher.Do(req)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	assert.Less(t, time.Since(start), time.Second)
	mockFetcher.AssertNumberOfCalls(t, "Do", 1)
}

func TestRetryFetcher_Do_ContextCanceledDuringBackoff(t *testing.T) {
	mockFetcher := mocks.NewMockFetcher()
	mockFetcher.On("Do", mock.Anything).Return(nil, errors.New("temporary failure"))

	retryFetcher := fetcher.NewRetryFetcher(mockFetcher, 5, time.Hour, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
	_, err := retryFetcher.Do(req)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	mockFetcher.AssertNumberOfCalls(t, "Do", 1)
}
