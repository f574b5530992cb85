// Package mocks fetcher 패키지 사용처의 테스트를 위한 Mock 구현체를 제공합니다.
package mocks

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
)

var _ fetcher.Fetcher = (*MockFetcher)(nil)

// MockFetcher Fetcher 인터페이스의 Mock 구현체 (Testify 사용)
type MockFetcher struct {
	mock.Mock
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{}
}

func (m *MockFetcher) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

// NewMockResponse 주어진 body와 status code를 가진 http.Response를 생성합니다.
func NewMockResponse(body string, statusCode int) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

// NewMockResponseWithJSON v를 JSON으로 인코딩한 본문을 가진 응답을 생성합니다.
func NewMockResponseWithJSON(v any, statusCode int) *http.Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	resp := NewMockResponse(string(b), statusCode)
	resp.Header.Set("Content-Type", "application/json")
	return resp
}
