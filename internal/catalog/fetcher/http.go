package fetcher

import (
	"net/http"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "catalog-browser"
)

// HTTPFetcher 체인의 가장 안쪽에서 실제 네트워크 I/O를 수행합니다.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// Option HTTPFetcher 설정 옵션
type Option func(*HTTPFetcher)

// WithTimeout 요청 전송부터 응답 본문 수신까지의 전체 제한 시간을 설정합니다. 0 이하이면 기본값(30초)을 유지합니다.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPFetcher) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithUserAgent 요청에 User-Agent 헤더가 없을 때 사용할 값을 설정합니다.
func WithUserAgent(ua string) Option {
	return func(h *HTTPFetcher) {
		if ua != "" {
			h.userAgent = ua
		}
	}
}

// WithTransport 기본 Transport를 교체합니다.
func WithTransport(rt http.RoundTripper) Option {
	return func(h *HTTPFetcher) {
		if rt != nil {
			h.client.Transport = rt
		}
	}
}

// NewHTTPFetcher 새로운 HTTPFetcher 인스턴스를 생성합니다.
func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	h := &HTTPFetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Timeout 설정된 전체 요청 제한 시간을 반환합니다.
func (h *HTTPFetcher) Timeout() time.Duration {
	return h.client.Timeout
}

func (h *HTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	return h.client.Do(req)
}
