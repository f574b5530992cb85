package fetcher

import (
	"time"
)

// Config Fetcher 체인 구성 설정
type Config struct {
	// Timeout 단일 요청의 전체 제한 시간
	Timeout time.Duration

	UserAgent string

	// MaxRetries 0이면 재시도하지 않습니다.
	MaxRetries int
	RetryDelay time.Duration

	// MaxBytes 0이면 기본값(10MB), NoLimit이면 제한하지 않습니다.
	MaxBytes int64

	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig 서킷 브레이커 설정
type CircuitBreakerConfig struct {
	Enabled             bool
	Name                string
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// New 설정에 따라 미들웨어 체인을 조립합니다.
//
//	Logging → CircuitBreaker → Retry → StatusCode → MaxBytes → HTTP
//
// 재시도는 서킷 브레이커 안쪽에 있으므로 재시도를 모두 소진한 요청 하나가 실패 1회로 집계됩니다.
// StatusCodeFetcher가 Retry 안쪽에 있어도 RetryFetcher는 *HTTPStatusError의 상태 코드로 재시도 여부를 판단합니다.
func New(cfg Config) Fetcher {
	var f Fetcher = NewHTTPFetcher(WithTimeout(cfg.Timeout), WithUserAgent(cfg.UserAgent))

	f = NewMaxBytesFetcher(f, cfg.MaxBytes)
	f = NewStatusCodeFetcher(f)

	if cfg.MaxRetries > 0 {
		f = NewRetryFetcher(f, cfg.MaxRetries, cfg.RetryDelay, 0)
	}

	if cfg.CircuitBreaker.Enabled {
		name := cfg.CircuitBreaker.Name
		if name == "" {
			name = "product-api"
		}
		f = NewCircuitBreakerFetcher(f, name, cfg.CircuitBreaker.ConsecutiveFailures, cfg.CircuitBreaker.OpenTimeout)
	}

	return NewLoggingFetcher(f)
}
