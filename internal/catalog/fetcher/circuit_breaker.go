package fetcher

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/darkkaiser/catalog-browser/internal/pkg/metrics"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// ErrCircuitOpen 서킷이 열려 있어 요청을 보내지 않고 즉시 거부했음을 나타냅니다.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerFetcher 원격 API의 연속 실패가 임계치를 넘으면 일정 시간 동안 요청을 차단하는 미들웨어입니다.
//
// 네트워크 에러와 5xx 응답(*HTTPStatusError)을 실패로 집계합니다. 4xx는 클라이언트 요청의 문제이므로 서킷 상태에 영향을 주지 않습니다.
type CircuitBreakerFetcher struct {
	delegate Fetcher
	breaker  *gobreaker.CircuitBreaker[*http.Response]
}

var _ Fetcher = (*CircuitBreakerFetcher)(nil)

// NewCircuitBreakerFetcher consecutiveFailures번 연속 실패하면 서킷을 열고 openTimeout 후 반개방 상태로 전환합니다.
func NewCircuitBreakerFetcher(delegate Fetcher, name string, consecutiveFailures uint32, openTimeout time.Duration) *CircuitBreakerFetcher {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))

			applog.WithComponent(component).WithFields(applog.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("서킷 브레이커 상태가 변경되었습니다")
		},
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(gobreaker.StateClosed))

	return &CircuitBreakerFetcher{
		delegate: delegate,
		breaker:  gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// State 현재 서킷 상태를 반환합니다.
func (f *CircuitBreakerFetcher) State() gobreaker.State {
	return f.breaker.State()
}

func (f *CircuitBreakerFetcher) Do(req *http.Request) (*http.Response, error) {
	return f.breaker.Execute(func() (*http.Response, error) {
		return f.delegate.Do(req)
	})
}

// isBreakerSuccess 서킷 상태 집계에서 성공으로 간주할 결과인지 판단합니다.
// 4xx 응답(408, 429 제외)은 원격 서버의 장애가 아니므로 성공으로 봅니다.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500 && !isRetriableStatus(statusErr.StatusCode)
	}

	return false
}
