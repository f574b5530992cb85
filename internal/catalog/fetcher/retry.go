package fetcher

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const (
	minAllowedRetries = 0
	maxAllowedRetries = 10

	// minAllowedRetryDelay 재시도 간격의 하한
	minAllowedRetryDelay = 10 * time.Millisecond

	defaultMaxRetryDelay = 10 * time.Second
)

// RetryFetcher 일시적인 오류에 대해 지수 백오프(Full Jitter)로 요청을 재시도하는 미들웨어입니다.
//
// 안전한 메서드(GET, HEAD, OPTIONS, TRACE)만 재시도하며, 응답에 Retry-After 헤더가 있으면 그 값을 우선합니다.
// Retry-After가 maxDelay를 넘으면 대기하지 않고 즉시 포기합니다.
type RetryFetcher struct {
	delegate   Fetcher
	maxRetries int
	minDelay   time.Duration
	maxDelay   time.Duration
}

var _ Fetcher = (*RetryFetcher)(nil)

type noRetryKey struct{}

// WithoutRetry ctx로 만든 요청은 RetryFetcher를 거쳐도 한 번만 시도됩니다.
// 사용자가 누른 "다시 시도" 한 번이 상품 API 요청 한 번이 되도록 할 때 씁니다.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// RetriesDisabled ctx가 WithoutRetry로 만들어졌는지 확인합니다.
func RetriesDisabled(ctx context.Context) bool {
	disabled, _ := ctx.Value(noRetryKey{}).(bool)
	return disabled
}

// NewRetryFetcher maxRetries는 [0, 10] 범위로 보정되고 minDelay는 최소 10ms로 보정됩니다.
func NewRetryFetcher(delegate Fetcher, maxRetries int, minDelay, maxDelay time.Duration) *RetryFetcher {
	maxRetries = min(max(maxRetries, minAllowedRetries), maxAllowedRetries)

	if minDelay < minAllowedRetryDelay {
		minDelay = minAllowedRetryDelay
	}
	if maxDelay == 0 {
		maxDelay = defaultMaxRetryDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &RetryFetcher{
		delegate:   delegate,
		maxRetries: maxRetries,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
	}
}

func (f *RetryFetcher) Do(req *http.Request) (*http.Response, error) {
	if !isIdempotentMethod(req.Method) {
		return f.delegate.Do(req)
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return f.delegate.Do(req)
	}

	ctx := req.Context()

	maxRetries := f.maxRetries
	if RetriesDisabled(ctx) {
		maxRetries = 0
	}

	var lastErr error
	var lastResp *http.Response

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			delay, giveUp := f.nextDelay(i, lastResp, lastErr)

			if lastResp != nil {
				drainAndCloseBody(lastResp.Body)
				lastResp = nil
			}

			if giveUp {
				break
			}

			applog.WithComponent(component).WithContext(ctx).WithFields(applog.Fields{
				"url":         redactURL(req.URL),
				"attempt":     i,
				"max_retries": maxRetries,
				"delay":       delay.String(),
				"error":       lastErr,
			}).Warn("일시적인 오류로 요청을 재시도합니다")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		attemptReq := req
		if i > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, apperrors.Wrap(err, apperrors.Internal, "재시도 요청 본문을 다시 만들지 못했습니다")
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		resp, err := f.delegate.Do(attemptReq)
		if err == nil && !isRetriableStatus(resp.StatusCode) {
			return resp, nil
		}

		lastResp = resp
		lastErr = err

		if err != nil && !isRetriable(err) {
			if resp != nil {
				drainAndCloseBody(resp.Body)
			}
			return nil, err
		}
	}

	if lastResp != nil {
		// 마지막 응답은 상위 미들웨어(StatusCodeFetcher 등)가 판단할 수 있도록 그대로 돌려줍니다.
		if lastErr == nil {
			return lastResp, nil
		}
		drainAndCloseBody(lastResp.Body)
	}

	if lastErr == nil {
		lastErr = apperrors.New(apperrors.Unavailable, "재시도 대기 시간이 허용 범위를 초과하여 요청을 중단했습니다")
	}
	return nil, apperrors.Wrap(lastErr, apperrors.Unavailable, fmt.Sprintf("최대 재시도 횟수(%d)를 초과했습니다", maxRetries))
}

// nextDelay i번째 재시도 전 대기 시간을 계산합니다. giveUp이 true이면 더 이상 시도하지 않습니다.
func (f *RetryFetcher) nextDelay(i int, lastResp *http.Response, lastErr error) (delay time.Duration, giveUp bool) {
	var header http.Header
	if lastResp != nil {
		header = lastResp.Header
	} else {
		var statusErr *HTTPStatusError
		if errors.As(lastErr, &statusErr) {
			header = statusErr.Header
		}
	}

	if header != nil {
		if d, ok := parseRetryAfter(header.Get("Retry-After")); ok {
			if d > f.maxDelay {
				return 0, true
			}
			return d, false
		}
	}

	backoff := f.minDelay << (i - 1)
	if backoff <= 0 || backoff > f.maxDelay {
		backoff = f.maxDelay
	}
	return time.Duration(rand.Int64N(int64(backoff)) + 1), false
}

func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// isRetriableStatus 408, 429, 5xx(501, 505, 511 제외)를 일시적 오류로 판단합니다.
func isRetriableStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests || statusCode == http.StatusRequestTimeout {
		return true
	}
	if statusCode >= 500 {
		return !slices.Contains([]int{
			http.StatusNotImplemented,
			http.StatusHTTPVersionNotSupported,
			http.StatusNetworkAuthenticationRequired,
		}, statusCode)
	}
	return false
}

func isRetriable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var certErr *x509.CertificateInvalidError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) || errors.As(err, &hostnameErr) {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isRetriableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	switch apperrors.UnderlyingType(err) {
	case apperrors.InvalidInput, apperrors.NotFound, apperrors.ParsingFailed, apperrors.ExecutionFailed, apperrors.Internal:
		return false
	}

	// 분류할 수 없는 전송 계층 에러는 일시적인 것으로 간주합니다.
	return true
}
