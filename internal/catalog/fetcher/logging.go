package fetcher

import (
	"net/http"
	"net/url"
	"time"

	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// LoggingFetcher 요청 메서드와 URL, 소요 시간, 결과를 로깅하는 미들웨어입니다.
// 실패는 Error, 성공은 Debug 레벨로 기록합니다.
type LoggingFetcher struct {
	delegate Fetcher
}

var _ Fetcher = (*LoggingFetcher)(nil)

func NewLoggingFetcher(delegate Fetcher) *LoggingFetcher {
	return &LoggingFetcher{delegate: delegate}
}

func (f *LoggingFetcher) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := f.delegate.Do(req)

	fields := applog.Fields{
		"method":   req.Method,
		"url":      redactURL(req.URL),
		"duration": time.Since(start).String(),
	}
	if resp != nil {
		fields["status_code"] = resp.StatusCode
	}

	logger := applog.WithComponent(component).WithContext(req.Context()).WithFields(fields)
	if err != nil {
		logger.WithError(err).Error("HTTP 요청 실패")
	} else {
		logger.Debug("HTTP 요청 완료")
	}

	return resp, err
}

// redactURL URL에 포함된 사용자 인증 정보를 가립니다.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Redacted()
}
