package fetcher

import (
	"fmt"
	"io"
	"net/http"
	"slices"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

// maxBodySnippetBytes 에러에 담을 응답 본문의 최대 크기
const maxBodySnippetBytes = 4096

// StatusCodeFetcher 허용된 상태 코드가 아닌 응답을 *HTTPStatusError로 변환하는 미들웨어입니다.
type StatusCodeFetcher struct {
	delegate Fetcher

	// allowedStatusCodes 비어 있으면 200 OK만 허용합니다.
	allowedStatusCodes []int
}

var _ Fetcher = (*StatusCodeFetcher)(nil)

// NewStatusCodeFetcher 200 OK만 허용하는 StatusCodeFetcher를 생성합니다.
func NewStatusCodeFetcher(delegate Fetcher, allowedStatusCodes ...int) *StatusCodeFetcher {
	return &StatusCodeFetcher{
		delegate:           delegate,
		allowedStatusCodes: allowedStatusCodes,
	}
}

func (f *StatusCodeFetcher) Do(req *http.Request) (*http.Response, error) {
	resp, err := f.delegate.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	if statusErr := checkResponseStatus(resp, f.allowedStatusCodes...); statusErr != nil {
		drainAndCloseBody(resp.Body)
		return nil, statusErr
	}

	return resp, nil
}

// checkResponseStatus 응답 상태 코드를 검사하여 허용되지 않으면 본문 일부를 읽어 *HTTPStatusError를 반환합니다.
func checkResponseStatus(resp *http.Response, allowedStatusCodes ...int) error {
	if len(allowedStatusCodes) == 0 {
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	} else if slices.Contains(allowedStatusCodes, resp.StatusCode) {
		return nil
	}

	urlStr := ""
	if resp.Request != nil && resp.Request.URL != nil {
		urlStr = redactURL(resp.Request.URL)
	}

	var bodySnippet string
	if resp.Body != nil {
		if b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippetBytes)); err == nil {
			bodySnippet = string(b)
		}
	}

	return &HTTPStatusError{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		URL:         urlStr,
		Header:      resp.Header.Clone(),
		BodySnippet: bodySnippet,
		Cause:       apperrors.New(statusErrorType(resp.StatusCode), fmt.Sprintf("HTTP 요청이 실패했습니다. 상태 코드: %d", resp.StatusCode)),
	}
}

// statusErrorType 상태 코드를 애플리케이션 에러 타입으로 분류합니다.
//   - 5xx, 408, 429: Unavailable (일시적 장애, 재시도 대상)
//   - 400, 422: InvalidInput
//   - 404: NotFound
//   - 그 외: ExecutionFailed
func statusErrorType(statusCode int) apperrors.ErrorType {
	switch {
	case statusCode >= 500, statusCode == http.StatusTooManyRequests, statusCode == http.StatusRequestTimeout:
		return apperrors.Unavailable
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput
	case statusCode == http.StatusNotFound:
		return apperrors.NotFound
	default:
		return apperrors.ExecutionFailed
	}
}
