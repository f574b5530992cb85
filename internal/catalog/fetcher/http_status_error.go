package fetcher

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// HTTPStatusError 허용되지 않은 HTTP 상태 코드를 받았을 때 응답 정보를 담는 에러입니다.
//
// Cause에는 상태 코드로 분류한 apperrors.AppError가 들어 있어 apperrors.Is로 종류를 판별할 수 있습니다.
//
//	var statusErr *fetcher.HTTPStatusError
//	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound { ... }
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
	Header     http.Header

	// BodySnippet 응답 본문의 앞부분(최대 4KB)
	BodySnippet string

	Cause error
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d (%s)", e.StatusCode, e.Status)
	if e.URL != "" {
		msg += fmt.Sprintf(" URL: %s", e.URL)
	}
	if e.BodySnippet != "" {
		msg += fmt.Sprintf(", Body: %s", e.BodySnippet)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Cause
}

// ServerMessage 응답 본문이 JSON이면 "message" 필드를 반환합니다.
// dummyjson 계열 API는 에러 응답을 {"message":"..."} 형태로 보냅니다.
func (e *HTTPStatusError) ServerMessage() string {
	body := strings.TrimSpace(e.BodySnippet)
	if body == "" || !gjson.Valid(body) {
		return ""
	}
	return strings.TrimSpace(gjson.Get(body, "message").String())
}
