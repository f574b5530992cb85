package product

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

// ErrorKind 조회 실패의 분류
type ErrorKind int

const (
	// KindNetwork 서버 응답이 클라이언트까지 도달하지 못함 (오프라인, DNS, 타임아웃, 서킷 차단)
	KindNetwork ErrorKind = iota

	// KindServer 2xx가 아닌 응답 또는 해석할 수 없는 응답
	KindServer

	// KindValidation 요청 자체가 올바르지 않음 (빈 검색어, 잘못된 페이지 범위)
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// FetchError 상품 페이지 조회 실패를 나타냅니다.
//
// Cause는 apperrors.AppError이므로 apperrors.Is(err, apperrors.Timeout) 처럼 세부 원인을 판별할 수 있습니다.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int

	// Message 사용자에게 보여줄 메시지
	Message string

	Cause error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Title 에러 화면의 제목
func (e *FetchError) Title() string {
	switch {
	case e.Kind == KindServer && e.StatusCode == http.StatusNotFound:
		return "결과를 찾을 수 없음"
	case e.Kind == KindServer:
		return "서버 오류"
	case e.Kind == KindValidation:
		return "잘못된 요청"
	case apperrors.Is(e.Cause, apperrors.Timeout):
		return "응답 시간 초과"
	default:
		return "네트워크 오류"
	}
}

const (
	msgNetwork      = "네트워크 연결에 문제가 발생했습니다. 인터넷 연결을 확인해 주세요."
	msgTimeout      = "서버 응답 시간이 초과되었습니다. 잠시 후 다시 시도해 주세요."
	msgCircuitOpen  = "서버가 일시적으로 응답하지 않습니다. 잠시 후 다시 시도해 주세요."
	msgServer       = "서버에서 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	msgNotFound     = "요청하신 정보를 찾을 수 없습니다."
	msgBadResponse  = "서버 응답을 해석할 수 없습니다. 잠시 후 다시 시도해 주세요."
	msgEmptySearch  = "검색어를 입력해 주세요."
	msgInvalidRange = "요청한 페이지 범위가 올바르지 않습니다."
)

func newValidationError(message string) *FetchError {
	return &FetchError{
		Kind:    KindValidation,
		Message: message,
		Cause:   apperrors.New(apperrors.InvalidInput, message),
	}
}

// classifyError fetcher 체인이 반환한 에러를 FetchError로 분류합니다.
// 호출자의 취소(context.Canceled)는 실패가 아니므로 그대로 반환합니다.
func classifyError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr
	}

	var statusErr *fetcher.HTTPStatusError
	if errors.As(err, &statusErr) {
		message := statusErr.ServerMessage()
		if message == "" {
			if statusErr.StatusCode == http.StatusNotFound {
				message = msgNotFound
			} else {
				message = msgServer
			}
		}

		errType := apperrors.ExecutionFailed
		if statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests {
			errType = apperrors.Unavailable
		}

		return &FetchError{
			Kind:       KindServer,
			StatusCode: statusErr.StatusCode,
			Message:    message,
			Cause:      apperrors.Wrap(err, errType, fmt.Sprintf("상품 API가 %d 응답을 반환했습니다", statusErr.StatusCode)),
		}
	}

	if errors.Is(err, fetcher.ErrCircuitOpen) {
		return &FetchError{
			Kind:    KindNetwork,
			Message: msgCircuitOpen,
			Cause:   apperrors.Wrap(err, apperrors.Unavailable, "서킷 브레이커가 열려 있어 요청이 차단되었습니다"),
		}
	}

	if isTimeout(err) {
		return &FetchError{
			Kind:    KindNetwork,
			Message: msgTimeout,
			Cause:   apperrors.Wrap(err, apperrors.Timeout, "상품 API 요청 시간이 초과되었습니다"),
		}
	}

	if apperrors.Is(err, apperrors.ParsingFailed) {
		return &FetchError{
			Kind:    KindServer,
			Message: msgBadResponse,
			Cause:   apperrors.Wrap(err, apperrors.ExecutionFailed, "상품 API 응답을 해석하지 못했습니다"),
		}
	}

	return &FetchError{
		Kind:    KindNetwork,
		Message: msgNetwork,
		Cause:   apperrors.Wrap(err, apperrors.Unavailable, "상품 API에 연결하지 못했습니다"),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
