// Package errors 애플리케이션 전용 에러 타입을 제공합니다.
//
// 모든 에러는 ErrorType으로 분류되며, Wrap 계열 함수로 원인 에러를 감싸 컨텍스트를 누적합니다.
// 상품 API 호출, 설정 로드, 선호값 저장소 등 계층마다 발생한 에러를 하나의 체인으로 연결해
// 최종적으로 오케스트레이터가 "에러 화면"과 "콘텐츠 화면" 중 무엇을 그릴지 판단하는 근거가 됩니다.
//
// # 기본 사용법
//
//	err := errors.New(errors.InvalidInput, "검색어가 비어 있습니다")
//
//	if err != nil {
//	    return errors.Wrap(err, errors.Unavailable, "상품 목록 요청 실패")
//	}
//
//	if errors.Is(err, errors.Timeout) {
//	    // 타임아웃 처리
//	}
//
// # ErrorType 선택 가이드
//
// Unknown:
//   - 분류할 수 없는 에러 (기본값, 사용 지양)
//
// Internal:
//   - 애플리케이션 내부 로직 오류 (버그로 간주)
//   - 예: "예상치 못한 nil 값", "잘못된 상태 전이"
//
// System:
//   - 디스크 I/O, 저장소(Redis) 연결 등 인프라 수준의 장애
//
// InvalidInput:
//   - 사용자 입력값 또는 설정값 검증 실패
//   - 예: "검색어가 비어 있습니다", "페이지 크기는 1 이상이어야 합니다"
//
// NotFound:
//   - 요청한 리소스를 찾을 수 없음
//
// ExecutionFailed:
//   - 상품 API 호출이 비정상 응답으로 끝난 경우 (4xx 등)
//
// ParsingFailed:
//   - 응답 본문(JSON) 디코딩 실패, 저장된 선호값 역직렬화 실패
//
// Timeout:
//   - HTTP 요청 타임아웃 (context.DeadlineExceeded 포함)
//
// Unavailable:
//   - 네트워크 단절, 5xx 응답, 서킷 브레이커 개방 등 일시적 사용 불가
package errors

import (
	"errors"
	"fmt"
)

// AppError ErrorType으로 분류된 에러입니다. cause가 있으면 Unwrap으로 원인 에러를 노출합니다.
type AppError struct {
	errType ErrorType
	message string
	cause   error
}

func (e *AppError) Type() ErrorType {
	return e.errType
}

// Message 원인 에러를 제외한, 이 계층에서 붙인 메시지만 반환합니다. 클라이언트 응답 본문에 그대로 쓰입니다.
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.errType, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.errType, e.message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// New 새로운 에러를 생성합니다.
func New(errType ErrorType, message string) error {
	return &AppError{errType: errType, message: message}
}

// Newf 포맷 문자열을 사용하여 새로운 에러를 생성합니다.
func Newf(errType ErrorType, format string, args ...any) error {
	return &AppError{errType: errType, message: fmt.Sprintf(format, args...)}
}

// Wrap err를 원인으로 하는 새 에러를 만듭니다. err가 nil이면 nil을 반환합니다.
func Wrap(err error, errType ErrorType, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{errType: errType, message: message, cause: err}
}

// Wrapf 포맷 문자열을 사용하는 Wrap입니다.
func Wrapf(err error, errType ErrorType, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &AppError{errType: errType, message: fmt.Sprintf(format, args...), cause: err}
}

// Is 에러 체인 어딘가에 errType으로 분류된 AppError가 있는지 확인합니다.
func Is(err error, errType ErrorType) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.errType == errType {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// UnderlyingType 에러 체인에서 원인에 가장 가까운 AppError의 ErrorType을 반환합니다.
//
// 재시도 판단처럼 바깥 계층이 Unavailable로 다시 감싼 뒤에도 최초 분류(예: Timeout)가 필요할 때 씁니다.
// 체인에 AppError가 없거나 err가 nil이면 Unknown입니다.
func UnderlyingType(err error) ErrorType {
	last := Unknown
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			last = appErr.errType
		}
		err = errors.Unwrap(err)
	}
	return last
}
