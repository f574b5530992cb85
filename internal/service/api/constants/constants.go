// Package constants API 서비스 전반에서 사용하는 컴포넌트 이름, 메시지, 기본값을 정의합니다.
package constants

import "time"

// 로깅 컴포넌트 이름
const (
	ComponentService      = "api.service"
	ComponentHandler      = "api.handler"
	ComponentMiddleware   = "api.middleware"
	ComponentErrorHandler = "api.error_handler"
)

// HTTP 서버 기본값
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultReadTimeout       = 15 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxBodySize       = "64K"
	DefaultShutdownTimeout   = 5 * time.Second
)

// 경로
const (
	PathProductList = "/product-list"
	APIPrefix       = "/api/v1"
)

// ContextKeySession 세션 미들웨어가 echo.Context에 저장하는 세션의 키
const ContextKeySession = "browser_session"

// 에러 응답 메시지
const (
	ErrMsgBadRequest            = "잘못된 요청입니다"
	ErrMsgBadRequestInvalidBody = "요청 본문을 파싱할 수 없습니다. JSON 형식을 확인해주세요"
	ErrMsgNotFound              = "요청한 리소스를 찾을 수 없습니다"
	ErrMsgSessionNotFound       = "세션이 만료되었거나 존재하지 않습니다"
	ErrMsgUnsupportedMediaType  = "지원하지 않는 미디어 타입입니다"
	ErrMsgTooManyRequests       = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요"
	ErrMsgInternalServer        = "내부 서버 오류가 발생했습니다"
	ErrMsgServiceUnavailable    = "상품 서버에 일시적으로 연결할 수 없습니다. 잠시 후 다시 시도해주세요"
	ErrMsgGatewayTimeout        = "상품 서버의 응답이 지연되고 있습니다. 잠시 후 다시 시도해주세요"
	ErrMsgUnexpected            = "예상치 못한 오류가 발생했습니다"
)

// 에러 응답 안내 문구
const (
	HintReload = "페이지를 새로고침해 주세요"
)

// 헬스 체크
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"

	MsgDepStatusHealthy = "정상 작동 중"
)

// 서비스 로그 메시지
const (
	LogMsgServiceStarting       = "API 서비스 시작중..."
	LogMsgServiceStarted        = "API 서비스 시작됨"
	LogMsgServiceAlreadyStarted = "API 서비스가 이미 시작됨!!!"
	LogMsgServiceStopping       = "API 서비스 중지중..."
	LogMsgServiceStopped        = "API 서비스 중지됨"
	LogMsgServiceUnexpectedExit = "API 서비스가 예기치 않게 종료되었습니다"

	LogMsgServiceHTTPServerStarting      = "API 서비스 > http 서버 시작"
	LogMsgServiceHTTPServerStopped       = "API 서비스 > http 서버 중지됨"
	LogMsgServiceHTTPServerShutdownError = "API 서비스 > http 서버 종료 중 오류 발생"
	LogMsgServiceHTTPServerFatalError    = "API 서비스 > http 서버를 구성하는 중에 치명적인 오류가 발생하였습니다."
)

// SensitiveQueryParams 요청 로그에서 값을 마스킹하는 쿼리 파라미터
var SensitiveQueryParams = []string{
	"api_key",
	"password",
	"token",
	"secret",
}
