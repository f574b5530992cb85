package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/httputil"
	appmiddleware "github.com/darkkaiser/catalog-browser/internal/service/api/middleware"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// HTTPServerConfig HTTP 서버 생성에 필요한 설정을 정의합니다.
type HTTPServerConfig struct {
	// Debug Echo 프레임워크의 디버그 모드 활성화 여부
	Debug bool

	// AllowOrigins CORS에서 허용할 Origin 목록
	AllowOrigins []string

	// RateLimitEnabled false이면 요청 속도 제한 미들웨어를 적용하지 않습니다.
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int

	// RequestTimeout 각 HTTP 요청의 최대 처리 시간 (기본값: 30초)
	RequestTimeout time.Duration
}

// NewHTTPServer 설정된 미들웨어를 포함한 Echo 인스턴스를 생성합니다.
//
// 미들웨어는 다음 순서로 적용됩니다:
//
//  1. PanicRecovery - 패닉을 복구하고 일반 오류 메시지와 새로고침 안내로 응답
//  2. RequestID - 요청마다 X-Request-ID 부여 (로그의 request_id)
//  3. Server 헤더 제거
//  4. HTTPLogger - 요청/응답 로깅 (429, 503 응답도 기록되도록 속도 제한보다 앞에 위치)
//  5. RateLimiting - IP별 초당 요청 수 제한
//  6. BodyLimit - 요청 본문 크기 제한
//  7. Timeout - 요청 처리 시간 제한
//  8. CORS
//  9. Secure - 보안 헤더
//
// 라우트는 포함되지 않으며 RegisterRoutes로 별도 등록합니다.
func NewHTTPServer(cfg HTTPServerConfig) *echo.Echo {
	e := echo.New()

	e.Debug = cfg.Debug
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = constants.DefaultReadTimeout
	e.Server.ReadHeaderTimeout = constants.DefaultReadHeaderTimeout
	e.Server.WriteTimeout = constants.DefaultWriteTimeout
	e.Server.IdleTimeout = constants.DefaultIdleTimeout

	// Echo 내부 로그도 애플리케이션 로거로 기록합니다.
	e.Logger = appmiddleware.Logger{Logger: applog.StandardLogger()}

	e.HTTPErrorHandler = httputil.ErrorHandler

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = constants.DefaultRequestTimeout
	}

	e.Use(appmiddleware.PanicRecovery())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderServer, "")
			return next(c)
		}
	})
	e.Use(appmiddleware.HTTPLogger())
	if cfg.RateLimitEnabled {
		e.Use(appmiddleware.RateLimiting(cfg.RequestsPerSecond, cfg.Burst))
	}
	e.Use(middleware.BodyLimit(constants.DefaultMaxBodySize))
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: timeout,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPut, http.MethodPost},
		AllowCredentials: !containsWildcard(cfg.AllowOrigins),
	}))
	e.Use(middleware.Secure())

	return e
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
