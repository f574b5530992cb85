// Package system 서비스 상태(/health)와 빌드 정보(/version)를 제공하는 핸들러입니다.
package system

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darkkaiser/catalog-browser/internal/pkg/version"
	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/model/system"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// healthCheckTimeout 의존성 하나의 상태 확인에 허용하는 시간
const healthCheckTimeout = 2 * time.Second

// HealthChecker 외부 의존성의 상태를 확인합니다.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckerFunc 함수를 HealthChecker로 사용하기 위한 어댑터
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) Health(ctx context.Context) error {
	return f(ctx)
}

// SessionCounter 현재 세션 수를 알려줍니다.
type SessionCounter interface {
	Len() int
}

// Handler 시스템 엔드포인트 핸들러
type Handler struct {
	sessions SessionCounter
	checkers map[string]HealthChecker

	buildInfo version.Info

	serverStartTime time.Time
}

// NewHandler checkers의 키는 응답의 dependencies 항목 이름으로 사용됩니다.
func NewHandler(sessions SessionCounter, checkers map[string]HealthChecker, buildInfo version.Info) *Handler {
	if sessions == nil {
		panic("SessionCounter는 필수입니다")
	}

	return &Handler{
		sessions:        sessions,
		checkers:        checkers,
		buildInfo:       buildInfo,
		serverStartTime: time.Now(),
	}
}

// HealthCheckHandler 모든 의존성이 정상이면 healthy, 하나라도 실패하면 unhealthy를 503과 함께 응답합니다.
func (h *Handler) HealthCheckHandler(c echo.Context) error {
	applog.WithComponentAndFields(constants.ComponentHandler, applog.Fields{
		"endpoint":  "/health",
		"remote_ip": c.RealIP(),
	}).Debug("헬스 체크 요청")

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	serverStatus := constants.HealthStatusHealthy
	deps := make(map[string]system.DependencyStatus, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
		start := time.Now()
		err := h.checkers[name].Health(ctx)
		cancel()

		status := system.DependencyStatus{
			Status:    constants.HealthStatusHealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Message:   constants.MsgDepStatusHealthy,
		}
		if err != nil {
			status.Status = constants.HealthStatusUnhealthy
			status.Message = err.Error()
			serverStatus = constants.HealthStatusUnhealthy
		}
		deps[name] = status
	}

	code := http.StatusOK
	if serverStatus != constants.HealthStatusHealthy {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, system.HealthResponse{
		Status:         serverStatus,
		Uptime:         int64(time.Since(h.serverStartTime).Seconds()),
		ActiveSessions: h.sessions.Len(),
		Dependencies:   deps,
	})
}

// VersionHandler 빌드 정보를 응답합니다.
func (h *Handler) VersionHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, h.buildInfo)
}
