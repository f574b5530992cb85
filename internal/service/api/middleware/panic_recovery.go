package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/httputil"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const stackBufferSize = 4 << 10

// PanicRecovery 핸들러에서 발생한 패닉을 복구하여 스택과 함께 기록하고,
// 클라이언트에는 상세 내용 없이 일반 오류 메시지와 새로고침 안내를 응답합니다.
func PanicRecovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				err, ok := r.(error)
				if !ok {
					err = apperrors.New(apperrors.Internal, fmt.Sprintf("%v", r))
				}

				stack := make([]byte, stackBufferSize)
				length := runtime.Stack(stack, false)

				fields := applog.Fields{
					"error":  err,
					"stack":  string(stack[:length]),
					"path":   c.Request().URL.Path,
					"method": c.Request().Method,
				}
				if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
					fields["request_id"] = requestID
				}

				applog.WithComponentAndFields(constants.ComponentMiddleware, fields).Error("PANIC RECOVERED")

				returnErr = httputil.NewUnexpectedError()
			}()

			return next(c)
		}
	}
}
