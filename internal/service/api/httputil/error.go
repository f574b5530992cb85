// Package httputil API 응답과 에러 변환을 위한 공통 함수를 제공합니다.
package httputil

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/model/response"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// ErrorHandler Echo의 전역 HTTP 에러 핸들러입니다.
//
// *echo.HTTPError는 그대로, apperrors.AppError는 에러 종류에 맞는 상태 코드로 변환하여 JSON으로 응답합니다.
// 5xx는 Error, 4xx는 Warn 레벨로 기록합니다.
func ErrorHandler(err error, c echo.Context) {
	code, body := resolve(err)

	fields := applog.Fields{
		"path":        c.Request().URL.Path,
		"method":      c.Request().Method,
		"status_code": code,
		"error":       err,
		"remote_ip":   c.RealIP(),
		"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
	}

	if code >= http.StatusInternalServerError {
		applog.WithComponentAndFields(constants.ComponentErrorHandler, fields).Error("HTTP 5xx 서버 에러")
	} else if code >= http.StatusBadRequest {
		applog.WithComponentAndFields(constants.ComponentErrorHandler, fields).Warn("HTTP 4xx 클라이언트 에러")
	}

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	_ = c.JSON(code, body)
}

func resolve(err error) (int, response.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		body := response.ErrorResponse{ResultCode: he.Code, Message: http.StatusText(he.Code)}
		switch msg := he.Message.(type) {
		case response.ErrorResponse:
			body = msg
		case string:
			body.Message = msg
		}
		if he.Code == http.StatusNotFound && body.Message == http.StatusText(http.StatusNotFound) {
			body.Message = constants.ErrMsgNotFound
		}
		return he.Code, body
	}

	code := StatusCodeOf(err)
	message := constants.ErrMsgInternalServer

	var appErr *apperrors.AppError
	switch {
	case code == http.StatusServiceUnavailable:
		message = constants.ErrMsgServiceUnavailable
	case code == http.StatusGatewayTimeout:
		message = constants.ErrMsgGatewayTimeout
	case code < http.StatusInternalServerError && errors.As(err, &appErr):
		message = appErr.Message()
	}

	return code, response.ErrorResponse{ResultCode: code, Message: message}
}

// StatusCodeOf 에러 체인의 가장 바깥쪽 AppError 종류에 대응하는 HTTP 상태 코드
func StatusCodeOf(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Type() {
	case apperrors.InvalidInput:
		return http.StatusBadRequest
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Unavailable:
		return http.StatusServiceUnavailable
	case apperrors.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newHTTPError(code int, message, hint string) error {
	return echo.NewHTTPError(code, response.ErrorResponse{
		ResultCode: code,
		Message:    message,
		Hint:       hint,
	})
}

func NewBadRequestError(message string) error {
	return newHTTPError(http.StatusBadRequest, message, "")
}

// NewSessionNotFoundError 세션 쿠키가 없거나 만료된 경우의 에러 (새로고침 안내 포함)
func NewSessionNotFoundError() error {
	return newHTTPError(http.StatusNotFound, constants.ErrMsgSessionNotFound, constants.HintReload)
}

func NewUnsupportedMediaTypeError() error {
	return newHTTPError(http.StatusUnsupportedMediaType, constants.ErrMsgUnsupportedMediaType, "")
}

func NewTooManyRequestsError() error {
	return newHTTPError(http.StatusTooManyRequests, constants.ErrMsgTooManyRequests, "")
}

// NewUnexpectedError 복구된 패닉 등 예기치 못한 오류의 에러 (새로고침 안내 포함)
func NewUnexpectedError() error {
	return newHTTPError(http.StatusInternalServerError, constants.ErrMsgUnexpected, constants.HintReload)
}
