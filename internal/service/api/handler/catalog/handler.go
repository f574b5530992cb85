// Package catalog 상품 목록 화면의 세션 API 핸들러입니다.
//
// 브라우저는 catalog_session 쿠키로 세션을 식별하며, 화면에서 일어난 일(입력, 스크롤, 네트워크 상태)을 보고하고
// 응답으로 받은 View를 그대로 그립니다.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/handler"
	"github.com/darkkaiser/catalog-browser/internal/service/api/httputil"
	"github.com/darkkaiser/catalog-browser/internal/service/browser"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// SessionStore 세션 조회와 생성
type SessionStore interface {
	Open(ctx context.Context, id, rawURL string) (*browser.Session, bool, error)
	Get(id string) (*browser.Session, bool)
}

// Handler 세션 API 핸들러
type Handler struct {
	sessions SessionStore

	// firstPageWait GET /product-list가 첫 페이지를 기다리는 최대 시간
	firstPageWait time.Duration

	secureCookie bool
}

// NewHandler Handler 인스턴스를 생성합니다.
func NewHandler(sessions SessionStore, firstPageWait time.Duration, secureCookie bool) *Handler {
	if sessions == nil {
		panic("SessionStore는 필수입니다")
	}

	return &Handler{
		sessions:      sessions,
		firstPageWait: firstPageWait,
		secureCookie:  secureCookie,
	}
}

// ProductListHandler 요청 URL로 세션을 열고(없으면 생성), 첫 페이지 응답을 제한 시간 동안 기다린 뒤 화면 상태를 응답합니다.
func (h *Handler) ProductListHandler(c echo.Context) error {
	s, created, err := h.sessions.Open(c.Request().Context(), sessionID(c), c.Request().URL.RequestURI())
	if err != nil {
		return err
	}
	if created {
		c.SetCookie(&http.Cookie{
			Name:     browser.SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.firstPageWait)
	defer cancel()

	if err := s.List.Settle(ctx); err != nil && errors.Is(err, context.DeadlineExceeded) {
		applog.WithComponentAndFields(constants.ComponentHandler, applog.Fields{
			"session_id": s.ID,
			"wait":       h.firstPageWait.String(),
		}).Debug("첫 페이지 대기 시간이 지나 로딩 상태로 응답합니다")
	}

	return c.JSON(http.StatusOK, newProductListResponse(s))
}

// RequireSession 쿠키의 세션을 찾아 Context에 저장합니다. 세션이 없으면 새로고침 안내와 함께 404를 응답합니다.
func (h *Handler) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := h.sessions.Get(sessionID(c))
			if !ok {
				return httputil.NewSessionNotFoundError()
			}
			c.Set(constants.ContextKeySession, s)
			return next(c)
		}
	}
}

// ViewHandler 기다리지 않고 현재 화면 상태를 응답합니다.
func (h *Handler) ViewHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, newProductListResponse(session(c)))
}

// FilterHandler 검색어와 정렬 입력을 반영합니다. 검색어는 입력이 멈춘 뒤 URL에 반영됩니다.
func (h *Handler) FilterHandler(c echo.Context) error {
	var req FilterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s := session(c)
	if req.SearchTerm != nil {
		s.Form.SetSearchTerm(*req.SearchTerm)
	}
	if req.SortByRating != nil {
		s.Form.SetSortByRating(*req.SortByRating)
	}
	if req.Submit {
		s.Form.Submit()
	}

	return c.JSON(http.StatusOK, newProductListResponse(s))
}

// SentinelHandler 감시 요소의 가시성을 반영합니다. 보이면 다음 페이지 조회가 시작될 수 있습니다.
func (h *Handler) SentinelHandler(c echo.Context) error {
	var req SentinelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s := session(c)
	s.ReportSentinel(*req.Visible)

	return c.JSON(http.StatusOK, newProductListResponse(s))
}

// RetryHandler 실패한 조회를 다시 요청합니다.
func (h *Handler) RetryHandler(c echo.Context) error {
	s := session(c)
	retried := s.List.Retry()

	return c.JSON(http.StatusOK, RetryResponse{
		Retried:             retried,
		ProductListResponse: newProductListResponse(s),
	})
}

// BackHandler 브라우저 뒤로 가기
func (h *Handler) BackHandler(c echo.Context) error {
	s := session(c)
	moved := s.Location.Back()

	return c.JSON(http.StatusOK, HistoryResponse{
		Moved:               moved,
		ProductListResponse: newProductListResponse(s),
	})
}

// ForwardHandler 브라우저 앞으로 가기
func (h *Handler) ForwardHandler(c echo.Context) error {
	s := session(c)
	moved := s.Location.Forward()

	return c.JSON(http.StatusOK, HistoryResponse{
		Moved:               moved,
		ProductListResponse: newProductListResponse(s),
	})
}

// NetworkHandler 온라인/오프라인 신호를 반영합니다.
func (h *Handler) NetworkHandler(c echo.Context) error {
	var req NetworkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s := session(c)
	s.List.SetOnline(*req.Online)

	return c.JSON(http.StatusOK, newProductListResponse(s))
}

// GetViewModeHandler 보기 방식 선호도를 응답합니다.
func (h *Handler) GetViewModeHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, newViewModeResponse(session(c)))
}

// PutViewModeHandler 보기 방식을 바꾸고 즉시 저장합니다. 만료 시각은 갱신하지 않습니다.
func (h *Handler) PutViewModeHandler(c echo.Context) error {
	var req ViewModeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	s := session(c)
	if err := s.ViewModes.SetMode(c.Request().Context(), viewmode.Mode(req.Mode)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newViewModeResponse(s))
}

func sessionID(c echo.Context) string {
	cookie, err := c.Cookie(browser.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func session(c echo.Context) *browser.Session {
	s, ok := c.Get(constants.ContextKeySession).(*browser.Session)
	if !ok {
		panic("세션이 Context에 없습니다. RequireSession 미들웨어가 적용되었는지 확인해주세요")
	}
	return s
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return httputil.NewBadRequestError(constants.ErrMsgBadRequestInvalidBody)
	}
	if err := handler.ValidateRequest(req); err != nil {
		return httputil.NewBadRequestError(handler.FormatValidationError(err))
	}
	return nil
}
