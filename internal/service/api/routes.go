package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darkkaiser/catalog-browser/internal/service/api/constants"
	"github.com/darkkaiser/catalog-browser/internal/service/api/handler/catalog"
	"github.com/darkkaiser/catalog-browser/internal/service/api/handler/system"
	appmiddleware "github.com/darkkaiser/catalog-browser/internal/service/api/middleware"
)

// redirectPaths 상품 목록 화면으로 보내는 진입 경로
var redirectPaths = []string{"/", "/index", "/home"}

// RegisterRoutes API 서비스의 모든 라우트를 등록합니다.
//
//   - 진입 경로(/, /index, /home): 쿼리 문자열을 유지한 채 /product-list로 리다이렉트
//   - /product-list: 세션을 열고 첫 페이지까지 포함한 화면 상태를 응답
//   - /api/v1/*: 세션 쿠키가 필요한 화면 이벤트 API
//   - /health, /version, /metrics: 운영용 엔드포인트
func RegisterRoutes(e *echo.Echo, systemHandler *system.Handler, catalogHandler *catalog.Handler) {
	registerSystemRoutes(e, systemHandler)
	registerRedirectRoutes(e)
	registerCatalogRoutes(e, catalogHandler)
}

func registerSystemRoutes(e *echo.Echo, h *system.Handler) {
	e.GET("/health", h.HealthCheckHandler)
	e.GET("/version", h.VersionHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func registerRedirectRoutes(e *echo.Echo) {
	for _, path := range redirectPaths {
		e.GET(path, redirectToProductList)
	}
}

func redirectToProductList(c echo.Context) error {
	target := constants.PathProductList
	if raw := c.Request().URL.RawQuery; raw != "" {
		target += "?" + raw
	}
	return c.Redirect(http.StatusFound, target)
}

func registerCatalogRoutes(e *echo.Echo, h *catalog.Handler) {
	e.GET(constants.PathProductList, h.ProductListHandler)

	g := e.Group(constants.APIPrefix, h.RequireSession(), appmiddleware.ValidateContentType(echo.MIMEApplicationJSON))

	g.GET("/product-list/view", h.ViewHandler)
	g.POST("/product-list/filter", h.FilterHandler)
	g.POST("/product-list/sentinel", h.SentinelHandler)
	g.POST("/product-list/retry", h.RetryHandler)

	g.POST("/history/back", h.BackHandler)
	g.POST("/history/forward", h.ForwardHandler)

	g.POST("/network", h.NetworkHandler)

	g.GET("/view-mode", h.GetViewModeHandler)
	g.PUT("/view-mode", h.PutViewModeHandler)
}
