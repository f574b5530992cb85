package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/catalog/productlist"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/config"
	"github.com/darkkaiser/catalog-browser/internal/service/api/httputil"
	"github.com/darkkaiser/catalog-browser/internal/service/api/model/response"
	"github.com/darkkaiser/catalog-browser/internal/service/browser"
)

type stubCatalog struct {
	mu     sync.Mutex
	totals map[string]int
}

func (c *stubCatalog) FetchPage(_ context.Context, req product.PageRequest) (*product.Page, error) {
	c.mu.Lock()
	total := c.totals[req.Key.SearchTerm]
	c.mu.Unlock()

	page := &product.Page{Total: total, Skip: req.Skip, Limit: req.Limit}
	for i := req.Skip; i < min(req.Skip+req.Limit, total); i++ {
		page.Items = append(page.Items, product.Product{ID: i + 1, Title: fmt.Sprintf("item-%d", i+1)})
	}
	return page, nil
}

type testServer struct {
	e      *echo.Echo
	cookie *http.Cookie
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	appConfig := config.Default()
	appConfig.Catalog.DebounceDelay = time.Hour

	m := browser.NewManager(&appConfig, &stubCatalog{totals: map[string]int{"": 45, "phone": 5}}, viewmode.NewMemoryStorage())

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	require.NoError(t, m.Start(ctx, wg))
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	h := NewHandler(m, 2*time.Second, false)

	e := echo.New()
	e.HTTPErrorHandler = httputil.ErrorHandler
	e.GET("/product-list", h.ProductListHandler)

	g := e.Group("/api/v1", h.RequireSession())
	g.GET("/product-list/view", h.ViewHandler)
	g.POST("/product-list/filter", h.FilterHandler)
	g.POST("/product-list/sentinel", h.SentinelHandler)
	g.POST("/product-list/retry", h.RetryHandler)
	g.POST("/history/back", h.BackHandler)
	g.POST("/history/forward", h.ForwardHandler)
	g.POST("/network", h.NetworkHandler)
	g.GET("/view-mode", h.GetViewModeHandler)
	g.PUT("/view-mode", h.PutViewModeHandler)

	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// open 상품 목록 페이지를 열고 발급된 세션 쿠키를 이후 요청에 사용합니다.
func (s *testServer) open(t *testing.T, target string) ProductListResponse {
	t.Helper()

	rec := s.do(t, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == browser.SessionCookie {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie, "세션 쿠키가 발급되어야 합니다")

	return decode[ProductListResponse](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewHandler_PanicsWithoutSessionStore(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil, time.Second, false) })
}

func TestProductListHandler_IssuesCookieAndWaitsForFirstPage(t *testing.T) {
	s := setupTestServer(t)

	res := s.open(t, "/product-list?q=phone")

	assert.Equal(t, "/product-list?q=phone", res.URL)
	assert.True(t, s.cookie.HttpOnly)
	assert.Equal(t, productlist.RenderItems, res.View.Kind)
	assert.Len(t, res.View.Items, 5)
	assert.Equal(t, "phone", res.Draft.SearchTerm)
	assert.False(t, res.CanGoBack)
}

func TestProductListHandler_ReusesExistingSession(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")
	first := s.cookie.Value

	rec := s.do(t, http.MethodGet, "/product-list?q=phone", "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, browser.SessionCookie, c.Name, "기존 세션에는 쿠키를 다시 발급하지 않습니다")
	}
	assert.Equal(t, first, s.cookie.Value)
	assert.True(t, decode[ProductListResponse](t, rec).CanGoBack)
}

func TestRequireSession_MissingSession(t *testing.T) {
	s := setupTestServer(t)

	for _, cookie := range []*http.Cookie{nil, {Name: browser.SessionCookie, Value: "unknown"}} {
		s.cookie = cookie
		rec := s.do(t, http.MethodGet, "/api/v1/product-list/view", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
		res := decode[response.ErrorResponse](t, rec)
		assert.Equal(t, http.StatusNotFound, res.ResultCode)
		assert.NotEmpty(t, res.Hint)
	}
}

func TestFilterHandler(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")

	t.Run("입력만 하면 URL은 그대로이고 대기 상태가 됩니다", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/product-list/filter", `{"search_term":"phone"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[ProductListResponse](t, rec)
		assert.Equal(t, "/product-list", res.URL)
		assert.Equal(t, "phone", res.Draft.SearchTerm)
		assert.True(t, res.Draft.Pending)
	})

	t.Run("제출하면 즉시 URL에 반영됩니다", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/product-list/filter", `{"sort_by_rating":true,"submit":true}`)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[ProductListResponse](t, rec)
		assert.Contains(t, res.URL, "q=phone")
		assert.Contains(t, res.URL, "sort=rating")
		assert.False(t, res.Draft.Pending)
		assert.True(t, res.CanGoBack)
	})

	t.Run("검색어가 너무 길면 400", func(t *testing.T) {
		body := fmt.Sprintf(`{"search_term":%q}`, strings.Repeat("a", 101))
		rec := s.do(t, http.MethodPost, "/api/v1/product-list/filter", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("잘못된 JSON은 400", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/v1/product-list/filter", `{"search_term":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSentinelHandler_LoadsNextPage(t *testing.T) {
	s := setupTestServer(t)
	res := s.open(t, "/product-list")
	require.Len(t, res.View.Items, 20)

	rec := s.do(t, http.MethodPost, "/api/v1/product-list/sentinel", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "visible은 필수입니다")

	rec = s.do(t, http.MethodPost, "/api/v1/product-list/sentinel", `{"visible":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		view := decode[ProductListResponse](t, s.do(t, http.MethodGet, "/api/v1/product-list/view", "")).View
		return len(view.Items) == 40 && !view.FetchingMore
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetryHandler_NothingToRetry(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")

	rec := s.do(t, http.MethodPost, "/api/v1/product-list/retry", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[RetryResponse](t, rec)
	assert.False(t, res.Retried)
	assert.Equal(t, productlist.RenderItems, res.View.Kind)
}

func TestHistoryHandlers(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")
	s.do(t, http.MethodPost, "/api/v1/product-list/filter", `{"search_term":"phone","submit":true}`)

	rec := s.do(t, http.MethodPost, "/api/v1/history/back", "")
	require.Equal(t, http.StatusOK, rec.Code)
	back := decode[HistoryResponse](t, rec)
	assert.True(t, back.Moved)
	assert.Equal(t, "/product-list", back.URL)
	assert.Equal(t, "", back.Draft.SearchTerm)
	assert.True(t, back.CanGoForward)

	rec = s.do(t, http.MethodPost, "/api/v1/history/back", "")
	assert.False(t, decode[HistoryResponse](t, rec).Moved)

	rec = s.do(t, http.MethodPost, "/api/v1/history/forward", "")
	forward := decode[HistoryResponse](t, rec)
	assert.True(t, forward.Moved)
	assert.Equal(t, "/product-list?q=phone", forward.URL)
	assert.Equal(t, "phone", forward.Draft.SearchTerm)
}

func TestNetworkHandler(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")

	rec := s.do(t, http.MethodPost, "/api/v1/network", `{"online":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[ProductListResponse](t, rec)
	assert.False(t, res.View.Online)
	assert.NotEmpty(t, res.View.OfflineNotice)

	rec = s.do(t, http.MethodPost, "/api/v1/network", `{"online":true}`)
	res = decode[ProductListResponse](t, rec)
	assert.True(t, res.View.Online)
	assert.Empty(t, res.View.OfflineNotice)

	rec = s.do(t, http.MethodPost, "/api/v1/network", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestViewModeHandlers(t *testing.T) {
	s := setupTestServer(t)
	s.open(t, "/product-list")

	rec := s.do(t, http.MethodGet, "/api/v1/view-mode", "")
	require.Equal(t, http.StatusOK, rec.Code)
	initial := decode[ViewModeResponse](t, rec)
	assert.Equal(t, viewmode.ModeGrid, initial.Mode)
	require.NotNil(t, initial.ExpiresAt)

	rec = s.do(t, http.MethodPut, "/api/v1/view-mode", `{"mode":"list"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	changed := decode[ViewModeResponse](t, rec)
	assert.Equal(t, viewmode.ModeList, changed.Mode)
	assert.True(t, initial.ExpiresAt.Equal(*changed.ExpiresAt), "보기 방식을 바꿔도 만료 시각은 그대로입니다")

	view := decode[ProductListResponse](t, s.do(t, http.MethodGet, "/api/v1/product-list/view", "")).View
	assert.Equal(t, viewmode.ModeList, view.ViewMode)

	rec = s.do(t, http.MethodPut, "/api/v1/view-mode", `{"mode":"tiles"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
