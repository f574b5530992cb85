package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/config"
	"github.com/darkkaiser/catalog-browser/internal/pkg/version"
	"github.com/darkkaiser/catalog-browser/internal/service/api/handler/system"
	"github.com/darkkaiser/catalog-browser/internal/testutil"
)

func setupService(t *testing.T) (*Service, *config.AppConfig) {
	t.Helper()

	appConfig := config.Default()
	appConfig.Debug = true
	appConfig.HTTPServer.ListenPort = testutil.FreePort(t)

	checkers := map[string]system.HealthChecker{
		"view_mode_storage": system.HealthCheckerFunc(func(context.Context) error { return nil }),
	}

	return NewService(&appConfig, newTestManager(t, &appConfig), checkers, version.Info{Version: "1.0.0"}), &appConfig
}

func TestNewService(t *testing.T) {
	appConfig := config.Default()
	m := newTestManager(t, &appConfig)

	assert.Panics(t, func() { NewService(nil, m, nil, version.Info{}) })
	assert.Panics(t, func() { NewService(&appConfig, nil, nil, version.Info{}) })

	s := NewService(&appConfig, m, nil, version.Info{Version: "1.2.3"})
	assert.Equal(t, "1.2.3", s.buildInfo.Version)
	assert.False(t, s.Running(), "초기 상태는 running=false여야 함")
}

func TestService_setupServer(t *testing.T) {
	s, _ := setupService(t)

	e := s.setupServer()

	assert.True(t, e.Debug, "Config의 Debug가 true이면 Echo Debug도 true여야 함")

	routePaths := make(map[string]bool)
	for _, route := range e.Routes() {
		routePaths[route.Path] = true
	}
	assert.True(t, routePaths["/health"])
	assert.True(t, routePaths["/product-list"])
	assert.True(t, routePaths["/api/v1/product-list/view"])
}

func TestService_handleServerError(t *testing.T) {
	s, _ := setupService(t)

	assert.NotPanics(t, func() {
		s.handleServerError(nil)
		s.handleServerError(http.ErrServerClosed)
		s.handleServerError(assert.AnError)
	})
}

func TestService_Lifecycle(t *testing.T) {
	s, appConfig := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}

	wg.Add(1)
	require.NoError(t, s.Start(ctx, wg))

	testutil.WaitForHTTP(t, appConfig.HTTPServer.ListenPort, "/health", 2*time.Second)
	assert.True(t, s.Running(), "서비스 시작 후 running=true")

	t.Run("중복 시작은 무시됩니다", func(t *testing.T) {
		wg.Add(1)
		assert.NoError(t, s.Start(ctx, wg))
	})

	t.Run("실제 포트로 상품 목록을 엽니다", func(t *testing.T) {
		resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(appConfig.HTTPServer.ListenPort) + "/product-list")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Cookies())
	})

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("서비스가 제한 시간 안에 종료되지 않았습니다")
	}
	assert.False(t, s.Running(), "종료 후 running=false")
}

func TestService_UnexpectedExitOnPortConflict(t *testing.T) {
	s, appConfig := setupService(t)

	first, _ := setupService(t)
	first.appConfig.HTTPServer.ListenPort = appConfig.HTTPServer.ListenPort

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}

	wg.Add(1)
	require.NoError(t, first.Start(ctx, wg))
	testutil.WaitForHTTP(t, appConfig.HTTPServer.ListenPort, "/health", 2*time.Second)

	wg.Add(1)
	require.NoError(t, s.Start(ctx, wg))

	assert.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 10*time.Millisecond,
		"포트 바인딩에 실패하면 서비스는 스스로 정리되어야 합니다")
	assert.True(t, first.Running())

	cancel()
	wg.Wait()
}
