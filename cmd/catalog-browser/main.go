package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/config"
	"github.com/darkkaiser/catalog-browser/internal/pkg/version"
	"github.com/darkkaiser/catalog-browser/internal/service"
	"github.com/darkkaiser/catalog-browser/internal/service/api"
	"github.com/darkkaiser/catalog-browser/internal/service/api/handler/system"
	"github.com/darkkaiser/catalog-browser/internal/service/browser"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const (
	banner = `
   ____      _        _               ____
  / ___|__ _| |_ __ _| | ___   __ _  | __ ) _ __ _____      _____  ___ _ __
 | |   / _' | __/ _' | |/ _ \ / _' | |  _ \| '__/ _ \ \ /\ / / __|/ _ \ '__|
 | |__| (_| | || (_| | | (_) | (_| | | |_) | | | (_) \ V  V /\__ \  __/ |
  \____\__,_|\__\__,_|_|\___/ \__, | |____/|_|  \___/ \_/\_/ |___/\___|_|
                              |___/                               %s
--------------------------------------------------------------------------------
`
)

// app main이 시작하고 정리하는 구성 요소 묶음
type app struct {
	services []service.Service

	// closers 모든 서비스가 종료된 뒤 역순으로 닫습니다.
	closers []io.Closer
}

func main() {
	// 1. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 2. 로그 시스템 초기화
	var logOpts applog.Options
	if appConfig.IsProduction() {
		logOpts = applog.NewProductionOptions(config.AppName)
	} else {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 서버 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	applog.SetDebugMode(appConfig.Debug)

	buildInfo := version.Get()
	fmt.Printf(banner, buildInfo.Version)

	applog.WithComponentAndFields("main", applog.Fields{
		"version": buildInfo.String(),
		"env":     appConfig.Env,
	}).Info("서버 초기화 시작")

	for _, warning := range appConfig.VerifyRecommendations() {
		applog.WithComponent("main").Warn(warning)
	}

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(serviceStopCtx, appConfig, buildInfo)
	if err != nil {
		applog.WithComponentAndFields("main", applog.Fields{
			"error": err,
		}).Error("서비스 구성 실패")

		appLogCloser.Close()
		os.Exit(1)
	}
	defer a.close()

	serviceStopWG := &sync.WaitGroup{}
	if err := a.start(serviceStopCtx, serviceStopWG); err != nil {
		applog.WithComponentAndFields("main", applog.Fields{
			"error": err,
		}).Error("서비스 초기화 실패")

		cancel() // 다른 서비스들도 종료
		serviceStopWG.Wait()
		a.close()
		appLogCloser.Close()

		os.Exit(1)
	}

	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	applog.WithComponent("main").Info("서버 가동 완료")

	<-termC

	applog.WithComponent("main").Info("종료 시그널을 수신했습니다")
	cancel()
	serviceStopWG.Wait()
}

// newApp 설정으로 상품 API 클라이언트, 보기 방식 저장소, 세션 관리자, HTTP 서비스를 조립합니다.
func newApp(ctx context.Context, appConfig *config.AppConfig, buildInfo version.Info) (*app, error) {
	f := fetcher.New(fetcher.Config{
		Timeout:    appConfig.ProductAPI.Timeout,
		MaxRetries: appConfig.ProductAPI.Retry.MaxRetries,
		RetryDelay: appConfig.ProductAPI.Retry.RetryDelay,
		CircuitBreaker: fetcher.CircuitBreakerConfig{
			Enabled:             appConfig.ProductAPI.CircuitBreaker.Enabled,
			ConsecutiveFailures: appConfig.ProductAPI.CircuitBreaker.ConsecutiveFailures,
			OpenTimeout:         appConfig.ProductAPI.CircuitBreaker.OpenTimeout,
		},
	})

	client, err := product.NewClient(f, appConfig.ProductAPI.BaseURL, appConfig.ProductAPI.Timeout)
	if err != nil {
		return nil, err
	}

	backend, err := browser.NewViewModeBackend(ctx, appConfig.ViewMode)
	if err != nil {
		return nil, err
	}

	sessions := browser.NewManager(appConfig, client, backend.Storage)
	apiService := api.NewService(appConfig, sessions, map[string]system.HealthChecker{
		"view_mode_storage": backend,
	}, buildInfo)

	return &app{
		services: []service.Service{sessions, apiService},
		closers:  []io.Closer{backend},
	}, nil
}

func (a *app) start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	for _, s := range a.services {
		serviceStopWG.Add(1)
		if err := s.Start(serviceStopCtx, serviceStopWG); err != nil {
			return err
		}
	}
	return nil
}

// close 등록된 자원을 역순으로 닫습니다. 여러 번 호출해도 안전합니다.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			applog.WithComponent("main").WithError(err).Warn("자원 정리 중 오류가 발생했습니다")
		}
	}
	a.closers = nil
}
