package browser

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/darkkaiser/catalog-browser/internal/catalog/filter"
	"github.com/darkkaiser/catalog-browser/internal/catalog/location"
	"github.com/darkkaiser/catalog-browser/internal/catalog/productlist"
	"github.com/darkkaiser/catalog-browser/internal/catalog/query"
	"github.com/darkkaiser/catalog-browser/internal/catalog/scroll"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/config"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// Session 브라우저 탭 하나에 해당하는 상품 목록 화면의 구성 요소 묶음입니다.
type Session struct {
	ID string

	Location  *location.Location
	Form      *filter.Form
	Query     *query.Query
	Observer  *scroll.ManualObserver
	Trigger   *scroll.Trigger
	ViewModes *viewmode.Store
	List      *productlist.Orchestrator

	lastUsed atomic.Int64
}

func newSession(ctx context.Context, id, rawURL string, appConfig *config.AppConfig, pages query.PageFetcher, storage viewmode.Storage, now time.Time) (*Session, error) {
	loc, err := location.New(rawURL)
	if err != nil {
		return nil, err
	}

	store, err := viewmode.NewStore(ctx, storage, viewmode.StorageKeyFor(id), viewmode.WithTTL(appConfig.ViewMode.TTL))
	if err != nil {
		return nil, err
	}
	if _, err := store.EnsureFresh(ctx); err != nil {
		// 저장에 실패해도 메모리에 있는 기본값으로 화면은 그릴 수 있습니다.
		applog.WithComponentAndFields(component, applog.Fields{
			"session_id": id,
		}).WithError(err).Warn("보기 방식 초기화 결과를 저장하지 못했습니다")
	}

	q := query.New(pages, query.Options{
		PageSize: appConfig.ProductAPI.PageSize,
		Select:   appConfig.ProductAPI.Select,
		CacheTTL: appConfig.Catalog.CacheTTL,
	})

	observer := scroll.NewManualObserver()
	trigger := scroll.New(observer, scroll.WithRootMargin(appConfig.Catalog.RootMargin))

	s := &Session{
		ID:        id,
		Location:  loc,
		Form:      filter.New(loc, filter.WithDelay(appConfig.Catalog.DebounceDelay)),
		Query:     q,
		Observer:  observer,
		Trigger:   trigger,
		ViewModes: store,
		List: productlist.New(productlist.Dependencies{
			Location:  loc,
			Query:     q,
			Trigger:   trigger,
			ViewModes: store,
		}),
	}
	s.touch(now)
	s.List.Start()

	return s, nil
}

// ReportSentinel 감시 요소의 가시성 변화를 관찰자에 전달합니다.
func (s *Session) ReportSentinel(visible bool) {
	s.Observer.SetVisible(s.List.Sentinel(), visible)
}

// LastUsed 마지막으로 요청을 처리한 시각
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *Session) close() {
	s.Form.Close()
	s.List.Close()
}
