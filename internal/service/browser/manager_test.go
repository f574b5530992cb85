package browser

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/catalog/productlist"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/config"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

type stubCatalog struct {
	mu     sync.Mutex
	totals map[string]int
	calls  int
}

func (c *stubCatalog) FetchPage(_ context.Context, req product.PageRequest) (*product.Page, error) {
	c.mu.Lock()
	c.calls++
	total := c.totals[req.Key.SearchTerm]
	c.mu.Unlock()

	page := &product.Page{Total: total, Skip: req.Skip, Limit: req.Limit}
	for i := req.Skip; i < min(req.Skip+req.Limit, total); i++ {
		page.Items = append(page.Items, product.Product{ID: i + 1, Title: fmt.Sprintf("item-%d", i+1)})
	}
	return page, nil
}

type fakeNow struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestManager(t *testing.T, mutate func(*config.AppConfig)) (*Manager, *stubCatalog, *fakeNow) {
	t.Helper()

	appConfig := config.Default()
	if mutate != nil {
		mutate(&appConfig)
	}

	catalog := &stubCatalog{totals: map[string]int{"": 45, "phone": 5}}
	clock := &fakeNow{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	m := NewManager(&appConfig, catalog, viewmode.NewMemoryStorage())
	m.now = clock.Now
	t.Cleanup(m.closeAll)

	return m, catalog, clock
}

func TestNewManager_PanicsOnMissingDependency(t *testing.T) {
	appConfig := config.Default()

	assert.Panics(t, func() { NewManager(nil, &stubCatalog{}, viewmode.NewMemoryStorage()) })
	assert.Panics(t, func() { NewManager(&appConfig, nil, viewmode.NewMemoryStorage()) })
	assert.Panics(t, func() { NewManager(&appConfig, &stubCatalog{}, nil) })
}

func TestManager_OpenCreatesSession(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	s, created, err := m.Open(context.Background(), "", "/product-list?q=phone")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Len())

	s.List.Wait()

	v := s.List.View()
	assert.Equal(t, productlist.RenderItems, v.Kind)
	assert.Len(t, v.Items, 5)
	assert.Equal(t, "phone", v.SearchTerm)
	assert.Contains(t, []viewmode.Mode{viewmode.ModeGrid, viewmode.ModeList}, v.ViewMode)

	// 새 세션은 보기 방식을 추첨하고 만료 시각을 기록합니다.
	assert.NotNil(t, s.ViewModes.Preference().ExpiresAt)
}

func TestManager_OpenExistingSessionNavigates(t *testing.T) {
	m, catalog, _ := newTestManager(t, nil)

	s, _, err := m.Open(context.Background(), "", "/product-list")
	require.NoError(t, err)
	s.List.Wait()

	again, created, err := m.Open(context.Background(), s.ID, "/product-list?q=phone")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)

	again.List.Wait()
	assert.Equal(t, product.NewQueryKey("phone", product.SortNone), again.List.Key())
	assert.True(t, again.Location.CanGoBack())
	assert.Equal(t, 2, catalog.calls)
}

func TestManager_OpenMalformedSessionIDCreatesNewID(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	for _, id := range []string{"stale-id", "{6F9619FF-8B86-D011-B42D-00CF4FC964FF}", ""} {
		s, created, err := m.Open(context.Background(), id, "/product-list")
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, id, s.ID)
		assert.Equal(t, uuid.MustParse(s.ID).String(), s.ID, "새 ID는 표준 형식의 UUID여야 합니다")
	}
}

// 유휴 정리로 닫힌 세션의 쿠키로 다시 들어오면 같은 ID로 세션을 만들고 저장된 보기 방식을 이어 받습니다.
func TestManager_ReopenAfterSweepKeepsViewModePreference(t *testing.T) {
	m, _, clock := newTestManager(t, nil)
	ctx := context.Background()

	s, created, err := m.Open(ctx, "", "/product-list")
	require.NoError(t, err)
	require.True(t, created)
	s.List.Wait()

	require.NoError(t, s.ViewModes.SetMode(ctx, viewmode.ModeList))
	before := s.ViewModes.Preference()
	require.NotNil(t, before.ExpiresAt)

	clock.Advance(31 * time.Minute)
	require.Equal(t, 1, m.Sweep())
	require.Equal(t, 0, m.Len())

	reopened, created, err := m.Open(ctx, s.ID, "/product-list")
	require.NoError(t, err)
	reopened.List.Wait()

	assert.True(t, created, "정리된 세션은 새로 만들어집니다")
	assert.NotSame(t, s, reopened)
	assert.Equal(t, s.ID, reopened.ID)

	after := reopened.ViewModes.Preference()
	assert.Equal(t, viewmode.ModeList, after.Mode)
	require.NotNil(t, after.ExpiresAt)
	assert.Equal(t, before.ExpiresAt.UnixMilli(), after.ExpiresAt.UnixMilli(), "만료 전에는 다시 추첨하지 않습니다")
}

// 재시작 후 새 Manager가 같은 파일 저장소를 쓰면 이전 쿠키의 선호도를 읽어 옵니다.
func TestManager_ReopenAfterRestartReadsStoredPreference(t *testing.T) {
	storage, err := viewmode.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	appConfig := config.Default()
	catalog := &stubCatalog{totals: map[string]int{"": 3}}
	ctx := context.Background()

	first := NewManager(&appConfig, catalog, storage)
	s, _, err := first.Open(ctx, "", "/product-list")
	require.NoError(t, err)
	s.List.Wait()
	require.NoError(t, s.ViewModes.SetMode(ctx, viewmode.ModeList))
	first.closeAll()

	second := NewManager(&appConfig, catalog, storage)
	t.Cleanup(second.closeAll)

	reopened, created, err := second.Open(ctx, s.ID, "/product-list")
	require.NoError(t, err)
	reopened.List.Wait()

	assert.True(t, created)
	assert.Equal(t, s.ID, reopened.ID)
	assert.Equal(t, viewmode.ModeList, reopened.ViewModes.Mode())
}

func TestManager_ReopenKeepsSingleSessionPerID(t *testing.T) {
	m, _, _ := newTestManager(t, nil)
	ctx := context.Background()
	id := uuid.NewString()

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()

			s, _, err := m.Open(ctx, id, "/product-list")
			assert.NoError(t, err)
			sessions[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.Len())
	for _, s := range sessions {
		require.NotNil(t, s)
		assert.Same(t, sessions[0], s)
	}
}

func TestManager_OpenInvalidURL(t *testing.T) {
	m, _, _ := newTestManager(t, nil)

	_, _, err := m.Open(context.Background(), "", "%zz")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
	assert.Equal(t, 0, m.Len())
}

func TestManager_SweepClosesIdleSessions(t *testing.T) {
	m, _, clock := newTestManager(t, func(c *config.AppConfig) {
		c.Session.IdleTimeout = 10 * time.Minute
	})

	idle, _, err := m.Open(context.Background(), "", "/product-list")
	require.NoError(t, err)
	idle.List.Wait()

	clock.Advance(6 * time.Minute)
	active, _, err := m.Open(context.Background(), "", "/product-list?q=phone")
	require.NoError(t, err)
	active.List.Wait()

	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)

	assert.Equal(t, 0, m.Sweep(), "Get으로 사용 시각이 갱신된 세션은 정리되지 않아야 합니다")
}

func TestManager_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	m, _, clock := newTestManager(t, func(c *config.AppConfig) {
		c.Session.MaxSessions = 2
	})

	var ids []string
	for range 3 {
		s, _, err := m.Open(context.Background(), "", "/product-list")
		require.NoError(t, err)
		s.List.Wait()
		ids = append(ids, s.ID)
		clock.Advance(time.Second)
	}

	assert.Equal(t, 2, m.Len())
	_, ok := m.Get(ids[0])
	assert.False(t, ok, "가장 오래된 세션이 제거되어야 합니다")
	_, ok = m.Get(ids[2])
	assert.True(t, ok)
}

func TestManager_StartAndStop(t *testing.T) {
	m, _, _ := newTestManager(t, func(c *config.AppConfig) {
		c.Session.SweepSpec = "@every 1h"
	})

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	wg.Add(1)
	require.NoError(t, m.Start(ctx, wg))

	wg.Add(1)
	require.NoError(t, m.Start(ctx, wg), "중복 시작은 무시되어야 합니다")

	s, _, err := m.Open(context.Background(), "", "/product-list")
	require.NoError(t, err)
	s.List.Wait()

	cancel()
	wg.Wait()

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, productlist.StatePopulated, s.List.State())
}

func TestManager_StartRejectsInvalidSpec(t *testing.T) {
	m, _, _ := newTestManager(t, func(c *config.AppConfig) {
		c.Session.SweepSpec = "not a spec"
	})

	wg := &sync.WaitGroup{}
	wg.Add(1)

	err := m.Start(context.Background(), wg)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
	wg.Wait()
}

func TestNewViewModeBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		backend, err := NewViewModeBackend(ctx, config.ViewModeConfig{Storage: config.StorageMemory})
		require.NoError(t, err)
		assert.IsType(t, &viewmode.MemoryStorage{}, backend.Storage)
		assert.NoError(t, backend.Health(ctx))
		assert.NoError(t, backend.Close())
	})

	t.Run("file", func(t *testing.T) {
		backend, err := NewViewModeBackend(ctx, config.ViewModeConfig{Storage: config.StorageFile, FileDir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &viewmode.FileStorage{}, backend.Storage)
		assert.NoError(t, backend.Close())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		backend, err := NewViewModeBackend(ctx, config.ViewModeConfig{
			Storage: config.StorageRedis,
			TTL:     time.Hour,
			Redis:   config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"},
		})
		require.NoError(t, err)
		defer backend.Close()

		assert.NoError(t, backend.Health(ctx))

		require.NoError(t, backend.Storage.Save(ctx, "k", []byte(`{"mode":"list","expiresAt":null}`)))
		assert.True(t, mr.Exists("test:k"))
		assert.Equal(t, 2*time.Hour, mr.TTL("test:k"))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewViewModeBackend(ctx, config.ViewModeConfig{Storage: "s3"})
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
	})
}
