// Package browser 브라우저 세션(탭)별로 상품 목록 화면의 구성 요소를 생성하고, 오래 사용하지 않은 세션을 주기적으로 정리합니다.
package browser

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/darkkaiser/catalog-browser/internal/catalog/query"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/config"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	"github.com/darkkaiser/catalog-browser/internal/pkg/metrics"
	"github.com/darkkaiser/catalog-browser/pkg/concurrency"
	"github.com/darkkaiser/catalog-browser/pkg/cronx"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "browser.service"

// SessionCookie 세션 ID를 담는 쿠키 이름
const SessionCookie = "catalog_session"

// Manager 세션의 생성, 조회, 정리를 담당하는 서비스입니다.
type Manager struct {
	appConfig *config.AppConfig

	pages   query.PageFetcher
	storage viewmode.Storage

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	// opening 같은 세션 ID의 생성을 직렬화합니다.
	opening *concurrency.KeyedMutex

	cron *cron.Cron

	running   bool
	runningMu sync.Mutex
}

// NewManager Manager 인스턴스를 생성합니다.
func NewManager(appConfig *config.AppConfig, pages query.PageFetcher, storage viewmode.Storage) *Manager {
	if appConfig == nil {
		panic("AppConfig는 필수입니다")
	}
	if pages == nil {
		panic("PageFetcher는 필수입니다")
	}
	if storage == nil {
		panic("보기 방식 저장소는 필수입니다")
	}

	return &Manager{
		appConfig: appConfig,
		pages:     pages,
		storage:   storage,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		opening:   concurrency.NewKeyedMutex(),
	}
}

// Start 유휴 세션 정리 스케줄을 등록하고 시작합니다. serviceStopCtx가 취소되면 모든 세션을 닫습니다.
func (m *Manager) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	applog.WithComponent(component).Info("서비스 시작 진입: 브라우저 세션 서비스를 초기화합니다")

	if m.running {
		serviceStopWG.Done()
		applog.WithComponent(component).Warn("브라우저 세션 서비스가 이미 실행 중입니다 (중복 호출)")
		return nil
	}

	m.cron = cron.New(
		cron.WithParser(cronx.StandardParser()),
		cron.WithLogger(cron.VerbosePrintfLogger(applog.StandardLogger())),
		cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(applog.StandardLogger())),
			cron.SkipIfStillRunning(cron.VerbosePrintfLogger(applog.StandardLogger())),
		),
	)
	if _, err := m.cron.AddFunc(m.appConfig.Session.SweepSpec, func() { m.Sweep() }); err != nil {
		serviceStopWG.Done()
		m.cron = nil
		return apperrors.Wrapf(err, apperrors.InvalidInput, "세션 정리 스케줄을 등록하지 못했습니다 (spec=%s)", m.appConfig.Session.SweepSpec)
	}

	m.cron.Start()
	m.running = true

	applog.WithComponentAndFields(component, applog.Fields{
		"sweep_spec":   m.appConfig.Session.SweepSpec,
		"idle_timeout": m.appConfig.Session.IdleTimeout.String(),
		"max_sessions": m.appConfig.Session.MaxSessions,
	}).Info("서비스 시작 완료: 브라우저 세션 서비스가 정상적으로 초기화되었습니다")

	go func() {
		defer serviceStopWG.Done()

		<-serviceStopCtx.Done()

		m.Stop()
	}()

	return nil
}

// Stop 정리 스케줄을 멈추고 모든 세션을 닫습니다.
func (m *Manager) Stop() {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if !m.running {
		return
	}

	applog.WithComponent(component).Info("종료 절차 진입: 브라우저 세션 서비스 중지 시그널을 수신했습니다")

	if m.cron != nil {
		ctx := m.cron.Stop()
		<-ctx.Done()
	}
	m.cron = nil
	m.running = false

	m.closeAll()

	applog.WithComponent(component).Info("브라우저 세션 서비스 종료 완료: 모든 세션이 정리되었습니다")
}

// Get 세션을 조회하고 사용 시각을 갱신합니다.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// Open id의 세션이 있으면 rawURL로 이동하고, 없으면 새 세션을 만들어 rawURL에서 시작합니다.
// 두 번째 반환값은 새 세션을 만들었는지 여부입니다.
//
// 정리되었거나 재시작 전에 발급된 세션 ID라도 올바른 UUID이면 그 ID로 세션을 다시 만듭니다.
// 보기 방식 선호도는 세션 ID로 저장되므로 같은 브라우저는 만료 전까지 같은 선호도를 이어 받습니다.
func (m *Manager) Open(ctx context.Context, id, rawURL string) (*Session, bool, error) {
	if s, ok := m.Get(id); ok {
		if _, err := s.Location.Navigate(rawURL); err != nil {
			return nil, false, err
		}
		return s, false, nil
	}

	id = reusableID(id)

	unlock := m.opening.Lock(id)
	defer unlock()

	// 같은 쿠키로 동시에 들어온 요청이 먼저 세션을 만들었을 수 있습니다.
	if existing, ok := m.Get(id); ok {
		if _, err := existing.Location.Navigate(rawURL); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	s, err := newSession(ctx, id, rawURL, m.appConfig, m.pages, m.storage, m.now())
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	evicted := m.evictOverflowLocked(s.ID)
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	for _, old := range evicted {
		old.close()
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"session_id":     s.ID,
		"url":            rawURL,
		"active":         count,
		"evicted_by_cap": len(evicted),
	}).Debug("새 세션을 생성했습니다")

	return s, true, nil
}

// reusableID 쿠키 값이 표준 형식의 UUID이면 그대로, 아니면 새 UUID를 반환합니다.
func reusableID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil && parsed.String() == id {
		return id
	}
	return uuid.NewString()
}

// Len 현재 세션 수
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Sweep 유휴 시간이 지난 세션을 닫고, 남은 세션의 만료된 목록 캐시를 비웁니다. 닫은 세션 수를 반환합니다.
func (m *Manager) Sweep() int {
	deadline := m.now().Add(-m.appConfig.Session.IdleTimeout)

	m.mu.Lock()
	var idle, alive []*Session
	for id, s := range m.sessions {
		if s.LastUsed().Before(deadline) {
			idle = append(idle, s)
			delete(m.sessions, id)
			continue
		}
		alive = append(alive, s)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))

	for _, s := range idle {
		s.close()
	}

	evictedSeries := 0
	for _, s := range alive {
		evictedSeries += s.Query.Evict()
	}

	if len(idle) > 0 || evictedSeries > 0 {
		applog.WithComponentAndFields(component, applog.Fields{
			"closed_sessions": len(idle),
			"evicted_series":  evictedSeries,
			"active":          count,
		}).Info("유휴 세션과 만료된 목록 캐시를 정리했습니다")
	}

	return len(idle)
}

// evictOverflowLocked 최대 세션 수를 넘으면 가장 오래 사용하지 않은 세션부터 목록에서 제거하여 반환합니다.
func (m *Manager) evictOverflowLocked(keep string) []*Session {
	limit := m.appConfig.Session.MaxSessions
	if limit <= 0 || len(m.sessions) <= limit {
		return nil
	}

	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		if id != keep {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastUsed().Before(all[j].LastUsed())
	})

	evicted := all[:len(m.sessions)-limit]
	for _, s := range evicted {
		delete(m.sessions, s.ID)
	}
	return evicted
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	metrics.ActiveSessions.Set(0)

	for _, s := range sessions {
		s.close()
	}
}
