// Package viewmode 세션별 보기 방식(grid/list) 선호를 저장하고 24시간마다 무작위로 다시 배정하는 저장소를 제공합니다.
//
// 저장소는 명시적으로 생성되어 사용하는 쪽에 주입됩니다. 생성 시 한 번 읽고, 값이 바뀔 때마다 저장합니다.
package viewmode

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.viewmode"

const (
	// StorageKey 저장 키 이름. 세션마다 StorageKeyFor로 구분합니다.
	StorageKey = "view-mode-storage"

	// DefaultTTL 무작위 배정된 보기 방식의 유지 기간
	DefaultTTL = 24 * time.Hour
)

// StorageKeyFor 세션별 저장 키
func StorageKeyFor(sessionID string) string {
	return StorageKey + ":" + sessionID
}

// Storage 직렬화된 선호 값을 키 단위로 보관합니다.
type Storage interface {
	// Load 값이 없으면 found가 false입니다.
	Load(ctx context.Context, key string) (data []byte, found bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Option 저장소 설정 옵션
type Option func(*Store)

// WithTTL 무작위 배정 유지 기간. 0 이하이면 DefaultTTL을 사용합니다.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock 현재 시각 함수
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandom [0, 1) 범위의 난수 함수. 0.5 미만이면 grid, 이상이면 list를 배정합니다.
func WithRandom(random func() float64) Option {
	return func(s *Store) {
		if random != nil {
			s.random = random
		}
	}
}

// Store 한 세션의 보기 방식 선호
type Store struct {
	storage Storage
	key     string

	ttl    time.Duration
	now    func() time.Time
	random func() float64

	mu   sync.Mutex
	pref Preference

	// ensured EnsureFresh가 이 세션에서 이미 실행되었는지 여부
	ensured bool
}

// NewStore storage에서 key의 값을 읽어 저장소를 생성합니다.
// 값이 없거나 손상되어 있으면 기본값(grid, 만료 없음)으로 시작합니다.
func NewStore(ctx context.Context, storage Storage, key string, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		key:     key,
		ttl:     DefaultTTL,
		now:     time.Now,
		random:  rand.Float64,
		pref:    DefaultPreference(),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, found, err := storage.Load(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "보기 방식 설정을 불러오지 못했습니다")
	}
	if found {
		var pref Preference
		if err := json.Unmarshal(data, &pref); err != nil {
			applog.WithComponentAndFields(component, applog.Fields{
				"key": key,
			}).WithError(err).Warn("저장된 보기 방식 설정이 손상되어 기본값을 사용합니다")
		} else {
			s.pref = pref
		}
	}

	return s, nil
}

// Mode 현재 보기 방식
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pref.Mode
}

// Preference 현재 선호 값의 복사본
func (s *Store) Preference() Preference {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pref
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		p.ExpiresAt = &t
	}
	return p
}

// SetMode 사용자가 고른 보기 방식을 즉시 저장합니다. 만료 시각은 갱신하지 않습니다.
func (s *Store) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.pref
	next.Mode = mode

	return s.saveLocked(ctx, next)
}

// EnsureFresh 세션당 한 번만 동작합니다. 만료 시각이 없거나 지났으면 grid/list 중 하나를 같은 확률로 고르고
// 만료 시각을 지금부터 TTL 뒤로 정한 뒤 저장합니다. 새로 배정했으면 true를 반환합니다.
func (s *Store) EnsureFresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensured {
		return false, nil
	}

	now := s.now()
	if !s.pref.Expired(now) {
		s.ensured = true
		return false, nil
	}

	mode := ModeGrid
	if s.random() >= 0.5 {
		mode = ModeList
	}
	expiresAt := now.Add(s.ttl)

	if err := s.saveLocked(ctx, Preference{Mode: mode, ExpiresAt: &expiresAt}); err != nil {
		return false, err
	}
	s.ensured = true

	applog.WithComponentAndFields(component, applog.Fields{
		"key":        s.key,
		"mode":       mode,
		"expires_at": expiresAt.Format(time.RFC3339),
	}).Debug("보기 방식을 새로 배정했습니다")

	return true, nil
}

// Clear 저장된 값을 지우고 기본값으로 되돌립니다.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.key); err != nil {
		return apperrors.Wrap(err, apperrors.System, "보기 방식 설정을 삭제하지 못했습니다")
	}
	s.pref = DefaultPreference()
	s.ensured = false
	return nil
}

func (s *Store) saveLocked(ctx context.Context, next Preference) error {
	data, err := json.Marshal(next)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, "보기 방식 설정을 직렬화하지 못했습니다")
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		return apperrors.Wrap(err, apperrors.System, "보기 방식 설정을 저장하지 못했습니다")
	}

	s.pref = next
	return nil
}
