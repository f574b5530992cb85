// Package scroll 화면 끝의 감시 요소(sentinel)가 보이면 다음 페이지 로드를 요청하는 무한 스크롤 트리거를 제공합니다.
package scroll

import (
	"sync"
	"sync/atomic"

	"github.com/darkkaiser/catalog-browser/internal/pkg/metrics"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.scroll"

// Option 트리거 설정 옵션
type Option func(*Trigger)

// WithRootMargin 관찰 영역 여백을 설정합니다. 빈 문자열이면 DefaultRootMargin을 사용합니다.
func WithRootMargin(margin string) Option {
	return func(t *Trigger) {
		if margin != "" {
			t.cfg.RootMargin = margin
		}
	}
}

// Trigger 무장(armed) 상태에서 감시 요소가 보이고 다음 페이지가 있으며 로딩 중이 아니면 콜백을 한 번 호출합니다.
//
// 콜백을 호출하면 무장이 해제되고, 로딩이 끝나거나(isLoading true→false) Reset으로 신호 값이 바뀌면 다시 무장됩니다.
// 다시 무장하는 시점에 감시 요소가 이미 보이고 있으면 즉시 콜백을 호출합니다.
//
// 콜백은 항상 가장 최근에 등록된 함수가 호출되며, 콜백 교체는 관찰을 다시 만들지 않습니다.
type Trigger struct {
	observer Observer

	callback atomic.Pointer[func()]

	mu  sync.Mutex
	cfg ObserveConfig

	target string
	obs    Observation

	armed     bool
	attached  bool
	hasNext   bool
	isLoading bool
	signal    string
	visible   bool

	// epoch 관찰을 다시 만들 때마다 증가하여 이전 관찰의 늦은 알림을 무시합니다.
	epoch uint64

	closed bool
}

// New 새 트리거를 생성합니다. Attach를 호출하기 전까지는 관찰하지 않습니다.
func New(observer Observer, opts ...Option) *Trigger {
	t := &Trigger{
		observer: observer,
		cfg:      ObserveConfig{RootMargin: DefaultRootMargin},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RootMargin 관찰 영역 여백
func (t *Trigger) RootMargin() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cfg.RootMargin
}

// SetCallback 다음 페이지 로드 콜백을 교체합니다.
func (t *Trigger) SetCallback(fn func()) {
	if fn == nil {
		t.callback.Store(nil)
		return
	}
	t.callback.Store(&fn)
}

// Attach target 관찰을 시작합니다. 처음 연결하거나 대상이 바뀌면 관찰을 다시 만들고 무장합니다.
func (t *Trigger) Attach(target string) {
	t.mu.Lock()
	if t.closed || (t.attached && t.target == target) {
		t.mu.Unlock()
		return
	}

	t.target = target
	t.attached = true
	t.rebuildLocked()
	fire := t.armLocked()
	t.mu.Unlock()

	t.maybeFire(fire)
}

// Update 다음 페이지 존재 여부와 로딩 상태를 갱신합니다. 로딩이 끝나면 다시 무장합니다.
func (t *Trigger) Update(hasNext, isLoading bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	wasLoading := t.isLoading
	t.hasNext = hasNext
	t.isLoading = isLoading

	var fire bool
	if wasLoading && !isLoading {
		fire = t.armLocked()
	} else {
		fire = t.shouldFireLocked()
	}
	t.mu.Unlock()

	t.maybeFire(fire)
}

// Reset 신호 값이 바뀌었으면 관찰을 다시 만들고 무장한 뒤 true를 반환합니다.
func (t *Trigger) Reset(signal string) bool {
	t.mu.Lock()
	if t.closed || signal == t.signal {
		t.mu.Unlock()
		return false
	}

	t.signal = signal
	if t.attached {
		t.rebuildLocked()
	}
	fire := t.armLocked()
	t.mu.Unlock()

	t.maybeFire(fire)
	return true
}

// Rearm 신호 변화 없이 다시 무장합니다.
func (t *Trigger) Rearm() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	fire := t.armLocked()
	t.mu.Unlock()

	t.maybeFire(fire)
}

// Armed 무장 상태 여부
func (t *Trigger) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.armed
}

// Close 관찰을 해제합니다. 이후의 모든 호출은 무시됩니다.
func (t *Trigger) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.armed = false
	if t.obs != nil {
		t.obs.Disconnect()
		t.obs = nil
	}
}

func (t *Trigger) rebuildLocked() {
	if t.obs != nil {
		t.obs.Disconnect()
	}

	t.epoch++
	epoch := t.epoch
	t.obs = t.observer.Observe(t.target, t.cfg, func(visible bool) {
		t.handleVisibility(epoch, visible)
	})
	t.visible = t.obs.IsIntersecting()
}

func (t *Trigger) handleVisibility(epoch uint64, visible bool) {
	t.mu.Lock()
	if t.closed || epoch != t.epoch {
		t.mu.Unlock()
		return
	}

	t.visible = visible
	fire := t.shouldFireLocked()
	t.mu.Unlock()

	t.maybeFire(fire)
}

// armLocked 무장하고, 이미 발사 조건을 만족하면 true를 반환합니다.
func (t *Trigger) armLocked() bool {
	if !t.attached {
		return false
	}
	t.armed = true
	return t.shouldFireLocked()
}

// shouldFireLocked 발사 조건을 만족하면 무장을 해제하고 true를 반환합니다.
func (t *Trigger) shouldFireLocked() bool {
	if !t.armed || !t.visible || !t.hasNext || t.isLoading {
		return false
	}
	t.armed = false
	return true
}

func (t *Trigger) maybeFire(fire bool) {
	if !fire {
		return
	}

	metrics.ScrollTriggerFires.Inc()

	cb := t.callback.Load()
	if cb == nil {
		applog.WithComponent(component).Debug("스크롤 트리거가 발사되었지만 등록된 콜백이 없습니다")
		return
	}
	(*cb)()
}
