package scroll

import (
	"sync"
)

// DefaultRootMargin 화면 하단 300px 앞에서 미리 불러오도록 관찰 영역을 넓힙니다.
const DefaultRootMargin = "0px 0px 300px 0px"

// ObserveConfig 가시성 관찰 설정
type ObserveConfig struct {
	RootMargin string
}

// Observer 대상 요소의 가시성 변화를 관찰합니다.
type Observer interface {
	// Observe target의 관찰을 시작합니다. 가시성이 바뀔 때마다 onChange가 호출됩니다.
	Observe(target string, cfg ObserveConfig, onChange func(visible bool)) Observation
}

// Observation 하나의 관찰입니다. Disconnect 후에는 onChange가 호출되지 않습니다.
type Observation interface {
	IsIntersecting() bool
	Disconnect()
}

// ManualObserver 클라이언트가 보고한 가시성 이벤트로 구동되는 Observer입니다.
// 관찰 영역(RootMargin) 계산은 보고하는 쪽에서 이미 적용했다고 가정합니다.
type ManualObserver struct {
	mu sync.Mutex

	visible      map[string]bool
	observations map[string]map[*manualObservation]struct{}

	created int
}

var _ Observer = (*ManualObserver)(nil)

func NewManualObserver() *ManualObserver {
	return &ManualObserver{
		visible:      make(map[string]bool),
		observations: make(map[string]map[*manualObservation]struct{}),
	}
}

func (m *ManualObserver) Observe(target string, cfg ObserveConfig, onChange func(visible bool)) Observation {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := &manualObservation{owner: m, target: target, cfg: cfg, onChange: onChange}

	set, ok := m.observations[target]
	if !ok {
		set = make(map[*manualObservation]struct{})
		m.observations[target] = set
	}
	set[o] = struct{}{}
	m.created++

	return o
}

// SetVisible target의 가시성을 갱신하고, 값이 바뀌었으면 활성 관찰들에 알립니다.
func (m *ManualObserver) SetVisible(target string, visible bool) {
	m.mu.Lock()
	if m.visible[target] == visible {
		m.mu.Unlock()
		return
	}
	m.visible[target] = visible

	callbacks := make([]func(bool), 0, len(m.observations[target]))
	for o := range m.observations[target] {
		callbacks = append(callbacks, o.onChange)
	}
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(visible)
	}
}

// IsVisible target의 마지막 보고된 가시성
func (m *ManualObserver) IsVisible(target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.visible[target]
}

// Created 지금까지 생성된 관찰 수
func (m *ManualObserver) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.created
}

// Active 현재 연결된 관찰 수
func (m *ManualObserver) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for _, set := range m.observations {
		n += len(set)
	}
	return n
}

type manualObservation struct {
	owner    *ManualObserver
	target   string
	cfg      ObserveConfig
	onChange func(bool)
}

func (o *manualObservation) IsIntersecting() bool {
	return o.owner.IsVisible(o.target)
}

func (o *manualObservation) Disconnect() {
	o.owner.mu.Lock()
	defer o.owner.mu.Unlock()

	if set, ok := o.owner.observations[o.target]; ok {
		delete(set, o)
		if len(set) == 0 {
			delete(o.owner.observations, o.target)
		}
	}
}
