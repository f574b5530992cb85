// Package debounce 짧은 시간 안에 연속으로 발생한 호출을 마지막 호출 하나로 합치는 Dispatcher를 제공합니다.
//
// 규칙:
//   - 지연 시간(delay) 안에 여러 번 Schedule되면 마지막 인자만 한 번 실행됩니다.
//   - 실행 시점은 마지막 Schedule 시각 + delay 입니다.
//   - 콜백은 항상 가장 최근에 등록된 콜백이 사용됩니다.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay 검색어 입력 디바운스의 기본 지연 시간입니다.
const DefaultDelay = 500 * time.Millisecond

// Option Dispatcher 생성 옵션입니다.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock 타이머 예약에 사용할 시계를 지정합니다.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// Dispatcher 인자 타입 T에 대한 trailing 디바운서입니다.
type Dispatcher[T any] struct {
	mu sync.Mutex

	delay time.Duration
	clock Clock

	callback func(T)

	timer   Timer
	latest  T
	pending bool

	// seq 예약마다 증가하며, 이미 교체된 타이머가 뒤늦게 실행되는 것을 걸러냅니다.
	seq uint64

	closed bool
}

// New delay 만큼 지연 후 callback을 실행하는 Dispatcher를 생성합니다.
// delay가 0 이하이면 DefaultDelay를 사용합니다.
func New[T any](delay time.Duration, callback func(T), opts ...Option) *Dispatcher[T] {
	o := options{clock: RealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Dispatcher[T]{
		delay:    delay,
		clock:    o.clock,
		callback: callback,
	}
}

// Delay 설정된 지연 시간을 반환합니다.
func (d *Dispatcher[T]) Delay() time.Duration {
	return d.delay
}

// SetCallback 이후 실행될 콜백을 교체합니다. 이미 예약된 실행에도 새 콜백이 사용됩니다.
func (d *Dispatcher[T]) SetCallback(callback func(T)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
}

// Schedule 이전 예약을 취소하고 args를 delay 후에 실행하도록 예약합니다.
func (d *Dispatcher[T]) Schedule(args T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	seq := d.seq
	d.latest = args
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Cancel 예약된 실행을 취소합니다. 취소된 예약이 있었으면 true를 반환합니다.
func (d *Dispatcher[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cancelLocked()
}

// Flush 예약된 실행이 있으면 기다리지 않고 즉시 실행합니다.
func (d *Dispatcher[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	args, callback := d.latest, d.callback
	d.cancelLocked()
	d.mu.Unlock()

	if callback != nil {
		callback(args)
	}
	return true
}

// Pending 실행 대기 중인 예약이 있는지 반환합니다.
func (d *Dispatcher[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pending
}

// Close 예약을 취소하고 이후의 Schedule을 무시합니다.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	d.closed = true
}

func (d *Dispatcher[T]) cancelLocked() bool {
	if !d.pending {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false

	var zero T
	d.latest = zero
	return true
}

func (d *Dispatcher[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.pending {
		d.mu.Unlock()
		return
	}
	args, callback := d.latest, d.callback
	d.pending = false
	d.timer = nil

	var zero T
	d.latest = zero
	d.mu.Unlock()

	if callback != nil {
		callback(args)
	}
}
