package debounce

import (
	"sort"
	"sync"
	"time"
)

// Timer 예약된 호출을 취소할 수 있는 타이머입니다.
type Timer interface {
	Stop() bool
}

// Clock 지연 실행을 예약하는 시계입니다. 테스트에서는 FakeClock으로 교체합니다.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock time 패키지 기반의 실제 시계를 반환합니다.
func RealClock() Clock { return realClock{} }

// FakeClock 수동으로 시간을 진행시키는 시계입니다.
// Advance 호출 시 만료된 타이머의 콜백을 예약 시각 순서대로 호출 고루틴에서 동기적으로 실행합니다.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	seq    int
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	order    int
	f        func()
	stopped  bool
	fired    bool
}

// NewFakeClock start 시각에서 멈춰 있는 FakeClock을 생성합니다.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), order: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance 시간을 d만큼 진행시키고, 그 사이 만료되는 타이머를 실행합니다.
// 콜백 안에서 새로 예약된 타이머도 진행 구간 안에 들어오면 함께 실행됩니다.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.deadline
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// Pending 아직 실행되지도 취소되지도 않은 타이머 수를 반환합니다.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live

	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].order < c.timers[j].order
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})

	if len(c.timers) > 0 && !c.timers[0].deadline.After(target) {
		return c.timers[0]
	}
	return nil
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
