package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type dispatch struct {
	at   time.Duration
	args string
}

type recorder struct {
	mu    sync.Mutex
	clock *FakeClock
	start time.Time
	calls []dispatch
}

func (r *recorder) record(args string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, dispatch{at: r.clock.Now().Sub(r.start), args: args})
}

func (r *recorder) snapshot() []dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch(nil), r.calls...)
}

func newRecorder() (*recorder, *FakeClock) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	return &recorder{clock: clock, start: start}, clock
}

func TestDispatcher_CoalescesWithinWindow(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, rec.record, WithClock(clock))

	d.Schedule("t0")
	clock.Advance(100 * time.Millisecond)
	d.Schedule("t100")

	clock.Advance(499 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "마지막 호출로부터 500ms가 지나기 전에는 실행되면 안 됩니다")

	clock.Advance(1 * time.Millisecond)
	assert.Equal(t, []dispatch{{at: 600 * time.Millisecond, args: "t100"}}, rec.snapshot())

	clock.Advance(100 * time.Millisecond)
	d.Schedule("t700")
	clock.Advance(500 * time.Millisecond)

	assert.Equal(t, []dispatch{
		{at: 600 * time.Millisecond, args: "t100"},
		{at: 1200 * time.Millisecond, args: "t700"},
	}, rec.snapshot())
}

func TestDispatcher_LatestCallbackWins(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, func(string) { t.Fatal("교체되기 전 콜백이 호출되었습니다") }, WithClock(clock))

	d.Schedule("a")
	d.SetCallback(rec.record)
	clock.Advance(500 * time.Millisecond)

	require.Len(t, rec.snapshot(), 1)
	assert.Equal(t, "a", rec.snapshot()[0].args)
}

func TestDispatcher_Cancel(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, rec.record, WithClock(clock))

	assert.False(t, d.Cancel(), "예약이 없으면 false")

	d.Schedule("a")
	assert.True(t, d.Pending())
	assert.True(t, d.Cancel())
	assert.False(t, d.Pending())

	clock.Advance(time.Second)
	assert.Empty(t, rec.snapshot())
	assert.Zero(t, clock.Pending())
}

func TestDispatcher_Flush(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, rec.record, WithClock(clock))

	assert.False(t, d.Flush())

	d.Schedule("a")
	clock.Advance(200 * time.Millisecond)
	assert.True(t, d.Flush())
	assert.Equal(t, []dispatch{{at: 200 * time.Millisecond, args: "a"}}, rec.snapshot())

	clock.Advance(time.Second)
	assert.Len(t, rec.snapshot(), 1, "Flush 후 원래 예약은 실행되면 안 됩니다")
}

func TestDispatcher_Close(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, rec.record, WithClock(clock))

	d.Schedule("a")
	d.Close()
	d.Schedule("b")
	clock.Advance(time.Second)

	assert.Empty(t, rec.snapshot())
}

func TestDispatcher_StaleTimerIgnored(t *testing.T) {
	rec, clock := newRecorder()
	d := New(500*time.Millisecond, rec.record, WithClock(clock))

	d.Schedule("a")
	stale := d.seq
	d.Schedule("b")

	// 교체된 예약의 콜백이 Stop과 경쟁하여 뒤늦게 실행되는 상황
	d.fire(stale)
	assert.Empty(t, rec.snapshot())

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, "b", rec.snapshot()[0].args)
}

func TestNew_DefaultDelay(t *testing.T) {
	d := New(0, func(int) {})
	assert.Equal(t, DefaultDelay, d.Delay())
}

func TestDispatcher_RealClock(t *testing.T) {
	done := make(chan string, 1)
	d := New(20*time.Millisecond, func(s string) { done <- s })

	d.Schedule("a")
	d.Schedule("b")

	select {
	case got := <-done:
		assert.Equal(t, "b", got)
	case <-time.After(2 * time.Second):
		t.Fatal("디바운스된 호출이 실행되지 않았습니다")
	}
}
