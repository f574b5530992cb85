// Package filter 검색어와 정렬 조건을 입력받아 디바운스한 뒤 URL 쿼리 파라미터로 기록하는 검색 폼을 제공합니다.
//
// URL에 기록하는 것은 이 폼뿐이며, 목록 화면은 URL을 읽기만 합니다.
package filter

import (
	"sync"
	"time"

	"github.com/darkkaiser/catalog-browser/internal/catalog/location"
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/pkg/debounce"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.filter"

// Option 폼 설정 옵션
type Option func(*options)

type options struct {
	delay time.Duration
	clock debounce.Clock
}

// WithDelay 디바운스 지연 시간. 0 이하이면 debounce.DefaultDelay를 사용합니다.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithClock 디바운스 타이머에 사용할 시계
func WithClock(c debounce.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// Form 검색 폼
type Form struct {
	loc        *location.Location
	dispatcher *debounce.Dispatcher[Draft]

	mu    sync.Mutex
	draft Draft

	// selfMu는 selfWrite를 보호합니다. selfWrite는 폼이 지금 기록 중인 URL이며, 기록 중이 아니면 빈 문자열입니다.
	selfMu    sync.Mutex
	selfWrite string

	unsubscribe func()
}

// New 현재 URL로 Draft를 초기화하고, 외부에서 URL이 바뀌면(뒤로/앞으로 등) Draft를 다시 맞춥니다.
func New(loc *location.Location, opts ...Option) *Form {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var dopts []debounce.Option
	if o.clock != nil {
		dopts = append(dopts, debounce.WithClock(o.clock))
	}

	f := &Form{
		loc:   loc,
		draft: Decode(loc.Query()),
	}
	f.dispatcher = debounce.New(o.delay, func(d Draft) {
		f.write(d, location.Replace)
	}, dopts...)
	f.unsubscribe = loc.Subscribe(f.handleLocationChange)

	return f
}

// Draft 현재 입력 중인 검색 조건
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.draft
}

// SetSearchTerm 검색어를 바꾸고 디바운스된 URL 기록을 예약합니다.
func (f *Form) SetSearchTerm(term string) {
	f.mu.Lock()
	f.draft.SearchTerm = term
	d := f.draft
	f.mu.Unlock()

	f.dispatcher.Schedule(d)
}

// SetSortByRating 평점순 정렬 여부를 바꾸고 디바운스된 URL 기록을 예약합니다.
func (f *Form) SetSortByRating(on bool) {
	f.mu.Lock()
	if on {
		f.draft.Sort = product.SortRatingDesc
	} else {
		f.draft.Sort = product.SortNone
	}
	d := f.draft
	f.mu.Unlock()

	f.dispatcher.Schedule(d)
}

// Submit 예약된 기록을 취소하고 현재 Draft를 즉시 URL에 기록합니다(새 기록 항목).
func (f *Form) Submit() bool {
	f.dispatcher.Cancel()

	return f.write(f.Draft(), location.Push)
}

// Pending 디바운스 대기 중인 기록이 있는지 여부
func (f *Form) Pending() bool {
	return f.dispatcher.Pending()
}

// Delay 디바운스 지연 시간
func (f *Form) Delay() time.Duration {
	return f.dispatcher.Delay()
}

// Close 예약된 기록을 버리고 URL 구독을 해제합니다.
func (f *Form) Close() {
	f.dispatcher.Close()
	f.unsubscribe()
}

func (f *Form) write(d Draft, kind location.ChangeKind) bool {
	values := Encode(d, f.loc.Query())

	target := f.loc.Current()
	target.RawQuery = values.Encode()

	f.selfMu.Lock()
	f.selfWrite = target.String()
	f.selfMu.Unlock()

	changed := f.loc.SetQuery(kind, values)

	f.selfMu.Lock()
	f.selfWrite = ""
	f.selfMu.Unlock()

	if changed {
		applog.WithComponentAndFields(component, applog.Fields{
			"q":    values.Get(ParamSearch),
			"sort": values.Get(ParamSort),
			"kind": kind.String(),
		}).Debug("검색 조건을 URL에 기록했습니다")
	}

	return changed
}

func (f *Form) handleLocationChange(c location.Change) {
	// 폼 자신의 기록만 건너뜁니다. 기록 도중에 들어온 뒤로/앞으로 이동은 그대로 반영합니다.
	if c.Kind != location.Pop && f.isSelfWrite(c.URL.String()) {
		return
	}

	// 외부 이동 후에 이전 입력이 URL을 덮어쓰지 않도록 예약을 취소합니다.
	f.dispatcher.Cancel()

	f.mu.Lock()
	f.draft = Decode(c.URL.Query())
	f.mu.Unlock()
}

func (f *Form) isSelfWrite(u string) bool {
	f.selfMu.Lock()
	defer f.selfMu.Unlock()

	return f.selfWrite != "" && f.selfWrite == u
}
