// Package location 브라우저 세션의 현재 URL과 방문 기록(뒤로/앞으로)을 관리합니다.
package location

import (
	"net/url"
	"sync"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

// ChangeKind URL이 바뀐 경위
type ChangeKind int

const (
	// Push 새 기록 항목 추가
	Push ChangeKind = iota

	// Replace 현재 기록 항목 교체
	Replace

	// Pop 뒤로/앞으로 이동
	Pop
)

func (k ChangeKind) String() string {
	switch k {
	case Push:
		return "push"
	case Replace:
		return "replace"
	case Pop:
		return "pop"
	default:
		return "unknown"
	}
}

// Change 구독자에게 전달되는 URL 변경 정보
type Change struct {
	Kind ChangeKind
	URL  *url.URL
}

// Location 여러 고루틴에서 동시에 사용할 수 있으며, 구독자 콜백은 잠금 밖에서 호출됩니다.
type Location struct {
	mu      sync.Mutex
	entries []*url.URL
	index   int

	listeners map[int]func(Change)
	nextID    int
}

// New rawURL은 "/product-list?q=desk" 처럼 경로와 쿼리만 가진 상대 URL이어도 됩니다.
func New(rawURL string) (*Location, error) {
	u, err := parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Location{
		entries:   []*url.URL{u},
		listeners: make(map[int]func(Change)),
	}, nil
}

func parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, "URL 형식이 올바르지 않습니다")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// Current 현재 URL의 복사본
func (l *Location) Current() *url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()

	return clone(l.entries[l.index])
}

// Query 현재 URL의 쿼리 파라미터
func (l *Location) Query() url.Values {
	return l.Current().Query()
}

// Navigate 새 URL로 이동하며 기록 항목을 추가합니다. 현재 위치 이후의 앞으로 기록은 버립니다.
// 현재 URL과 같으면 아무 일도 하지 않고 false를 반환합니다.
func (l *Location) Navigate(rawURL string) (bool, error) {
	u, err := parse(rawURL)
	if err != nil {
		return false, err
	}
	return l.write(Push, u), nil
}

// SetQuery 현재 경로를 유지한 채 쿼리만 바꿉니다. kind는 Push 또는 Replace 입니다.
func (l *Location) SetQuery(kind ChangeKind, query url.Values) bool {
	u := l.Current()
	u.RawQuery = query.Encode()
	return l.write(kind, u)
}

func (l *Location) write(kind ChangeKind, u *url.URL) bool {
	l.mu.Lock()
	if l.entries[l.index].String() == u.String() {
		l.mu.Unlock()
		return false
	}

	switch kind {
	case Replace:
		l.entries[l.index] = u
	default:
		kind = Push
		l.entries = append(l.entries[:l.index+1], u)
		l.index++
	}
	listeners := l.listenersLocked()
	l.mu.Unlock()

	dispatch(listeners, Change{Kind: kind, URL: clone(u)})
	return true
}

// Back 이전 기록으로 이동합니다. 이동할 곳이 없으면 false를 반환합니다.
func (l *Location) Back() bool {
	return l.step(-1)
}

// Forward 다음 기록으로 이동합니다. 이동할 곳이 없으면 false를 반환합니다.
func (l *Location) Forward() bool {
	return l.step(1)
}

func (l *Location) step(delta int) bool {
	l.mu.Lock()
	next := l.index + delta
	if next < 0 || next >= len(l.entries) {
		l.mu.Unlock()
		return false
	}
	l.index = next
	u := clone(l.entries[next])
	listeners := l.listenersLocked()
	l.mu.Unlock()

	dispatch(listeners, Change{Kind: Pop, URL: u})
	return true
}

// CanGoBack 이전 기록이 있는지 여부
func (l *Location) CanGoBack() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index > 0
}

// CanGoForward 다음 기록이 있는지 여부
func (l *Location) CanGoForward() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.index < len(l.entries)-1
}

// Subscribe URL이 바뀔 때마다 호출될 함수를 등록하고, 등록 해제 함수를 반환합니다.
func (l *Location) Subscribe(fn func(Change)) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

func (l *Location) listenersLocked() []func(Change) {
	fns := make([]func(Change), 0, len(l.listeners))
	for id := 0; id < l.nextID; id++ {
		if fn, ok := l.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func dispatch(listeners []func(Change), c Change) {
	for _, fn := range listeners {
		fn(c)
	}
}

func clone(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
