package productlist

import (
	"fmt"
)

// State 상품 목록 화면의 상태
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePopulated
	StateEmpty
	StateErrored
	StateFetchingMore
	StateExhausted
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateLoading:      "loading",
	StatePopulated:    "populated",
	StateEmpty:        "empty",
	StateErrored:      "errored",
	StateFetchingMore: "fetching-more",
	StateExhausted:    "exhausted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event 상태 전이를 일으키는 사건
type Event int

const (
	EventKeyChanged Event = iota
	EventFirstPageLoaded
	EventFirstPageEmpty
	EventFirstPageFailed
	EventLoadMore
	EventNextPageLoaded
	EventNextPageFailed
	EventRetry
)

var eventNames = map[Event]string{
	EventKeyChanged:      "key-changed",
	EventFirstPageLoaded: "first-page-loaded",
	EventFirstPageEmpty:  "first-page-empty",
	EventFirstPageFailed: "first-page-failed",
	EventLoadMore:        "load-more",
	EventNextPageLoaded:  "next-page-loaded",
	EventNextPageFailed:  "next-page-failed",
	EventRetry:           "retry",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// guard 전이 조건. nil이면 항상 만족합니다.
type guard func(c transitionContext) bool

// transitionContext 가드가 참조하는 값
type transitionContext struct {
	hasNextPage   bool
	nextPageError bool
}

func hasNext(c transitionContext) bool {
	return c.hasNextPage
}

func noNext(c transitionContext) bool {
	return !c.hasNextPage
}

func nextPageFailed(c transitionContext) bool {
	return c.nextPageError
}

type transition struct {
	from  State
	event Event
	when  guard
	to    State
}

// transitions 상태 전이 표. 같은 (from, event)에 규칙이 여럿이면 가드를 처음 만족하는 규칙을 사용합니다.
var transitions = []transition{
	{from: StateIdle, event: EventKeyChanged, to: StateLoading},
	{from: StateLoading, event: EventKeyChanged, to: StateLoading},
	{from: StatePopulated, event: EventKeyChanged, to: StateLoading},
	{from: StateEmpty, event: EventKeyChanged, to: StateLoading},
	{from: StateErrored, event: EventKeyChanged, to: StateLoading},
	{from: StateFetchingMore, event: EventKeyChanged, to: StateLoading},
	{from: StateExhausted, event: EventKeyChanged, to: StateLoading},

	{from: StateLoading, event: EventFirstPageLoaded, when: hasNext, to: StatePopulated},
	{from: StateLoading, event: EventFirstPageLoaded, when: noNext, to: StateExhausted},
	{from: StateLoading, event: EventFirstPageEmpty, to: StateEmpty},
	{from: StateLoading, event: EventFirstPageFailed, to: StateErrored},

	{from: StateErrored, event: EventRetry, to: StateLoading},

	{from: StatePopulated, event: EventLoadMore, to: StateFetchingMore},
	{from: StateFetchingMore, event: EventNextPageLoaded, when: hasNext, to: StatePopulated},
	{from: StateFetchingMore, event: EventNextPageLoaded, when: noNext, to: StateExhausted},
	{from: StateFetchingMore, event: EventNextPageFailed, to: StatePopulated},

	// 다음 페이지 실패 후의 재시도는 이미 보여준 상품을 유지한 채 다음 페이지만 다시 요청합니다.
	{from: StatePopulated, event: EventRetry, when: nextPageFailed, to: StateFetchingMore},
}

// next 전이 표에서 다음 상태를 찾습니다. 허용되지 않는 사건이면 ok가 false입니다.
func next(from State, event Event, c transitionContext) (State, bool) {
	for _, t := range transitions {
		if t.from != from || t.event != event {
			continue
		}
		if t.when == nil || t.when(c) {
			return t.to, true
		}
	}
	return from, false
}
