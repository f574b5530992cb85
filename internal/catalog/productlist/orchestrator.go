// Package productlist URL의 검색 조건, 페이지 쿼리, 무한 스크롤 트리거, 보기 방식을 하나의 상태 전이 표로 묶어
// 상품 목록 화면의 상태(View)를 결정합니다.
//
// 에러 화면과 콘텐츠 중 무엇을 보여줄지는 이 패키지만 결정합니다.
package productlist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	"github.com/darkkaiser/catalog-browser/internal/catalog/filter"
	"github.com/darkkaiser/catalog-browser/internal/catalog/location"
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/catalog/query"
	"github.com/darkkaiser/catalog-browser/internal/catalog/scroll"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.productlist"

// DefaultSentinel 목록 끝에 놓이는 감시 요소의 ID
const DefaultSentinel = "product-list-sentinel"

// Dependencies Orchestrator가 사용하는 구성 요소. ViewModes는 nil이어도 됩니다(항상 grid).
type Dependencies struct {
	Location  *location.Location
	Query     *query.Query
	Trigger   *scroll.Trigger
	ViewModes *viewmode.Store

	// Sentinel 비어 있으면 DefaultSentinel을 사용합니다.
	Sentinel string
}

// Orchestrator 상품 목록 화면 하나의 상태 기계입니다.
//
// 남은 페이지 조회는 Orchestrator가 소유한 고루틴에서 실행되며 Wait로 모두 끝날 때까지 기다릴 수 있습니다.
type Orchestrator struct {
	loc       *location.Location
	query     *query.Query
	trigger   *scroll.Trigger
	viewModes *viewmode.Store
	sentinel  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// keyMu 키 변경을 직렬화하여 쿼리의 현재 키와 상태 기계의 키가 어긋나지 않게 합니다.
	keyMu sync.Mutex

	// syncMu 트리거에 상태를 반영하는 순서를 직렬화합니다.
	syncMu sync.Mutex

	mu      sync.Mutex
	state   State
	key     product.QueryKey
	online  bool
	nextErr error
	started bool
	closed  bool

	revision atomic.Uint64

	unsubscribes []func()
}

// New 구성 요소를 연결합니다. Start를 호출해야 현재 URL의 첫 페이지 조회를 시작합니다.
func New(deps Dependencies) *Orchestrator {
	sentinel := deps.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		loc:       deps.Location,
		query:     deps.Query,
		trigger:   deps.Trigger,
		viewModes: deps.ViewModes,
		sentinel:  sentinel,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		online:    true,
	}

	o.trigger.SetCallback(o.loadMore)

	o.unsubscribes = append(o.unsubscribes,
		o.loc.Subscribe(func(c location.Change) {
			o.applyKey(filter.Decode(c.URL.Query()).Key())
		}),
		o.query.Subscribe(func(product.QueryKey) {
			o.revision.Add(1)
		}),
	)

	return o
}

// Start 감시 요소를 연결하고 현재 URL의 검색 조건으로 첫 페이지를 불러옵니다.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	if o.started || o.closed {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	o.trigger.Update(false, true)
	o.trigger.Attach(o.sentinel)
	o.applyKey(filter.Decode(o.loc.Query()).Key())
}

// State 현재 상태
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Key 상태 기계가 따르고 있는 쿼리 키
func (o *Orchestrator) Key() product.QueryKey {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.key
}

// Sentinel 감시 요소 ID
func (o *Orchestrator) Sentinel() string {
	return o.sentinel
}

// applyKey 키가 바뀌었을 때 페이지네이션 상태를 초기화하고, 트리거를 다시 무장한 뒤 첫 페이지를 불러옵니다.
func (o *Orchestrator) applyKey(key product.QueryKey) {
	o.keyMu.Lock()
	defer o.keyMu.Unlock()

	o.mu.Lock()
	if o.closed || !o.started || (key == o.key && o.state != StateIdle) {
		o.mu.Unlock()
		return
	}
	o.key = key
	o.nextErr = nil
	o.transitionLocked(EventKeyChanged, transitionContext{})
	o.mu.Unlock()

	o.query.SetKey(key)

	// 로딩 중으로 먼저 알린 뒤 다시 무장하여, 무장 직후 이전 키의 상태로 발사되지 않게 합니다.
	o.trigger.Update(false, true)
	o.trigger.Reset(key.String())

	o.spawn(func(ctx context.Context) {
		outcome, err := o.query.Load(ctx)
		o.onFirstPage(key, outcome, err)
	})
}

func (o *Orchestrator) onFirstPage(key product.QueryKey, outcome query.Outcome, err error) {
	o.mu.Lock()
	if o.closed || key != o.key || o.state != StateLoading {
		o.mu.Unlock()
		return
	}

	switch outcome {
	case query.OutcomeFailed:
		o.transitionLocked(EventFirstPageFailed, transitionContext{})

	case query.OutcomeFetched, query.OutcomeCached:
		snap := o.query.Snapshot()
		if snap.Key != key {
			o.mu.Unlock()
			return
		}
		if len(snap.Items()) == 0 {
			o.transitionLocked(EventFirstPageEmpty, transitionContext{})
		} else {
			o.transitionLocked(EventFirstPageLoaded, transitionContext{hasNextPage: snap.HasNextPage})
		}

	default:
		// 대체되었거나 이미 진행 중인 요청이 결과를 반영합니다.
		o.mu.Unlock()
		if err != nil && !errors.Is(err, context.Canceled) {
			applog.WithComponent(component).WithError(err).Debug("첫 페이지 응답을 반영하지 않았습니다")
		}
		return
	}
	o.mu.Unlock()

	o.syncTrigger()
}

// loadMore 스크롤 트리거 콜백입니다. 트리거 내부에서 동기적으로 호출될 수 있으므로 트리거를 직접 갱신하지 않습니다.
func (o *Orchestrator) loadMore() {
	o.mu.Lock()
	if o.closed || !o.online || o.state != StatePopulated || o.nextErr != nil {
		o.mu.Unlock()
		return
	}
	o.transitionLocked(EventLoadMore, transitionContext{})
	key := o.key
	o.mu.Unlock()

	o.spawn(func(ctx context.Context) {
		o.syncTrigger()
		outcome, err := o.query.FetchNextPage(ctx)
		o.onNextPage(key, outcome, err)
	})
}

func (o *Orchestrator) onNextPage(key product.QueryKey, outcome query.Outcome, err error) {
	o.mu.Lock()
	if o.closed || key != o.key || o.state != StateFetchingMore {
		o.mu.Unlock()
		return
	}

	snap := o.query.Snapshot()

	switch outcome {
	case query.OutcomeFailed:
		o.nextErr = err
		o.transitionLocked(EventNextPageFailed, transitionContext{hasNextPage: snap.HasNextPage})

	case query.OutcomeFetched, query.OutcomeSkipped:
		if outcome == query.OutcomeSkipped && snap.IsFetchingNextPage {
			o.mu.Unlock()
			return
		}
		o.transitionLocked(EventNextPageLoaded, transitionContext{hasNextPage: snap.HasNextPage})

	default:
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	o.syncTrigger()
}

// Retry 첫 페이지 실패 화면에서는 Refetch를 한 번, 다음 페이지 실패 상태에서는 다음 페이지 조회를 한 번 요청합니다.
// 이 요청은 fetcher 체인의 자동 재시도를 끄고 보내므로 상품 API에는 한 번만 도달합니다.
// 재시도할 것이 없으면 false를 반환합니다.
func (o *Orchestrator) Retry() bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}

	key := o.key
	c := transitionContext{nextPageError: o.nextErr != nil}

	switch {
	case o.state == StateErrored:
		o.transitionLocked(EventRetry, c)
		o.mu.Unlock()

		o.syncTrigger()
		o.spawn(func(ctx context.Context) {
			outcome, err := o.query.Refetch(fetcher.WithoutRetry(ctx))
			o.onFirstPage(key, outcome, err)
		})
		return true

	case o.state == StatePopulated && c.nextPageError:
		o.transitionLocked(EventRetry, c)
		o.nextErr = nil
		o.mu.Unlock()

		o.spawn(func(ctx context.Context) {
			o.syncTrigger()
			outcome, err := o.query.FetchNextPage(fetcher.WithoutRetry(ctx))
			o.onNextPage(key, outcome, err)
		})
		return true

	default:
		o.mu.Unlock()
		return false
	}
}

// SetOnline 네트워크 연결 상태를 갱신합니다. 오프라인 동안에는 스크롤로 인한 조회를 하지 않고,
// 다시 온라인이 되면 트리거를 다시 무장합니다.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	if o.closed || o.online == online {
		o.mu.Unlock()
		return
	}
	o.online = online
	o.mu.Unlock()

	o.revision.Add(1)

	applog.WithComponentAndFields(component, applog.Fields{
		"online": online,
	}).Debug("네트워크 상태가 변경되었습니다")

	o.syncTrigger()
	if online {
		o.trigger.Rearm()
	}
}

// Online 네트워크 연결 상태
func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.online
}

// Wait 진행 중인 조회 고루틴이 모두 끝날 때까지 기다립니다.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Settle 진행 중인 조회가 모두 끝나거나 ctx가 끝날 때까지 기다립니다. ctx가 먼저 끝나면 ctx의 에러를 반환합니다.
func (o *Orchestrator) Settle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 진행 중인 조회를 취소하고 구독과 관찰을 해제합니다.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	for _, unsubscribe := range o.unsubscribes {
		unsubscribe()
	}
	o.cancel()
	o.query.Close()
	o.trigger.Close()
	o.wg.Wait()
}

// syncTrigger 현재 상태를 트리거에 반영합니다. 다음 페이지 실패 후에는 재시도 전까지 자동으로 발사되지 않습니다.
func (o *Orchestrator) syncTrigger() {
	o.syncMu.Lock()
	defer o.syncMu.Unlock()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	snap := o.query.Snapshot()
	canLoad := o.state == StatePopulated || o.state == StateFetchingMore
	hasNext := canLoad && snap.Key == o.key && snap.HasNextPage && o.nextErr == nil && o.online
	isLoading := o.state == StateLoading || o.state == StateFetchingMore
	o.mu.Unlock()

	o.trigger.Update(hasNext, isLoading)
}

func (o *Orchestrator) spawn(fn func(ctx context.Context)) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		fn(o.ctx)
	}()
}

func (o *Orchestrator) transitionLocked(event Event, c transitionContext) {
	to, ok := next(o.state, event, c)
	if !ok {
		applog.WithComponentAndFields(component, applog.Fields{
			"state": o.state.String(),
			"event": event.String(),
		}).Warn("허용되지 않는 상태 전이를 무시합니다")
		return
	}

	applog.WithComponentAndFields(component, applog.Fields{
		"from":  o.state.String(),
		"event": event.String(),
		"to":    to.String(),
		"key":   o.key.String(),
	}).Debug("상태 전이")

	o.state = to
	o.revision.Add(1)
}

func asFetchError(err error) (*product.FetchError, bool) {
	var fe *product.FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
