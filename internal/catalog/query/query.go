// Package query 검색 조건(QueryKey)별로 상품 페이지 시리즈를 캐시하고 조회하는 페이지 쿼리를 제공합니다.
//
// 키마다 진행 중인 요청은 최대 하나이며, 모든 응답은 (키, 세대)로 태깅되어
// 더 이상 현재 키가 아니거나 새 요청으로 대체된 응답은 병합되지 않고 버려집니다.
package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/pkg/metrics"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.query"

// DefaultCacheTTL 현재 키가 아닌 시리즈를 보관하는 기본 시간
const DefaultCacheTTL = 5 * time.Minute

// PageFetcher 한 페이지를 조회하는 원격 API 클라이언트
type PageFetcher interface {
	FetchPage(ctx context.Context, req product.PageRequest) (*product.Page, error)
}

// Outcome 쿼리 조작 한 번의 결과
type Outcome int

const (
	// OutcomeSkipped 요청이 필요 없거나 허용되지 않아 아무 일도 하지 않았습니다.
	OutcomeSkipped Outcome = iota

	// OutcomeCached 캐시된 시리즈를 그대로 사용했습니다.
	OutcomeCached

	// OutcomeFetched 응답을 받아 시리즈에 병합했습니다.
	OutcomeFetched

	// OutcomeStale 응답이 도착했지만 키가 바뀌었거나 대체되어 버렸습니다.
	OutcomeStale

	// OutcomeFailed 요청이 실패했습니다. 에러는 스냅샷에도 기록됩니다.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCached:
		return "cached"
	case OutcomeFetched:
		return "fetched"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type fetchKind string

const (
	kindFirst fetchKind = "first"
	kindNext  fetchKind = "next"
)

// Options 페이지 쿼리 설정
type Options struct {
	// PageSize 0 이하이면 product.DefaultPageSize를 사용합니다.
	PageSize int

	// Select 응답에 포함할 필드 목록
	Select []string

	// CacheTTL 0 이하이면 DefaultCacheTTL을 사용합니다.
	CacheTTL time.Duration

	// Now 테스트에서 시간을 고정하기 위한 함수
	Now func() time.Time
}

type inflight struct {
	kind   fetchKind
	gen    uint64
	cancel context.CancelFunc
}

// series 하나의 QueryKey에 대해 누적된 페이지들
type series struct {
	pages  []*product.Page
	params []int

	inflight *inflight

	// err 첫 페이지 조회 실패
	err error

	// nextErr 다음 페이지 조회 실패. 이미 받은 페이지는 유지됩니다.
	nextErr error

	// lastUsed 마지막으로 현재 키였던 시각
	lastUsed time.Time
}

// Query 검색 조건별 페이지 시리즈 캐시입니다. 모든 메서드는 여러 고루틴에서 동시에 호출할 수 있습니다.
//
// Load, FetchNextPage, Refetch는 요청이 끝날 때까지 블록되며, 네트워크 I/O 동안에는 잠금을 잡지 않습니다.
type Query struct {
	fetcher PageFetcher

	pageSize int
	sel      []string
	cacheTTL time.Duration
	now      func() time.Time

	mu      sync.Mutex
	current product.QueryKey
	series  map[product.QueryKey]*series
	gen     uint64

	subMu       sync.Mutex
	subscribers map[int]func(product.QueryKey)
	nextSubID   int
}

// New 새로운 페이지 쿼리를 생성합니다. 초기 키는 빈 검색어, 정렬 없음입니다.
func New(f PageFetcher, opts Options) *Query {
	if opts.PageSize <= 0 {
		opts.PageSize = product.DefaultPageSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Query{
		fetcher:     f,
		pageSize:    opts.PageSize,
		sel:         append([]string(nil), opts.Select...),
		cacheTTL:    opts.CacheTTL,
		now:         opts.Now,
		series:      make(map[product.QueryKey]*series),
		subscribers: make(map[int]func(product.QueryKey)),
	}
}

// PageSize 한 페이지에 요청하는 상품 수
func (q *Query) PageSize() int {
	return q.pageSize
}

// Key 현재 키
func (q *Query) Key() product.QueryKey {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.current
}

// SetKey 현재 키를 바꿉니다. 키가 바뀌었으면 true를 반환합니다.
//
// 이전 키에 진행 중인 요청은 취소되고 그 응답은 버려집니다.
// 이전 키의 완료된 페이지는 CacheTTL 동안 보관되어 되돌아올 때 요청 없이 사용됩니다.
func (q *Query) SetKey(key product.QueryKey) bool {
	q.mu.Lock()

	if key == q.current {
		q.mu.Unlock()
		return false
	}

	now := q.now()
	if old, ok := q.series[q.current]; ok {
		old.lastUsed = now
		q.supersedeLocked(old)
		if len(old.pages) == 0 {
			delete(q.series, q.current)
		}
	}

	if s, ok := q.series[key]; ok && now.Sub(s.lastUsed) > q.cacheTTL {
		delete(q.series, key)
	}

	prev := q.current
	q.current = key
	q.mu.Unlock()

	applog.WithComponentAndFields(component, applog.Fields{
		"from": prev.String(),
		"to":   key.String(),
	}).Debug("쿼리 키가 변경되었습니다")

	q.notify(key)

	return true
}

// Load 현재 키에 데이터도 없고 진행 중인 요청도 없으면 첫 페이지(offset 0)를 조회합니다.
// 캐시된 시리즈가 있으면 요청 없이 OutcomeCached를 반환합니다.
func (q *Query) Load(ctx context.Context) (Outcome, error) {
	q.mu.Lock()

	key := q.current
	s := q.seriesLocked(key)

	if len(s.pages) > 0 {
		q.mu.Unlock()
		return OutcomeCached, nil
	}
	if s.inflight != nil {
		q.mu.Unlock()
		return OutcomeSkipped, nil
	}

	return q.run(ctx, key, s, kindFirst, 0)
}

// FetchNextPage 마지막 페이지 다음 오프셋(skip+limit)을 조회하여 시리즈 끝에 붙입니다.
// 진행 중인 요청이 있거나, 첫 페이지가 없거나, 다음 페이지가 없으면 아무 일도 하지 않습니다.
func (q *Query) FetchNextPage(ctx context.Context) (Outcome, error) {
	q.mu.Lock()

	key := q.current
	s := q.seriesLocked(key)

	if s.inflight != nil || len(s.pages) == 0 {
		q.mu.Unlock()
		return OutcomeSkipped, nil
	}

	last := s.pages[len(s.pages)-1]
	if !last.HasNext() {
		q.mu.Unlock()
		return OutcomeSkipped, nil
	}

	return q.run(ctx, key, s, kindNext, last.NextSkip())
}

// Refetch 현재 키의 캐시된 페이지를 버리고 첫 페이지부터 다시 조회합니다.
// 진행 중인 요청이 있으면 취소하고 대체합니다.
func (q *Query) Refetch(ctx context.Context) (Outcome, error) {
	q.mu.Lock()

	key := q.current
	s := q.seriesLocked(key)

	q.supersedeLocked(s)
	s.pages = nil
	s.params = nil
	s.err = nil
	s.nextErr = nil

	return q.run(ctx, key, s, kindFirst, 0)
}

// run q.mu를 잡은 상태로 호출되어야 하며, 요청 전에 잠금을 풀고 결과를 병합할 때 다시 잡습니다.
func (q *Query) run(ctx context.Context, key product.QueryKey, s *series, kind fetchKind, skip int) (Outcome, error) {
	q.gen++
	gen := q.gen

	fetchCtx, cancel := context.WithCancel(ctx)
	s.inflight = &inflight{kind: kind, gen: gen, cancel: cancel}
	if kind == kindNext {
		s.nextErr = nil
	}
	q.mu.Unlock()
	defer cancel()

	q.notify(key)

	start := time.Now()
	page, err := q.fetcher.FetchPage(fetchCtx, product.PageRequest{
		Key:    key,
		Skip:   skip,
		Limit:  q.pageSize,
		Select: q.sel,
	})
	metrics.PageFetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	q.mu.Lock()

	if s.inflight == nil || s.inflight.gen != gen || q.series[key] != s || q.current != key {
		if s.inflight != nil && s.inflight.gen == gen {
			s.inflight = nil
		}
		q.mu.Unlock()

		metrics.PageFetches.WithLabelValues(string(kind), "stale").Inc()
		applog.WithComponentAndFields(component, applog.Fields{
			"key":  key.String(),
			"kind": kind,
			"skip": skip,
		}).Debug("대체된 요청의 응답을 버렸습니다")

		// 호출자 자신의 취소가 아니라면 대체로 인한 폐기이므로 에러가 아닙니다.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OutcomeStale, ctxErr
		}
		return OutcomeStale, nil
	}

	s.inflight = nil

	if err != nil {
		// 호출자가 요청을 취소한 경우는 실패로 기록하지 않습니다.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			q.mu.Unlock()
			q.notify(key)
			return OutcomeSkipped, ctx.Err()
		}

		if len(s.pages) == 0 {
			s.err = err
		} else {
			s.nextErr = err
		}
		q.mu.Unlock()

		metrics.PageFetches.WithLabelValues(string(kind), "error").Inc()
		applog.WithComponentAndFields(component, applog.Fields{
			"key":  key.String(),
			"kind": kind,
			"skip": skip,
		}).WithError(err).Warn("상품 페이지 조회에 실패했습니다")

		q.notify(key)
		return OutcomeFailed, err
	}

	s.pages = append(s.pages, page)
	s.params = append(s.params, skip)
	s.err = nil
	s.nextErr = nil
	s.lastUsed = q.now()
	q.mu.Unlock()

	result := "success"
	if len(page.Items) == 0 {
		result = "empty"
	}
	metrics.PageFetches.WithLabelValues(string(kind), result).Inc()

	q.notify(key)
	return OutcomeFetched, nil
}

// Snapshot 현재 키의 상태를 복사하여 반환합니다.
func (q *Query) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := Snapshot{Key: q.current}

	s, ok := q.series[q.current]
	if !ok {
		return snap
	}

	snap.Pages = append([]*product.Page(nil), s.pages...)
	snap.PageParams = append([]int(nil), s.params...)

	if s.inflight != nil {
		snap.IsFetching = true
		snap.IsLoading = s.inflight.kind == kindFirst
		snap.IsFetchingNextPage = s.inflight.kind == kindNext
	}

	if len(s.pages) == 0 && s.err != nil {
		snap.IsError = true
		snap.Error = s.err
	}
	snap.NextPageError = s.nextErr

	if n := len(s.pages); n > 0 {
		snap.HasNextPage = s.pages[n-1].HasNext()
	}

	return snap
}

// Evict 현재 키가 아니면서 CacheTTL 이상 사용되지 않은 시리즈를 제거하고, 제거한 개수를 반환합니다.
func (q *Query) Evict() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()

	var evicted int
	for key, s := range q.series {
		if key == q.current || s.inflight != nil {
			continue
		}
		if now.Sub(s.lastUsed) > q.cacheTTL {
			delete(q.series, key)
			evicted++
		}
	}
	return evicted
}

// CachedKeys 현재 보관 중인 시리즈 수
func (q *Query) CachedKeys() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.series)
}

// Close 진행 중인 모든 요청을 취소합니다.
func (q *Query) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, s := range q.series {
		q.supersedeLocked(s)
	}
}

// Subscribe 상태가 바뀔 때마다 호출될 함수를 등록하고, 등록 해제 함수를 반환합니다.
// 콜백은 잠금 밖에서 호출되며 변경된 시리즈의 키를 인자로 받습니다.
func (q *Query) Subscribe(fn func(product.QueryKey)) (unsubscribe func()) {
	q.subMu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = fn
	q.subMu.Unlock()

	return func() {
		q.subMu.Lock()
		delete(q.subscribers, id)
		q.subMu.Unlock()
	}
}

func (q *Query) notify(key product.QueryKey) {
	q.subMu.Lock()
	fns := make([]func(product.QueryKey), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		fns = append(fns, fn)
	}
	q.subMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func (q *Query) seriesLocked(key product.QueryKey) *series {
	s, ok := q.series[key]
	if !ok {
		s = &series{lastUsed: q.now()}
		q.series[key] = s
	}
	return s
}

// supersedeLocked 진행 중인 요청을 취소합니다. 응답이 도착하더라도 세대가 맞지 않아 버려집니다.
func (q *Query) supersedeLocked(s *series) {
	if s.inflight == nil {
		return
	}
	s.inflight.cancel()
	s.inflight = nil
}
