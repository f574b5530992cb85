package productlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		event  Event
		c      transitionContext
		want   State
		wantOK bool
	}{
		{"키 변경은 어느 상태에서나 로딩", StateExhausted, EventKeyChanged, transitionContext{}, StateLoading, true},
		{"첫 페이지 후 다음 페이지 있음", StateLoading, EventFirstPageLoaded, transitionContext{hasNextPage: true}, StatePopulated, true},
		{"첫 페이지 후 다음 페이지 없음", StateLoading, EventFirstPageLoaded, transitionContext{}, StateExhausted, true},
		{"첫 페이지 비어 있음", StateLoading, EventFirstPageEmpty, transitionContext{}, StateEmpty, true},
		{"첫 페이지 실패", StateLoading, EventFirstPageFailed, transitionContext{}, StateErrored, true},
		{"에러 화면 재시도", StateErrored, EventRetry, transitionContext{}, StateLoading, true},
		{"스크롤", StatePopulated, EventLoadMore, transitionContext{}, StateFetchingMore, true},
		{"다음 페이지 실패는 목록 유지", StateFetchingMore, EventNextPageFailed, transitionContext{}, StatePopulated, true},
		{"다음 페이지 실패 후 재시도", StatePopulated, EventRetry, transitionContext{nextPageError: true}, StateFetchingMore, true},
		{"실패가 없으면 재시도 불가", StatePopulated, EventRetry, transitionContext{}, StatePopulated, false},
		{"소진 상태에서는 스크롤 불가", StateExhausted, EventLoadMore, transitionContext{}, StateExhausted, false},
		{"로딩 중 스크롤 불가", StateLoading, EventLoadMore, transitionContext{}, StateLoading, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := next(tt.from, tt.event, tt.c)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHeaderText(t *testing.T) {
	assert.Equal(t, "총 0개의 상품", headerText("", 0))
	assert.Equal(t, "총 194개의 상품", headerText("", 194))
	assert.Equal(t, "1,000개의 검색 결과", headerText("phone", 1000))
}
