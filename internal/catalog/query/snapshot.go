package query

import (
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
)

// Snapshot 특정 시점의 현재 키 상태
type Snapshot struct {
	Key product.QueryKey

	Pages      []*product.Page
	PageParams []int

	// IsLoading 첫 페이지를 조회 중
	IsLoading bool

	// IsFetching 어떤 종류든 요청이 진행 중
	IsFetching bool

	IsFetchingNextPage bool

	// IsError 첫 페이지 조회가 실패하여 보여줄 페이지가 하나도 없음
	IsError bool
	Error   error

	// NextPageError 다음 페이지 조회 실패. 이미 받은 페이지는 유지됩니다.
	NextPageError error

	// HasNextPage 마지막 페이지의 skip+limit < total
	HasNextPage bool
}

// HasData 한 페이지 이상 받았는지 여부
func (s Snapshot) HasData() bool {
	return len(s.Pages) > 0
}

// Items 페이지들의 상품을 조회 순서대로 이어 붙인 목록
func (s Snapshot) Items() []product.Product {
	var n int
	for _, p := range s.Pages {
		n += len(p.Items)
	}

	items := make([]product.Product, 0, n)
	for _, p := range s.Pages {
		items = append(items, p.Items...)
	}
	return items
}

// Total 첫 페이지가 알려준 전체 상품 수
func (s Snapshot) Total() int {
	if len(s.Pages) == 0 {
		return 0
	}
	return s.Pages[0].Total
}
