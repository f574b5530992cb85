package filter

import (
	"net/url"
	"strings"

	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
)

const (
	// ParamSearch 검색어 URL 파라미터
	ParamSearch = "q"

	// ParamSort 정렬 URL 파라미터. 평점순일 때만 "rating-desc" 값으로 존재합니다.
	ParamSort = "sort"
)

// Draft 폼에 입력 중인 검색 조건
type Draft struct {
	SearchTerm string
	Sort       product.SortOrder
}

// SortByRating 평점순 정렬 여부
func (d Draft) SortByRating() bool {
	return d.Sort == product.SortRatingDesc
}

// Key Draft에 해당하는 쿼리 키
func (d Draft) Key() product.QueryKey {
	return product.NewQueryKey(d.SearchTerm, d.Sort)
}

// Decode URL 쿼리 파라미터에서 Draft를 읽습니다.
func Decode(values url.Values) Draft {
	return Draft{
		SearchTerm: values.Get(ParamSearch),
		Sort:       product.ParseSortOrder(values.Get(ParamSort)),
	}
}

// Encode base의 다른 파라미터는 그대로 두고 q, sort만 Draft에 맞게 바꾼 새 값을 반환합니다.
//
// 검색어는 앞뒤 공백을 제거하며, 공백뿐인 검색어는 q를 제거합니다.
func Encode(d Draft, base url.Values) url.Values {
	values := make(url.Values, len(base)+2)
	for k, v := range base {
		values[k] = append([]string(nil), v...)
	}

	if term := strings.TrimSpace(d.SearchTerm); term != "" {
		values.Set(ParamSearch, term)
	} else {
		values.Del(ParamSearch)
	}

	if d.SortByRating() {
		values.Set(ParamSort, string(product.SortRatingDesc))
	} else {
		values.Del(ParamSort)
	}

	return values
}
