// Package product 원격 상품 API(dummyjson 호환)의 데이터 모델과 페이지 조회 클라이언트를 제공합니다.
package product

import (
	"math"
	"net/url"
	"strings"
)

// Review 상품 리뷰
type Review struct {
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
	Date          string `json:"date"`
	ReviewerName  string `json:"reviewerName"`
	ReviewerEmail string `json:"reviewerEmail"`
}

// Product 한 번 조회된 상품은 변경되지 않으며, 조회한 페이지가 소유합니다.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Brand              string   `json:"brand,omitempty"`
	Category           string   `json:"category"`
	Thumbnail          string   `json:"thumbnail"`
	Images             []string `json:"images,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock"`
	Reviews            []Review `json:"reviews,omitempty"`
}

// DiscountedPrice 할인율을 적용한 가격을 센트 단위에서 반올림하여 반환합니다.
func (p Product) DiscountedPrice() float64 {
	discount := min(max(p.DiscountPercentage, 0), 100)
	return math.Round(p.Price*(1-discount/100)*100) / 100
}

// ReviewCount 리뷰 개수
func (p Product) ReviewCount() int {
	return len(p.Reviews)
}

// Page 한 번의 조회 결과입니다. 마지막 페이지가 아니라면 Skip+len(Items) <= Total 입니다.
type Page struct {
	Items []Product `json:"products"`
	Total int       `json:"total"`
	Skip  int       `json:"skip"`
	Limit int       `json:"limit"`
}

// HasNext 이 페이지 다음에 더 조회할 항목이 남아 있는지 여부
func (p *Page) HasNext() bool {
	return p.Skip+p.Limit < p.Total
}

// NextSkip 다음 페이지를 조회할 오프셋
func (p *Page) NextSkip() int {
	return p.Skip + p.Limit
}

// SortOrder 상품 목록 정렬 순서
type SortOrder string

const (
	SortNone       SortOrder = ""
	SortRatingDesc SortOrder = "rating-desc"
)

// ParseSortOrder URL의 sort 파라미터 값을 해석합니다. 알 수 없는 값은 SortNone으로 취급합니다.
func ParseSortOrder(v string) SortOrder {
	if SortOrder(v) == SortRatingDesc {
		return SortRatingDesc
	}
	return SortNone
}

// QueryKey 하나의 페이지 시리즈를 식별합니다. 같은 키는 같은 캐시 시리즈를 공유합니다.
type QueryKey struct {
	SearchTerm string    `json:"searchTerm"`
	Sort       SortOrder `json:"sort"`
}

// NewQueryKey 검색어의 앞뒤 공백을 제거한 키를 생성합니다.
func NewQueryKey(searchTerm string, sort SortOrder) QueryKey {
	return QueryKey{SearchTerm: strings.TrimSpace(searchTerm), Sort: sort}
}

// IsSearch 검색 엔드포인트를 사용해야 하는 키인지 여부. "*"는 전체 상품 조회로 취급합니다.
func (k QueryKey) IsSearch() bool {
	return k.SearchTerm != "" && k.SearchTerm != allProductsTerm
}

// String 로그와 재시도 트리거에서 쓰는 키의 문자열 표현입니다. 값은 쿼리 문자열로 인코딩되므로 서로 다른 키는 서로 다른 문자열이 됩니다.
func (k QueryKey) String() string {
	v := url.Values{"q": {k.SearchTerm}}
	if k.Sort != SortNone {
		v.Set("sort", string(k.Sort))
	}
	return v.Encode()
}

const allProductsTerm = "*"
