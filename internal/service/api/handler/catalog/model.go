package catalog

import (
	"time"

	"github.com/darkkaiser/catalog-browser/internal/catalog/productlist"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/service/browser"
)

// FilterRequest 검색 폼 편집. 생략한 필드는 바꾸지 않으며, submit이 true이면 대기 중인 입력을 즉시 URL에 반영합니다.
type FilterRequest struct {
	SearchTerm   *string `json:"search_term" validate:"omitempty,max=100" korean:"검색어"`
	SortByRating *bool   `json:"sort_by_rating" korean:"평점순 정렬"`
	Submit       bool    `json:"submit"`
}

// SentinelRequest 목록 끝 감시 요소의 가시성 보고
type SentinelRequest struct {
	Visible *bool `json:"visible" validate:"required" korean:"표시 여부"`
}

// NetworkRequest 브라우저의 온라인/오프라인 신호
type NetworkRequest struct {
	Online *bool `json:"online" validate:"required" korean:"온라인 여부"`
}

// ViewModeRequest 보기 방식 변경
type ViewModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=grid list" korean:"보기 방식"`
}

// DraftResponse 검색 폼의 현재 입력값
type DraftResponse struct {
	SearchTerm   string `json:"search_term"`
	SortByRating bool   `json:"sort_by_rating"`

	// Pending 아직 URL에 반영되지 않은 입력이 있는지 여부
	Pending bool `json:"pending"`
}

// ProductListResponse 상품 목록 화면 응답
type ProductListResponse struct {
	URL          string           `json:"url"`
	CanGoBack    bool             `json:"can_go_back"`
	CanGoForward bool             `json:"can_go_forward"`
	Draft        DraftResponse    `json:"draft"`
	View         productlist.View `json:"view"`
}

// HistoryResponse 뒤로/앞으로 이동 결과
type HistoryResponse struct {
	Moved bool `json:"moved"`
	ProductListResponse
}

// RetryResponse 재시도 결과
type RetryResponse struct {
	Retried bool `json:"retried"`
	ProductListResponse
}

// ViewModeResponse 보기 방식 선호도
type ViewModeResponse struct {
	Mode      viewmode.Mode `json:"mode"`
	ExpiresAt *time.Time    `json:"expires_at"`
}

func newProductListResponse(s *browser.Session) ProductListResponse {
	draft := s.Form.Draft()

	return ProductListResponse{
		URL:          s.Location.Current().RequestURI(),
		CanGoBack:    s.Location.CanGoBack(),
		CanGoForward: s.Location.CanGoForward(),
		Draft: DraftResponse{
			SearchTerm:   draft.SearchTerm,
			SortByRating: draft.SortByRating(),
			Pending:      s.Form.Pending(),
		},
		View: s.List.View(),
	}
}

func newViewModeResponse(s *browser.Session) ViewModeResponse {
	pref := s.ViewModes.Preference()
	return ViewModeResponse{Mode: pref.Mode, ExpiresAt: pref.ExpiresAt}
}
