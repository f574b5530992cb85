package productlist

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
)

// RenderKind 화면에 그릴 주 영역의 종류
type RenderKind string

const (
	RenderError     RenderKind = "error"
	RenderSkeleton  RenderKind = "skeleton"
	RenderNoResults RenderKind = "no-results"
	RenderItems     RenderKind = "items"
)

const (
	textRetry        = "다시 시도"
	textFetchingMore = "상품을 더 불러오는 중..."
	textExhausted    = "더 이상 불러올 수 없습니다."
	textNoResults    = "일치하는 결과가 없습니다"
	textNoResultsTip = "다른 검색어를 시도해보세요."
	textOffline      = "인터넷 연결이 끊어졌습니다. 네트워크 연결을 확인하고 다시 시도해 주세요."
)

// View 한 시점의 상품 목록 화면 상태입니다. 클라이언트는 이 값만으로 화면을 그립니다.
type View struct {
	Kind  RenderKind `json:"kind"`
	State string     `json:"state"`

	// Revision 상태가 바뀔 때마다 증가합니다. 클라이언트는 값이 바뀌었을 때만 다시 그리면 됩니다.
	Revision uint64 `json:"revision"`

	SearchTerm   string        `json:"searchTerm"`
	SortByRating bool          `json:"sortByRating"`
	ViewMode     viewmode.Mode `json:"viewMode"`

	Header Header `json:"header"`

	Items         []product.Product `json:"items,omitempty"`
	SkeletonCount int               `json:"skeletonCount,omitempty"`

	Error         *ErrorView     `json:"error,omitempty"`
	NextPageError *ErrorView     `json:"nextPageError,omitempty"`
	NoResults     *NoResultsView `json:"noResults,omitempty"`

	FetchingMore     bool   `json:"fetchingMore"`
	FetchingMoreText string `json:"fetchingMoreText,omitempty"`
	Exhausted        bool   `json:"exhausted"`
	ExhaustedText    string `json:"exhaustedText,omitempty"`

	Online        bool   `json:"online"`
	OfflineNotice string `json:"offlineNotice,omitempty"`

	// Sentinel 무한 스크롤 감시 요소의 ID와 관찰 영역 여백
	Sentinel   string `json:"sentinel"`
	RootMargin string `json:"rootMargin"`
}

// Header 목록 상단의 결과 수 표시
type Header struct {
	Loading    bool   `json:"loading"`
	TotalCount int    `json:"totalCount"`
	Text       string `json:"text,omitempty"`
	Query      string `json:"query,omitempty"`
}

// ErrorView 재시도 버튼이 있는 에러 표시
type ErrorView struct {
	Kind       string `json:"kind"`
	StatusCode int    `json:"statusCode,omitempty"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	RetryLabel string `json:"retryLabel"`
}

// NoResultsView 결과가 없을 때의 안내
type NoResultsView struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var printer = message.NewPrinter(language.Korean)

// headerText 검색어가 있으면 "N개의 검색 결과", 없으면 "총 N개의 상품" (천 단위 구분)
func headerText(searchTerm string, total int) string {
	if searchTerm != "" {
		return printer.Sprintf("%d개의 검색 결과", total)
	}
	return printer.Sprintf("총 %d개의 상품", total)
}

func newErrorView(err error) *ErrorView {
	if err == nil {
		return nil
	}

	v := &ErrorView{
		Kind:       product.KindNetwork.String(),
		Title:      "오류가 발생했습니다",
		Message:    "페이지를 로드하는 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요.",
		RetryLabel: textRetry,
	}

	if fe, ok := asFetchError(err); ok {
		v.Kind = fe.Kind.String()
		v.StatusCode = fe.StatusCode
		v.Title = fe.Title()
		if fe.Message != "" {
			v.Message = fe.Message
		}
	}

	return v
}
