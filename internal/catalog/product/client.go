package product

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

const component = "catalog.product"

const (
	// DefaultPageSize 한 페이지에 요청하는 기본 상품 수
	DefaultPageSize = 20

	// MaxPageSize 한 페이지에 요청할 수 있는 최대 상품 수
	MaxPageSize = 100
)

// PageRequest 한 페이지 조회 요청
type PageRequest struct {
	Key   QueryKey
	Skip  int
	Limit int

	// Select 응답에 포함할 필드 목록. 페이지네이션에는 영향을 주지 않습니다.
	Select []string
}

// Client 상품 API 클라이언트
type Client struct {
	fetcher fetcher.Fetcher
	baseURL *url.URL

	// timeout 한 페이지 조회에 허용하는 최대 시간. 0이면 호출자의 context만 따릅니다.
	timeout time.Duration
}

// NewClient baseURL은 "https://dummyjson.com" 과 같이 스킴과 호스트를 포함해야 합니다.
func NewClient(f fetcher.Fetcher, baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Newf(apperrors.InvalidInput, "상품 API 주소가 올바르지 않습니다: %q", baseURL)
	}

	return &Client{
		fetcher: f,
		baseURL: u,
		timeout: timeout,
	}, nil
}

// FetchPage 검색어가 있으면 검색 엔드포인트, 없으면 전체 목록 엔드포인트로 한 페이지를 조회합니다.
//
// 반환되는 에러는 *FetchError이며, 호출자의 context가 취소된 경우에만 context.Canceled를 그대로 반환합니다.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*Page, error) {
	if req.Skip < 0 || req.Limit < 1 || req.Limit > MaxPageSize {
		return nil, newValidationError(msgInvalidRange)
	}

	var endpoint string
	if req.Key.IsSearch() {
		var err error
		if endpoint, err = c.searchURL(req); err != nil {
			return nil, err
		}
	} else {
		endpoint = c.listURL(req)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var page Page
	if err := fetcher.FetchJSON(ctx, c.fetcher, endpoint, &page); err != nil {
		return nil, classifyError(err)
	}

	if page.Skip+len(page.Items) > page.Total && page.Total > 0 {
		applog.WithComponentAndFields(component, applog.Fields{
			"key":   req.Key.String(),
			"skip":  page.Skip,
			"items": len(page.Items),
			"total": page.Total,
		}).Warn("상품 API 응답의 페이지 정보가 전체 개수와 맞지 않습니다")
	}

	// 일부 응답은 limit을 생략하므로 요청값으로 보정하여 다음 페이지 오프셋이 전진하도록 합니다.
	if page.Limit <= 0 {
		page.Limit = req.Limit
	}

	return &page, nil
}

// Search 검색 엔드포인트 전용 조회입니다. 빈 검색어는 ValidationError를 반환합니다.
func (c *Client) Search(ctx context.Context, term string, sort SortOrder, skip, limit int) (*Page, error) {
	key := NewQueryKey(term, sort)
	if key.SearchTerm == "" {
		return nil, newValidationError(msgEmptySearch)
	}
	return c.FetchPage(ctx, PageRequest{Key: key, Skip: skip, Limit: limit})
}

func (c *Client) listURL(req PageRequest) string {
	return c.buildURL("/products", req, nil)
}

func (c *Client) searchURL(req PageRequest) (string, error) {
	if strings.TrimSpace(req.Key.SearchTerm) == "" {
		return "", newValidationError(msgEmptySearch)
	}
	return c.buildURL("/products/search", req, url.Values{"q": {req.Key.SearchTerm}}), nil
}

func (c *Client) buildURL(path string, req PageRequest, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(req.Limit))
	q.Set("skip", strconv.Itoa(req.Skip))
	if req.Key.Sort == SortRatingDesc {
		q.Set("sortBy", "rating")
		q.Set("order", "desc")
	}
	if len(req.Select) > 0 {
		q.Set("select", strings.Join(req.Select, ","))
	}

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}
