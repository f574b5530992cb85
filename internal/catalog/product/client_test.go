package product_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher"
	"github.com/darkkaiser/catalog-browser/internal/catalog/fetcher/mocks"
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

func newClient(t *testing.T, f fetcher.Fetcher, baseURL string) *product.Client {
	t.Helper()

	c, err := product.NewClient(f, baseURL, time.Second)
	require.NoError(t, err)
	return c
}

func TestClient_FetchPage_BuildsURL(t *testing.T) {
	tests := []struct {
		name      string
		req       product.PageRequest
		wantPath  string
		wantQuery map[string]string
	}{
		{
			name:      "전체 목록",
			req:       product.PageRequest{Skip: 0, Limit: 20},
			wantPath:  "/products",
			wantQuery: map[string]string{"limit": "20", "skip": "0"},
		},
		{
			name:      "평점순 정렬",
			req:       product.PageRequest{Key: product.QueryKey{Sort: product.SortRatingDesc}, Skip: 40, Limit: 20},
			wantPath:  "/products",
			wantQuery: map[string]string{"limit": "20", "skip": "40", "sortBy": "rating", "order": "desc"},
		},
		{
			name:      "검색어",
			req:       product.PageRequest{Key: product.QueryKey{SearchTerm: "desk & chair"}, Skip: 20, Limit: 10},
			wantPath:  "/products/search",
			wantQuery: map[string]string{"q": "desk & chair", "limit": "10", "skip": "20"},
		},
		{
			name:      "전체 목록 별칭(*)",
			req:       product.PageRequest{Key: product.QueryKey{SearchTerm: "*"}, Limit: 20},
			wantPath:  "/products",
			wantQuery: map[string]string{"limit": "20", "skip": "0"},
		},
		{
			name:      "필드 선택",
			req:       product.PageRequest{Limit: 20, Select: []string{"title", "price"}},
			wantPath:  "/products",
			wantQuery: map[string]string{"select": "title,price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockFetcher := mocks.NewMockFetcher()
			mockFetcher.On("Do", mock.MatchedBy(func(req *http.Request) bool {
				if req.URL.Path != tt.wantPath {
					return false
				}
				for k, v := range tt.wantQuery {
					if req.URL.Query().Get(k) != v {
						return false
					}
				}
				return true
			})).Return(mocks.NewMockResponseWithJSON(map[string]any{"products": []any{}, "total": 0, "skip": tt.req.Skip, "limit": tt.req.Limit}, http.StatusOK), nil)

			c := newClient(t, mockFetcher, "https://dummyjson.example")

			page, err := c.FetchPage(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, 0, page.Total)
			mockFetcher.AssertExpectations(t)
		})
	}
}

func TestClient_FetchPage_DecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"products": [
				{"id": 1, "title": "Essence Mascara", "price": 9.99, "discountPercentage": 10, "rating": 4.94, "stock": 5,
				 "reviews": [{"rating": 5, "comment": "Great", "date": "2024-05-23T08:56:21.618Z", "reviewerName": "Eleanor", "reviewerEmail": "e@x.com"}]}
			],
			"total": 194, "skip": 0, "limit": 1
		}`))
	}))
	defer srv.Close()

	c := newClient(t, fetcher.New(fetcher.Config{}), srv.URL)

	page, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	p := page.Items[0]
	assert.Equal(t, "Essence Mascara", p.Title)
	assert.Equal(t, 1, p.ReviewCount())
	assert.InDelta(t, 8.99, p.DiscountedPrice(), 0.001)
	assert.True(t, page.HasNext())
	assert.Equal(t, 1, page.NextSkip())
}

func TestClient_FetchPage_Errors(t *testing.T) {
	t.Run("서버 에러는 KindServer와 서버 메시지", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"database is down"}`))
		}))
		defer srv.Close()

		c := newClient(t, fetcher.New(fetcher.Config{}), srv.URL)

		_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 20})

		var fetchErr *product.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, product.KindServer, fetchErr.Kind)
		assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
		assert.Equal(t, "database is down", fetchErr.Message)
		assert.Equal(t, "서버 오류", fetchErr.Title())
		assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	})

	t.Run("연결 실패는 KindNetwork", func(t *testing.T) {
		mockFetcher := mocks.NewMockFetcher()
		mockFetcher.On("Do", mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

		c := newClient(t, mockFetcher, "https://dummyjson.example")

		_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 20})

		var fetchErr *product.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, product.KindNetwork, fetchErr.Kind)
		assert.Equal(t, "네트워크 오류", fetchErr.Title())
		assert.True(t, apperrors.Is(err, apperrors.Unavailable))
	})

	t.Run("타임아웃은 Timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c, err := product.NewClient(fetcher.New(fetcher.Config{}), srv.URL, 30*time.Millisecond)
		require.NoError(t, err)

		_, err = c.FetchPage(context.Background(), product.PageRequest{Limit: 20})

		var fetchErr *product.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, product.KindNetwork, fetchErr.Kind)
		assert.True(t, apperrors.Is(err, apperrors.Timeout))
		assert.Equal(t, "응답 시간 초과", fetchErr.Title())
	})

	t.Run("서킷 차단은 KindNetwork", func(t *testing.T) {
		mockFetcher := mocks.NewMockFetcher()
		mockFetcher.On("Do", mock.Anything).Return(nil, fetcher.ErrCircuitOpen)

		c := newClient(t, mockFetcher, "https://dummyjson.example")

		_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 20})

		var fetchErr *product.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, product.KindNetwork, fetchErr.Kind)
	})

	t.Run("취소는 그대로 전달", func(t *testing.T) {
		mockFetcher := mocks.NewMockFetcher()
		mockFetcher.On("Do", mock.Anything).Return(nil, context.Canceled)

		c := newClient(t, mockFetcher, "https://dummyjson.example")

		_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 20})
		assert.ErrorIs(t, err, context.Canceled)

		var fetchErr *product.FetchError
		assert.False(t, errors.As(err, &fetchErr))
	})
}

func TestClient_Validation(t *testing.T) {
	var calls atomic.Int32
	mockFetcher := fetcher.FetcherFunc(func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return mocks.NewMockResponse("{}", http.StatusOK), nil
	})

	c := newClient(t, mockFetcher, "https://dummyjson.example")

	tests := []struct {
		name string
		call func() error
	}{
		{name: "빈 검색어", call: func() error {
			_, err := c.Search(context.Background(), "   ", product.SortNone, 0, 20)
			return err
		}},
		{name: "음수 오프셋", call: func() error {
			_, err := c.FetchPage(context.Background(), product.PageRequest{Skip: -1, Limit: 20})
			return err
		}},
		{name: "페이지 크기 0", call: func() error {
			_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: 0})
			return err
		}},
		{name: "페이지 크기 초과", call: func() error {
			_, err := c.FetchPage(context.Background(), product.PageRequest{Limit: product.MaxPageSize + 1})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()

			var fetchErr *product.FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, product.KindValidation, fetchErr.Kind)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
		})
	}

	assert.Equal(t, int32(0), calls.Load(), "검증 실패 시 요청을 보내지 않아야 합니다")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := product.NewClient(mocks.NewMockFetcher(), "not a url", time.Second)
	assert.True(t, apperrors.Is(err, apperrors.InvalidInput))
}

func TestQueryKey(t *testing.T) {
	assert.Equal(t, product.QueryKey{SearchTerm: "desk", Sort: product.SortRatingDesc}, product.NewQueryKey("  desk ", product.SortRatingDesc))
	assert.False(t, product.NewQueryKey("", product.SortNone).IsSearch())
	assert.False(t, product.NewQueryKey("*", product.SortNone).IsSearch())
	assert.True(t, product.NewQueryKey("phone", product.SortNone).IsSearch())

	assert.Equal(t, product.SortRatingDesc, product.ParseSortOrder("rating-desc"))
	assert.Equal(t, product.SortNone, product.ParseSortOrder("price-asc"))
}

func TestQueryKey_String(t *testing.T) {
	assert.Equal(t, "q=desk", product.NewQueryKey("desk", product.SortNone).String())
	assert.Equal(t, "q=desk&sort=rating-desc", product.NewQueryKey("desk", product.SortRatingDesc).String())

	// 검색어에 구분자가 들어 있어도 다른 키와 겹치지 않습니다.
	injected := product.NewQueryKey("a&sort=rating-desc", product.SortNone)
	sorted := product.NewQueryKey("a", product.SortRatingDesc)
	assert.NotEqual(t, sorted.String(), injected.String())
	assert.Equal(t, "q=a%26sort%3Drating-desc", injected.String())
}

func TestPage_HasNext(t *testing.T) {
	assert.False(t, (&product.Page{Skip: 100, Limit: 20, Total: 110}).HasNext())
	assert.False(t, (&product.Page{Skip: 80, Limit: 20, Total: 100}).HasNext())
	assert.True(t, (&product.Page{Skip: 60, Limit: 20, Total: 100}).HasNext())
}
