package filter_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkkaiser/catalog-browser/internal/catalog/filter"
	"github.com/darkkaiser/catalog-browser/internal/catalog/location"
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/pkg/debounce"
)

func newForm(t *testing.T, rawURL string) (*filter.Form, *location.Location, *debounce.FakeClock) {
	t.Helper()

	loc, err := location.New(rawURL)
	require.NoError(t, err)

	clock := debounce.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	form := filter.New(loc, filter.WithClock(clock))
	t.Cleanup(form.Close)

	return form, loc, clock
}

func TestEncode_ClearingSearchTermPreservesOtherParams(t *testing.T) {
	base, err := url.ParseQuery("q=desk&sort=rating-desc")
	require.NoError(t, err)

	values := filter.Encode(filter.Draft{SearchTerm: "", Sort: product.SortRatingDesc}, base)

	assert.Equal(t, "sort=rating-desc", values.Encode())
	assert.Equal(t, "desk", base.Get("q"), "입력 값은 변경하지 않습니다")
}

func TestEncode_PreservesUnrelatedParams(t *testing.T) {
	base := url.Values{"utm_source": {"mail"}, "sort": {"rating-desc"}}

	values := filter.Encode(filter.Draft{SearchTerm: "  lamp  "}, base)

	assert.Equal(t, "lamp", values.Get("q"), "검색어의 앞뒤 공백은 제거됩니다")
	assert.Equal(t, "mail", values.Get("utm_source"))
	assert.False(t, values.Has("sort"), "평점순이 아니면 sort를 제거합니다")

	values = filter.Encode(filter.Draft{SearchTerm: "   "}, url.Values{"q": {"desk"}})
	assert.False(t, values.Has("q"), "공백뿐인 검색어는 지운 것으로 취급합니다")
}

func TestDraft_RoundTrip(t *testing.T) {
	drafts := []filter.Draft{
		{SearchTerm: "desk & chair", Sort: product.SortRatingDesc},
		{SearchTerm: "100% cotton / 50+ items?", Sort: product.SortNone},
		{SearchTerm: "책상 의자", Sort: product.SortRatingDesc},
		{SearchTerm: "", Sort: product.SortNone},
	}

	for _, d := range drafts {
		t.Run(d.SearchTerm, func(t *testing.T) {
			u := url.URL{Path: "/product-list", RawQuery: filter.Encode(d, nil).Encode()}

			parsed, err := url.Parse(u.String())
			require.NoError(t, err)

			assert.Equal(t, d, filter.Decode(parsed.Query()))
		})
	}
}

func TestForm_InitialDraftFromURL(t *testing.T) {
	form, _, _ := newForm(t, "/product-list?q=desk&sort=rating-desc")

	d := form.Draft()
	assert.Equal(t, "desk", d.SearchTerm)
	assert.True(t, d.SortByRating())
	assert.Equal(t, product.QueryKey{SearchTerm: "desk", Sort: product.SortRatingDesc}, d.Key())
	assert.Equal(t, debounce.DefaultDelay, form.Delay())
}

func TestForm_DebouncedEditsWriteOnlyTheLastDraft(t *testing.T) {
	form, loc, clock := newForm(t, "/product-list?page=2")

	var writes []string
	loc.Subscribe(func(c location.Change) { writes = append(writes, c.URL.RawQuery) })

	form.SetSearchTerm("d")
	clock.Advance(100 * time.Millisecond)
	form.SetSearchTerm("de")
	clock.Advance(100 * time.Millisecond)
	form.SetSearchTerm("desk")

	// Draft는 즉시 반영되지만 URL은 아직 그대로입니다.
	assert.Equal(t, "desk", form.Draft().SearchTerm)
	assert.Equal(t, "", loc.Query().Get("q"))
	assert.True(t, form.Pending())

	clock.Advance(499 * time.Millisecond)
	assert.Empty(t, writes)

	clock.Advance(time.Millisecond)
	require.Len(t, writes, 1)
	assert.Equal(t, "desk", loc.Query().Get("q"))
	assert.Equal(t, "2", loc.Query().Get("page"))
	assert.False(t, loc.CanGoBack(), "디바운스된 기록은 현재 항목을 교체합니다")

	form.SetSortByRating(true)
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, "rating-desc", loc.Query().Get("sort"))
	assert.Len(t, writes, 2)
}

func TestForm_SubmitBypassesDebounce(t *testing.T) {
	form, loc, clock := newForm(t, "/product-list")

	form.SetSearchTerm("chair")
	assert.True(t, form.Submit())

	assert.Equal(t, "chair", loc.Query().Get("q"))
	assert.False(t, form.Pending(), "즉시 기록하면 예약이 취소됩니다")
	assert.True(t, loc.CanGoBack())

	clock.Advance(time.Second)
	assert.Equal(t, 0, clock.Pending())
	assert.True(t, loc.CanGoBack())
	assert.True(t, loc.Back())
	assert.False(t, loc.CanGoBack())
}

func TestForm_ClearingSearchTermRemovesQ(t *testing.T) {
	form, loc, clock := newForm(t, "/product-list?q=desk&sort=rating-desc")

	form.SetSearchTerm("")
	clock.Advance(500 * time.Millisecond)

	assert.Equal(t, "sort=rating-desc", loc.Current().RawQuery)
}

func TestForm_ResyncsOnExternalNavigation(t *testing.T) {
	form, loc, clock := newForm(t, "/product-list?q=desk")

	_, err := loc.Navigate("/product-list?q=lamp&sort=rating-desc")
	require.NoError(t, err)
	assert.Equal(t, filter.Draft{SearchTerm: "lamp", Sort: product.SortRatingDesc}, form.Draft())

	// 입력 중에 뒤로 가면 예약된 기록은 취소되고 Draft는 URL을 따릅니다.
	form.SetSearchTerm("lamps")
	require.True(t, loc.Back())
	assert.False(t, form.Pending())
	assert.Equal(t, filter.Draft{SearchTerm: "desk"}, form.Draft())

	clock.Advance(time.Second)
	assert.Equal(t, "desk", loc.Query().Get("q"))
}

// 폼이 URL을 기록하는 도중에 다른 쪽에서 뒤로 가기가 일어나도 Draft는 이동한 URL을 따라야 합니다.
func TestForm_ResyncsOnNavigationDuringOwnWrite(t *testing.T) {
	form, loc, clock := newForm(t, "/product-list")

	navigated := false
	unsubscribe := loc.Subscribe(func(c location.Change) {
		if navigated || c.Kind != location.Push {
			return
		}
		navigated = true

		form.SetSearchTerm("typing")
		require.True(t, loc.Back())
	})
	defer unsubscribe()

	form.SetSearchTerm("phone")
	require.True(t, form.Submit())

	assert.True(t, navigated)
	assert.Equal(t, "/product-list", loc.Current().String())
	assert.Equal(t, filter.Draft{}, form.Draft())
	assert.False(t, form.Pending(), "이동이 반영되면 예약된 기록은 취소됩니다")

	clock.Advance(time.Second)
	assert.Equal(t, "", loc.Query().Get("q"))
	assert.True(t, loc.CanGoForward())
}

func TestForm_CloseDropsPendingWrite(t *testing.T) {
	loc, err := location.New("/product-list")
	require.NoError(t, err)

	clock := debounce.NewFakeClock(time.Now())
	form := filter.New(loc, filter.WithClock(clock), filter.WithDelay(300*time.Millisecond))
	assert.Equal(t, 300*time.Millisecond, form.Delay())

	form.SetSearchTerm("desk")
	form.Close()
	clock.Advance(time.Second)

	assert.Equal(t, "", loc.Query().Get("q"))
}
