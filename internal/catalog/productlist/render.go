package productlist

import (
	"github.com/darkkaiser/catalog-browser/internal/catalog/product"
	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
)

// View 현재 상태로 화면을 선택합니다. 우선순위는 에러 → 스켈레톤 → 결과 없음 → 상품 목록입니다.
func (o *Orchestrator) View() View {
	mode := viewmode.ModeGrid
	if o.viewModes != nil {
		mode = o.viewModes.Mode()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	snap := o.query.Snapshot()
	if snap.Key != o.key {
		snap.Pages = nil
		snap.HasNextPage = false
		snap.Error = nil
	}

	v := View{
		State:        o.state.String(),
		Revision:     o.revision.Load(),
		SearchTerm:   o.key.SearchTerm,
		SortByRating: o.key.Sort == product.SortRatingDesc,
		ViewMode:     mode,
		Online:       o.online,
		Sentinel:     o.sentinel,
		RootMargin:   o.trigger.RootMargin(),
	}
	if !o.online {
		v.OfflineNotice = textOffline
	}

	switch o.state {
	case StateErrored:
		v.Kind = RenderError
		v.Error = newErrorView(snap.Error)
		if v.Error == nil {
			v.Error = newErrorView(errUnknown)
		}
		v.Header.Loading = false

	case StateIdle, StateLoading:
		v.Kind = RenderSkeleton
		v.SkeletonCount = o.query.PageSize()
		v.Header.Loading = true

	case StateEmpty:
		v.Kind = RenderNoResults
		v.NoResults = &NoResultsView{Title: textNoResults, Message: textNoResultsTip}

	default:
		v.Kind = RenderItems
		v.Items = snap.Items()
		v.NextPageError = newErrorView(o.nextErr)
		if o.state == StateFetchingMore {
			v.FetchingMore = true
			v.FetchingMoreText = textFetchingMore
		}
		if o.state == StateExhausted {
			v.Exhausted = true
			v.ExhaustedText = textExhausted
		}
	}

	if !v.Header.Loading && v.Kind != RenderError {
		v.Header.TotalCount = snap.Total()
		if o.key.IsSearch() {
			v.Header.Query = o.key.SearchTerm
			v.Header.Text = headerText(o.key.SearchTerm, v.Header.TotalCount)
		} else {
			v.Header.Text = headerText("", v.Header.TotalCount)
		}
	}

	return v
}

type unknownError struct{}

func (unknownError) Error() string { return "unknown error" }

var errUnknown error = unknownError{}
