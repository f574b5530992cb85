// Package fetcher 원격 상품 API 호출에 사용하는 HTTP 요청 미들웨어 체인을 제공합니다.
//
// 각 미들웨어는 Fetcher 인터페이스를 구현하고 다른 Fetcher를 감싸는 데코레이터 형태로 조합됩니다.
//
//	Logging → CircuitBreaker → Retry → StatusCode → MaxBytes → HTTP
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

// component 로깅용 컴포넌트 이름
const component = "catalog.fetcher"

// Fetcher HTTP 요청을 수행하는 인터페이스입니다.
//
// 성공 시 반환된 응답의 Body는 호출자가 닫아야 합니다.
// 에러를 반환하는 미들웨어는 응답 Body를 직접 정리하고 nil 응답을 반환합니다.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherFunc 일반 함수를 Fetcher로 사용할 수 있게 하는 어댑터입니다.
type FetcherFunc func(req *http.Request) (*http.Response, error)

func (f FetcherFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// FetchJSON GET 요청을 보내고 응답 본문(JSON)을 v로 디코딩합니다.
//
// 전송 단계의 에러는 체인이 돌려준 에러(예: *HTTPStatusError, 타임아웃)를 그대로 반환하여
// 호출자가 상태 코드나 원인별로 분류할 수 있게 합니다.
// 디코딩 실패는 apperrors.ParsingFailed로 반환합니다.
func FetchJSON(ctx context.Context, f Fetcher, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.Internal, fmt.Sprintf("JSON 요청 생성에 실패했습니다. (URL: %s)", url))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.ParsingFailed, fmt.Sprintf("응답 데이터(%s)의 JSON 변환이 실패하였습니다.", url))
	}

	return nil
}

// maxDrainBytes 커넥션 재사용을 위해 응답 Body를 비울 때 읽는 최대 바이트 수
const maxDrainBytes = 64 * 1024

var drainBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 32*1024)
		return &b
	},
}

// drainAndCloseBody Keep-Alive 커넥션이 풀로 돌아갈 수 있도록 Body를 일정량 읽어 버린 뒤 닫습니다.
// maxDrainBytes를 넘는 응답의 커넥션은 재사용되지 않습니다.
func drainAndCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	defer body.Close()

	bufPtr := drainBufPool.Get().(*[]byte)
	defer drainBufPool.Put(bufPtr)

	_, _ = io.CopyBuffer(io.Discard, io.LimitReader(body, maxDrainBytes), *bufPtr)
}
