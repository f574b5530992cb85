package fetcher

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

const (
	// defaultMaxBytes 응답 본문의 기본 크기 제한 (10MB)
	defaultMaxBytes = 10 * 1024 * 1024

	// NoLimit 응답 본문 크기를 제한하지 않습니다.
	NoLimit = -1
)

// MaxBytesFetcher 응답 본문 크기를 제한하는 미들웨어입니다.
// Content-Length로 먼저 차단하고, 헤더가 없거나 조작된 경우에도 실제 읽기 시점에서 다시 제한합니다.
type MaxBytesFetcher struct {
	delegate Fetcher
	limit    int64
}

// NewMaxBytesFetcher limit이 NoLimit이면 delegate를 그대로 반환하고, 0 이하이면 기본값을 사용합니다.
func NewMaxBytesFetcher(delegate Fetcher, limit int64) Fetcher {
	if limit == NoLimit {
		return delegate
	}
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	return &MaxBytesFetcher{delegate: delegate, limit: limit}
}

func (f *MaxBytesFetcher) Do(req *http.Request) (*http.Response, error) {
	resp, err := f.delegate.Do(req)
	if err != nil {
		if resp != nil {
			drainAndCloseBody(resp.Body)
		}
		return nil, err
	}

	if resp.ContentLength > f.limit {
		drainAndCloseBody(resp.Body)
		return nil, newErrBodyTooLarge(f.limit)
	}

	resp.Body = &maxBytesReader{rc: http.MaxBytesReader(nil, resp.Body, f.limit), limit: f.limit}

	return resp, nil
}

type maxBytesReader struct {
	rc    io.ReadCloser
	limit int64
}

func (r *maxBytesReader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return n, newErrBodyTooLarge(r.limit)
		}
	}
	return n, err
}

func (r *maxBytesReader) Close() error {
	return r.rc.Close()
}

func newErrBodyTooLarge(limit int64) error {
	return apperrors.New(apperrors.ExecutionFailed, fmt.Sprintf("응답 본문의 크기가 허용 한도(%d bytes)를 초과했습니다", limit))
}
