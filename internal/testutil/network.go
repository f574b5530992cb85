// Package testutil 서버를 실제 포트로 띄우는 테스트에서 쓰는 도우미입니다.
package testutil

import (
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"
)

// FreePort 사용 가능한 임의의 로컬 포트를 반환합니다.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("사용 가능한 포트를 찾지 못했습니다: %v", err)
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port
}

// WaitForHTTP 서버가 port에서 HTTP 요청에 응답할 때까지 기다립니다.
// 응답 코드는 확인하지 않으며 timeout 안에 응답이 없으면 테스트를 실패시킵니다.
func WaitForHTTP(t testing.TB, port int, path string, timeout time.Duration) {
	t.Helper()

	client := &http.Client{Timeout: 200 * time.Millisecond}
	url := "http://127.0.0.1:" + strconv.Itoa(port) + path

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("%v 동안 서버가 응답하지 않았습니다 (port=%d)", timeout, port)
}
