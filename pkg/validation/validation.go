// Package validation 설정 파일과 API 입력값의 형식을 검증하는 함수들을 제공합니다.
//
// 모든 함수는 유효하지 않은 입력에 대해 원인을 설명하는 error를 반환하며, 동시에 호출해도 안전합니다.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/darkkaiser/catalog-browser/pkg/cronx"
)

// ValidateCronSpec 주기 작업(세션 정리 등)의 스케줄 표현식을 검증합니다.
// 예: "0 */1 * * * *", "@every 1m"
func ValidateCronSpec(spec string) error {
	_, err := cronx.Parse(spec)
	return err
}

// ValidatePort 포트 번호가 유효한 범위(1-65535) 내에 있는지 검증합니다.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("유효한 포트 범위(1-65535)가 아닙니다 (port=%d)", port)
	}
	return nil
}

// ValidateBaseURL 외부 API의 기준 URL이 http(s) 절대 URL인지 검증합니다.
// 쿼리 스트링과 프래그먼트는 허용하지 않습니다.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("URL 파싱 실패 (input=%q): %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL 스키마는 'http' 또는 'https'여야 합니다 (input=%q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL에 호스트가 누락되었습니다 (input=%q)", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("기준 URL에는 쿼리나 프래그먼트를 포함할 수 없습니다 (input=%q)", raw)
	}
	return ValidateHostname(u.Hostname())
}
