// Package cronx 주기 작업(세션 정리, 캐시 만료 등)에서 공통으로 사용하는 스케줄 표현식 파서를 제공합니다.
package cronx

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// StandardParser 초 단위를 포함한 6필드 형식과 @every, @daily 같은 디스크립터를 해석하는 파서를 반환합니다.
func StandardParser() cron.Parser {
	return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Parse 표현식의 앞뒤 공백을 제거한 뒤 StandardParser로 해석합니다.
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("스케줄 표현식은 비어있을 수 없습니다")
	}

	schedule, err := StandardParser().Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("잘못된 스케줄 표현식입니다 (spec=%q): %w", spec, err)
	}
	return schedule, nil
}
