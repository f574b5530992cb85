// Package service 애플리케이션을 구성하는 장기 실행 서비스의 공통 계약을 정의합니다.
package service

import (
	"context"
	"sync"
)

// Service main이 시작하고 종료를 기다리는 서비스입니다.
//
// Start는 즉시 반환해야 하며, serviceStopCtx가 취소되면 정리를 마친 뒤 serviceStopWG.Done()을 호출합니다.
// 시작에 실패해 에러를 반환하는 경우에도 Done()은 호출되어야 합니다.
type Service interface {
	Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error
}
