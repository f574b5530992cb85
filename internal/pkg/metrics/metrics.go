// Package metrics 카탈로그 브라우저의 Prometheus 수집기를 정의합니다.
//
// 모든 수집기는 기본 레지스트리에 등록되며 /metrics 엔드포인트로 노출됩니다.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

const namespace = "catalog_browser"

var (
	// PageFetches 상품 페이지 요청 결과 (kind: first|next, result: success|empty|error|stale)
	PageFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Total number of product page fetches by kind and result",
		},
		[]string{"kind", "result"},
	)

	// PageFetchDuration 상품 페이지 요청 소요 시간
	PageFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Duration of product page fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// ScrollTriggerFires 스크롤 트리거가 다음 페이지 로드를 요청한 횟수
	ScrollTriggerFires = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scroll_trigger_fires_total",
			Help:      "Total number of load-more callbacks fired by the scroll trigger",
		},
	)

	// CircuitBreakerState 원격 API 서킷 브레이커 상태 (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// ActiveSessions 현재 유지 중인 브라우저 세션 수
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live browser sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(PageFetches, PageFetchDuration, ScrollTriggerFires, CircuitBreakerState, ActiveSessions)
}

// BreakerStateValue gobreaker 상태를 게이지 값으로 변환합니다.
func BreakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
