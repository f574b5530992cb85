package system

// DependencyStatus 외부 의존성의 상태
type DependencyStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// HealthResponse 헬스 체크 응답
type HealthResponse struct {
	Status string `json:"status"`

	// Uptime 서버 가동 시간(초)
	Uptime int64 `json:"uptime"`

	ActiveSessions int `json:"active_sessions"`

	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}
