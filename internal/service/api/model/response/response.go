package response

// ErrorResponse 에러 응답
type ErrorResponse struct {
	// ResultCode HTTP 상태 코드
	ResultCode int `json:"result_code"`

	Message string `json:"message"`

	// Hint 사용자가 취할 수 있는 조치 (예: 새로고침)
	Hint string `json:"hint,omitempty"`
}

// SuccessResponse 본문이 필요 없는 성공 응답
type SuccessResponse struct {
	ResultCode int    `json:"result_code"`
	Message    string `json:"message"`
}
