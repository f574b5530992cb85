// Package middleware Echo 서버에 적용하는 공통 미들웨어(패닉 복구, 요청 로깅, 요청 속도 제한, Content-Type 검증)와
// Echo 내부 로그를 애플리케이션 로거로 보내는 어댑터를 제공합니다.
package middleware
