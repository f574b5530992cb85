// Package log 애플리케이션 전역에서 사용하는 구조화 로깅 헬퍼를 제공합니다.
//
// 내부적으로 logrus 표준 로거를 사용하며, 모든 로그에 component 필드를 일관되게 부여하여
// 어떤 계층(예: catalog.query, catalog.scroll, api.service)에서 발생한 로그인지 식별할 수 있게 합니다.
package log

import (
	"github.com/sirupsen/logrus"
)

// WithComponent component 필드를 포함한 로그 Entry를 반환합니다.
func WithComponent(component string) *Entry {
	return logrus.WithField("component", component)
}

// WithComponentAndFields component 필드와 추가 필드를 포함한 로그 Entry를 반환합니다.
func WithComponentAndFields(component string, fields Fields) *Entry {
	newFields := make(Fields, len(fields)+1)
	for k, v := range fields {
		newFields[k] = v
	}
	newFields["component"] = component
	return logrus.WithFields(newFields)
}

// StandardLogger logrus 표준 로거를 반환합니다.
// Echo 로거 어댑터처럼 *Logger 자체가 필요한 곳에서 사용합니다.
func StandardLogger() *Logger {
	return logrus.StandardLogger()
}

// SetDebugMode 디버그 모드 여부에 따라 로그 레벨을 조정합니다.
//   - Debug 모드: Trace 레벨 (모든 로그 출력)
//   - 운영 모드: Info 레벨
func SetDebugMode(debug bool) {
	if debug {
		logrus.SetLevel(TraceLevel)
	} else {
		logrus.SetLevel(InfoLevel)
	}
}

// MaskSensitiveData 저장소 비밀번호 등 민감 정보를 로그에 남기기 전에 마스킹합니다.
func MaskSensitiveData(data string) string {
	switch {
	case data == "":
		return ""
	case len(data) <= 3:
		return "***"
	case len(data) <= 12:
		return data[:4] + "***"
	default:
		return data[:4] + "***" + data[len(data)-4:]
	}
}
