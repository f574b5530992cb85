package log

// silentFormatter logrus 기본 출력 경로의 포맷팅을 생략합니다. 실제 포맷팅은 hook에서 수행합니다.
type silentFormatter struct{}

func (f *silentFormatter) Format(_ *Entry) ([]byte, error) {
	return nil, nil
}
