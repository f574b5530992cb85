package viewmode

import (
	"encoding/json"
	"time"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
)

// Mode 상품 목록 표시 방식
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeList Mode = "list"
)

// ParseMode "grid" 또는 "list"만 허용합니다.
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case ModeGrid, ModeList:
		return Mode(v), nil
	default:
		return "", apperrors.Newf(apperrors.InvalidInput, "지원하지 않는 보기 방식입니다: %q (grid, list 중 하나)", v)
	}
}

// Preference 저장되는 보기 방식 선호. ExpiresAt이 nil이면 아직 무작위 배정이 이루어지지 않은 상태입니다.
type Preference struct {
	Mode      Mode
	ExpiresAt *time.Time
}

// DefaultPreference 처음 생성될 때의 값 (grid, 만료 없음)
func DefaultPreference() Preference {
	return Preference{Mode: ModeGrid}
}

// Expired now 기준으로 다시 배정해야 하는지 여부
func (p Preference) Expired(now time.Time) bool {
	return p.ExpiresAt == nil || now.After(*p.ExpiresAt)
}

// persisted {"mode":"grid","expiresAt":<unix ms>|null}
type persisted struct {
	Mode      Mode   `json:"mode"`
	ExpiresAt *int64 `json:"expiresAt"`
}

func (p Preference) MarshalJSON() ([]byte, error) {
	v := persisted{Mode: p.Mode}
	if p.ExpiresAt != nil {
		ms := p.ExpiresAt.UnixMilli()
		v.ExpiresAt = &ms
	}
	return json.Marshal(v)
}

func (p *Preference) UnmarshalJSON(data []byte) error {
	var v persisted
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	mode, err := ParseMode(string(v.Mode))
	if err != nil {
		return err
	}

	p.Mode = mode
	p.ExpiresAt = nil
	if v.ExpiresAt != nil {
		t := time.UnixMilli(*v.ExpiresAt)
		p.ExpiresAt = &t
	}
	return nil
}
