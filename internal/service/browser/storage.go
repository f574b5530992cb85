package browser

import (
	"context"
	"io"

	"github.com/darkkaiser/catalog-browser/internal/catalog/viewmode"
	"github.com/darkkaiser/catalog-browser/internal/config"
	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	applog "github.com/darkkaiser/catalog-browser/pkg/log"
)

// ViewModeBackend 설정으로 선택된 보기 방식 저장소와 그 연결 자원
type ViewModeBackend struct {
	Storage viewmode.Storage

	closer io.Closer
	ping   func(ctx context.Context) error
}

// Health 원격 저장소(Redis)의 연결 상태를 확인합니다. 로컬 저장소는 항상 nil을 반환합니다.
func (b *ViewModeBackend) Health(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close 연결 자원을 해제합니다.
func (b *ViewModeBackend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// NewViewModeBackend 설정에 따라 보기 방식 선호도 저장소를 생성합니다. 애플리케이션 종료 시 Close를 호출해야 합니다.
func NewViewModeBackend(ctx context.Context, cfg config.ViewModeConfig) (*ViewModeBackend, error) {
	switch cfg.Storage {
	case config.StorageMemory, "":
		return &ViewModeBackend{Storage: viewmode.NewMemoryStorage()}, nil

	case config.StorageFile:
		storage, err := viewmode.NewFileStorage(cfg.FileDir)
		if err != nil {
			return nil, err
		}
		return &ViewModeBackend{Storage: storage}, nil

	case config.StorageRedis:
		client, err := viewmode.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}

		// 만료 시각이 지난 값은 다음 세션에서 다시 추첨되므로 TTL의 두 배만 보관합니다.
		expiration := 2 * cfg.TTL

		applog.WithComponentAndFields(component, applog.Fields{
			"addr":       cfg.Redis.Addr,
			"db":         cfg.Redis.DB,
			"expiration": expiration.String(),
		}).Info("Redis 보기 방식 저장소에 연결했습니다")

		return &ViewModeBackend{
			Storage: viewmode.NewRedisStorage(client, cfg.Redis.KeyPrefix, expiration),
			closer:  client,
			ping: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
		}, nil

	default:
		return nil, apperrors.Newf(apperrors.InvalidInput, "지원하지 않는 보기 방식 저장소입니다 (storage=%s)", cfg.Storage)
	}
}
