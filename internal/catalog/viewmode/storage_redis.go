package viewmode

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage Redis 문자열 키로 보관합니다. 여러 인스턴스가 같은 선호 값을 공유할 때 사용합니다.
type RedisStorage struct {
	client *redis.Client
	prefix string

	// expiration 키 자체의 만료 시간. 0이면 만료시키지 않습니다.
	expiration time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage prefix는 모든 키 앞에 붙습니다 (예: "catalog-browser:").
func NewRedisStorage(client *redis.Client, prefix string, expiration time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix, expiration: expiration}
}

// NewRedisClient 연결을 확인한 Redis 클라이언트를 생성합니다.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, r.prefix+key, data, r.expiration).Err()
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
