package viewmode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/darkkaiser/catalog-browser/internal/pkg/errors"
	"github.com/darkkaiser/catalog-browser/pkg/concurrency"
)

// FileStorage 키마다 하나의 JSON 파일로 보관합니다.
//
// 파일 이름은 키의 SHA-256 해시이므로 세션 ID에 어떤 문자가 들어 있어도 디렉터리를 벗어나지 않습니다.
// 쓰기는 임시 파일에 기록한 뒤 rename하여, 중간에 중단되어도 이전 값이나 새 값 중 하나만 남습니다.
type FileStorage struct {
	dir   string
	locks *concurrency.KeyedMutex
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage dir이 없으면 생성합니다.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.System, "보기 방식 저장 디렉터리(%s)를 만들지 못했습니다", dir)
	}
	return &FileStorage{dir: dir, locks: concurrency.NewKeyedMutex()}, nil
}

func (f *FileStorage) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".json")
}

func (f *FileStorage) Load(_ context.Context, key string) ([]byte, bool, error) {
	unlock := f.locks.Lock(key)
	defer unlock()

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (f *FileStorage) Save(_ context.Context, key string, data []byte) error {
	unlock := f.locks.Lock(key)
	defer unlock()

	target := f.path(key)

	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (f *FileStorage) Delete(_ context.Context, key string) error {
	unlock := f.locks.Lock(key)
	defer unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
