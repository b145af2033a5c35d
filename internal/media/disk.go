package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore хранит файлы в локальном каталоге.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore создаёт каталог dir при необходимости.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	const op = "media.NewDiskStore"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir возвращает каталог хранения.
func (d *DiskStore) Dir() string {
	return d.dir
}

// Put записывает body в файл key.
func (d *DiskStore) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	const op = "media.DiskStore.Put"

	name := filepath.Base(key)
	f, err := os.Create(filepath.Join(d.dir, name))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return d.baseURL + "/" + name, nil
}
