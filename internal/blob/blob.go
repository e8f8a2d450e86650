// Package blob stores uploaded image bytes and hands back the URL they are
// served from.
package blob

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store is where uploaded originals and rendered previews end up. Keys use
// forward slashes, e.g. "previews/<uuid>.jpg".
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Disk writes under Dir. The app serves Dir at /uploads, so the URL is
// BaseURL + "/uploads/" + key.
type Disk struct {
	Dir     string
	BaseURL string
}

func NewDisk(dir, baseURL string) *Disk {
	return &Disk{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (d *Disk) path(key string) string {
	return filepath.Join(d.Dir, filepath.FromSlash(path.Clean("/"+key)))
}

func (d *Disk) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	return d.BaseURL + "/uploads/" + strings.TrimPrefix(path.Clean("/"+key), "/"), nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
