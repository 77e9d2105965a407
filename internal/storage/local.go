package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tenant-backup/internal/errors"
)

// LocalProvider stores archives on the local filesystem under a base
// directory
type LocalProvider struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalProvider creates a filesystem provider, creating the base
// directory if needed
func NewLocalProvider(config *LocalConfig) (*LocalProvider, error) {
	if config == nil || config.BasePath == "" {
		return nil, errors.NewStorageError("local storage requires a base path", nil)
	}

	permissions := config.Permissions
	if permissions == 0 {
		permissions = 0o750
	}

	if err := os.MkdirAll(config.BasePath, permissions); err != nil {
		return nil, errors.NewStorageError("failed to create storage directory", err)
	}

	return &LocalProvider{basePath: config.BasePath, permissions: permissions}, nil
}

func (p *LocalProvider) path(key string) string {
	return filepath.Join(p.basePath, filepath.FromSlash(key))
}

// Store writes one archive, creating parent directories as needed
func (p *LocalProvider) Store(ctx context.Context, key string, data []byte) error {
	target := p.path(key)
	if err := os.MkdirAll(filepath.Dir(target), p.permissions); err != nil {
		return errors.NewStorageError("failed to create archive directory", err)
	}
	if err := os.WriteFile(target, data, 0o640); err != nil {
		return errors.NewStorageError("failed to write archive", err)
	}
	return nil
}

// Retrieve reads one archive
func (p *LocalProvider) Retrieve(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(p.path(key))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("archive "+key+" does not exist", err)
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to read archive", err)
	}
	return data, nil
}

// Delete removes one archive
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(p.path(key))
	if os.IsNotExist(err) {
		return errors.NewNotFoundError("archive "+key+" does not exist", err)
	}
	if err != nil {
		return errors.NewStorageError("failed to delete archive", err)
	}
	return nil
}

// List walks the base directory and returns archives under the prefix,
// sorted by key
func (p *LocalProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	objects := make([]ObjectInfo, 0)

	err := filepath.Walk(p.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		relative, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(relative)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		objects = append(objects, ObjectInfo{
			Key:        key,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, errors.NewStorageError("failed to list archives", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}
