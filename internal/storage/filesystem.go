package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".json"

// FilesystemKV stores one file per key. Key segments separated by ":" become
// nested directories, so "forex:events:2025-08-11:original" lives at
// <root>/forex/events/2025-08-11/original.json.
type FilesystemKV struct {
	root      string
	writeLock sync.Mutex
}

// NewFilesystemKV creates a store rooted at dir.
func NewFilesystemKV(root string) (*FilesystemKV, error) {
	if root == "" {
		return nil, fmt.Errorf("store.filesystem.root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, unavailable("create root", err)
	}
	return &FilesystemKV{root: root}, nil
}

// Path returns the file backing key.
func (f *FilesystemKV) Path(key string) (string, error) {
	segments := strings.Split(key, ":")
	for _, s := range segments {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}
	segments[len(segments)-1] += fileExt
	return filepath.Join(append([]string{f.root}, segments...)...), nil
}

func (f *FilesystemKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := f.Path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, unavailable("read "+key, err)
	}
	return data, true, nil
}

// Set writes to a temp file in the target directory, then renames it over
// the destination.
func (f *FilesystemKV) Set(_ context.Context, key string, value []byte) error {
	path, err := f.Path(key)
	if err != nil {
		return err
	}

	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable("create dir", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return unavailable("create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return unavailable("write "+key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return unavailable("close "+key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return unavailable("rename "+key, err)
	}
	return nil
}

func (f *FilesystemKV) Delete(_ context.Context, keys ...string) (int, error) {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	deleted := 0
	for _, key := range keys {
		path, err := f.Path(key)
		if err != nil {
			return deleted, err
		}
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return deleted, unavailable("delete "+key, err)
		}
		deleted++
	}
	return deleted, nil
}

func (f *FilesystemKV) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != fileExt {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		key := strings.Join(strings.Split(strings.TrimSuffix(rel, fileExt), string(filepath.Separator)), ":")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("walk "+f.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FilesystemKV) Ping(context.Context) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return unavailable("stat root", err)
	}
	if !info.IsDir() {
		return unavailable("stat root", fmt.Errorf("%s is not a directory", f.root))
	}
	return nil
}

func (f *FilesystemKV) Close() error { return nil }

var _ KV = (*FilesystemKV)(nil)
