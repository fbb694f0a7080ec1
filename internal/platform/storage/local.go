package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// LocalStore stores artifacts on the local filesystem under a single root.
// 一時ファイルと最終ファイルは同じルート配下にあるため、os.Renameが原子的に動作します。
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore はルートと一時ディレクトリを作成してLocalStoreを返します。
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage root is empty")
	}
	if err := os.MkdirAll(filepath.Join(root, tempPrefix), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// resolve はキーをルート配下のファイルパスに変換します。ルート外を指すキーは拒否します。
func (s *LocalStore) resolve(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, rel), nil
}

func (s *LocalStore) WriteTemp(_ context.Context, r io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, tempPrefix), "upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(name)
		return "", 0, fmt.Errorf("failed to write temp file: %w", err)
	}

	return path.Join(tempPrefix, filepath.Base(name)), n, nil
}

func (s *LocalStore) Promote(_ context.Context, tempKey, finalKey string) error {
	src, err := s.resolve(tempKey)
	if err != nil {
		return err
	}
	dst, err := s.resolve(finalKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("failed to create destination dir: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to promote %s: %w", tempKey, err)
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return true, nil
}
