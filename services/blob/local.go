package blob

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
)

var errInvalidKey = errors.New("invalid object key")

// LocalStorage keeps objects on the local filesystem. The API serves them under the public URL.
type LocalStorage struct {
	dir       string
	publicURL string
}

var _ core.BlobStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) (*LocalStorage, error) {
	return NewLocalStorageAt(conf.Storage.LocalDir, conf.Storage.PublicURL)
}

func NewLocalStorageAt(dir, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage directory")
	}
	return &LocalStorage{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir is the directory objects are stored in.
func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || path.Clean(key) != key || strings.HasPrefix(key, "/") || strings.HasPrefix(key, "..") {
		return "", errInvalidKey
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func (s *LocalStorage) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	fp, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating object directory")
	}

	// write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(fp), ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err = tmp.Close(); err != nil {
		return "", errors.Wrap(err, "writing object")
	}
	if err = os.Rename(tmp.Name(), fp); err != nil {
		return "", errors.Wrap(err, "moving object")
	}
	return s.publicURL + "/" + key, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing object")
	}
	return nil
}

func (s *LocalStorage) KeyFromURL(url string) (string, error) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", errInvalidKey
	}
	key := strings.TrimPrefix(url, prefix)
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return key, nil
}
