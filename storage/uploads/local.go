// Package uploads implements core.FileStore on the local filesystem.
// Stored files are served statically by the API under the uploads base URL.
package uploads

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
)

type localStore struct {
	dir     string
	baseURL string
}

var _ core.FileStore = (*localStore)(nil)

func NewLocalStore(conf *core.Config) (*localStore, error) {
	dir := conf.Uploads.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(conf.WorkDir, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &localStore{dir: dir, baseURL: conf.Uploads.BaseURL}, nil
}

func (s *localStore) Dir() string { return s.dir }

// Save writes the blob under a uuid-prefixed name and returns its serving path.
func (s *localStore) Save(filename string, r io.Reader) (string, error) {
	name := uuid.New().String() + "-" + sanitize(filename)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "writing upload file")
	}
	return path.Join(s.baseURL, name), nil
}

func sanitize(filename string) string {
	name := filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
