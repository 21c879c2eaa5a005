package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// FSStore writes objects below Root on an afero filesystem and serves them from PublicBaseURL.
type FSStore struct {
	fs            afero.Fs
	root          string
	publicBaseURL string
}

// NewFSStore returns a store rooted at root on fs. publicBaseURL is the prefix clients use to fetch
// stored objects (for example the static route of the API).
func NewFSStore(fs afero.Fs, root, publicBaseURL string) *FSStore {
	return &FSStore{fs: fs, root: root, publicBaseURL: publicBaseURL}
}

// NewOSStore returns an FSStore on the real filesystem.
func NewOSStore(root, publicBaseURL string) *FSStore {
	return NewFSStore(afero.NewOsFs(), root, publicBaseURL)
}

// Upload writes data to root/key. Existing objects are never overwritten.
func (s *FSStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := s.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	f, err := s.fs.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(full)
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", key, err)
	}
	return joinURL(s.publicBaseURL, strings.TrimPrefix(clean, "/")), nil
}

// Fs exposes the underlying filesystem, for serving stored files.
func (s *FSStore) Fs() afero.Fs {
	return afero.NewBasePathFs(s.fs, s.root)
}

// PublicPath returns the URL path of the public base URL, e.g. "/files". Empty when objects are served
// from the root of another host.
func (s *FSStore) PublicPath() string {
	u, err := url.Parse(s.publicBaseURL)
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

// Handler serves stored objects by key relative to the store root. Directories are never listed.
func (s *FSStore) Handler() http.Handler {
	fsys := s.Fs()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := fsys.Open(path.Clean("/" + r.URL.Path))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	})
}
