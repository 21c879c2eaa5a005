// Package storage uploads resume attachments and returns a stable URL for them.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlobStore uploads an object under key and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey returns a collision-resistant key for an uploaded resume, e.g.
// "resumes/2026/10/3f1c...-9a.pdf". Only the extension of fileName is kept.
func ObjectKey(fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) > 6 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join("resumes", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.New().String()+ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
