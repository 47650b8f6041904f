// Package objectkey names transient media objects and maps them to and from
// their public URLs. Both storage drivers share it.
package objectkey

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/google/uuid"
)

// New returns "<folder>/<YYYY>/<MM>/<uuid hex>.<ext>" for the given time in UTC.
func New(folder, ext string, at time.Time) string {
	at = at.UTC()
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	folder = strings.Trim(folder, "/")
	return fmt.Sprintf("%s/%04d/%02d/%s.%s", folder, at.Year(), int(at.Month()), id, ext)
}

func PublicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// FromURL extracts the object key from a public URL. URLs outside base
// fail with entity.ErrForeignURL.
func FromURL(base, url string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", entity.ErrForeignURL, url)
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", entity.ErrForeignURL, url)
	}
	return key, nil
}

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
}

func ContentType(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
