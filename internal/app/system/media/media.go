// Package media stores uploaded images and videos as opaque objects and
// builds their public URLs. Files are never decoded or resized here; size
// variants are requested from the CDN through URL parameters (TransformURL).
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// Objects are written once under a unique name, so clients may cache them.
const cacheControl = "public, max-age=31536000, immutable"

// Kinds of media accepted for posts, stories, and messages.
const (
	KindImage = "image"
	KindVideo = "video"
)

// KindOf classifies a MIME type as image or video. Anything else returns "".
func KindOf(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	default:
		return ""
	}
}

// Upload is the result of storing one file.
type Upload struct {
	URL          string `json:"url"`
	Path         string `json:"path"`
	Kind         string `json:"type"`
	ThumbnailURL string `json:"thumbnail_url"`
	Size         int64  `json:"size"`
}

// Thumbnail is the transform used for Upload.ThumbnailURL.
var Thumbnail = Transform{Width: 400, Format: "webp"}

// Save stores r under media/YYYY/MM/<id>-<name> and returns its URLs.
func Save(ctx context.Context, store storage.Store, filename string, r io.Reader, size int64, contentType string) (Upload, error) {
	now := time.Now().UTC()
	objectPath := path.Join(
		fmt.Sprintf("media/%04d/%02d", now.Year(), now.Month()),
		uuid.New().String()[:8]+"-"+SanitizeFilename(filename),
	)

	opts := &storage.PutOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	if err := store.Put(ctx, objectPath, r, opts); err != nil {
		return Upload{}, fmt.Errorf("store media: %w", err)
	}
	url := store.URL(objectPath)
	return Upload{
		URL:          url,
		Path:         objectPath,
		Kind:         KindOf(contentType),
		ThumbnailURL: TransformURL(url, Thumbnail),
		Size:         size,
	}, nil
}

// SignedURL returns a time-limited URL for a stored object. Backends without
// presigning (local disk) return their public URL.
func SignedURL(ctx context.Context, store storage.Store, objectPath string, expires time.Duration) (string, error) {
	u, err := store.PresignedURL(ctx, objectPath, &storage.PresignOptions{Expires: expires})
	if errors.Is(err, storage.ErrPresignNotSupported) {
		return store.URL(objectPath), nil
	}
	return u, err
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_'. Runs of dots collapse to one so the name never
// reads as a parent reference. Long names are truncated keeping the extension.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == ".." {
		return "file"
	}

	out := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		switch {
		case c == '.' && len(out) > 0 && out[len(out)-1] == '.':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 100 {
		ext := filepath.Ext(string(out))
		if len(ext) > 0 && len(ext) < 10 {
			out = append(out[:100-len(ext)], ext...)
		} else {
			out = out[:100]
		}
	}
	return string(out)
}

// Config selects and configures the storage backend.
type Config struct {
	Type      string // "local" or "s3"
	LocalPath string
	LocalURL  string
	S3Region  string
	S3Bucket  string
	S3Prefix  string
	PublicURL string // CDN origin for S3 objects; blank uses the bucket URL
}

// Open builds the configured backend. S3 credentials come from the default
// AWS chain (env, shared config, instance role).
func Open(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case "", "local":
		return storage.NewLocal(storage.LocalConfig{
			BasePath: cfg.LocalPath,
			BaseURL:  cfg.LocalURL,
		})
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Region:  cfg.S3Region,
			Bucket:  cfg.S3Bucket,
			Prefix:  cfg.S3Prefix,
			BaseURL: strings.TrimRight(cfg.PublicURL, "/"),
		})
	default:
		return nil, fmt.Errorf("media: unknown backend %q", cfg.Type)
	}
}
