// internal/app/features/uploads/handler.go
package uploads

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/media"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// DefaultMaxBytes bounds one upload when no limit is configured.
const DefaultMaxBytes int64 = 50 << 20

// multipart overhead allowed on top of the file itself
const formSlack = 1 << 20

// LinkTTL is how long a link from GET /api/media/link stays valid.
const LinkTTL = 15 * time.Minute

type Handler struct {
	Store    storage.Store
	MaxBytes int64
	Log      *zap.Logger
}

func NewHandler(store storage.Store, maxBytes int64, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{Store: store, MaxBytes: maxBytes, Log: logger}
}

// Upload handles POST /api/media (multipart field "file").
//
//	{ "success": true, "media": { "url": "…", "path": "…", "type": "image", "thumbnail_url": "…", "size": 1234 } }
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+formSlack)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonutil.Error(w, h.Log, apperr.Validationf("file exceeds %d bytes", h.MaxBytes))
			return
		}
		jsonutil.Error(w, h.Log, apperr.Validationf("expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil || header == nil || header.Size == 0 {
		jsonutil.Error(w, h.Log, apperr.Validationf("file is required"))
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		jsonutil.Error(w, h.Log, apperr.Validationf("file exceeds %d bytes", h.MaxBytes))
		return
	}

	contentType := detectContentType(file, header)
	if media.KindOf(contentType) == "" {
		jsonutil.Error(w, h.Log, apperr.Validationf("only image and video files are accepted"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "uploads.Upload")
	defer cancel()

	up, err := media.Save(ctx, h.Store, header.Filename, file, header.Size, contentType)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "store upload", err))
		return
	}
	h.Log.Info("media uploaded",
		zap.String("user_id", caller.ID),
		zap.String("path", up.Path),
		zap.String("content_type", contentType),
		zap.Int64("size", up.Size))
	jsonutil.Created(w, map[string]any{"media": up})
}

// Link handles GET /api/media/link?path=media/... and returns a time-limited
// URL for a stored object (presigned on S3, the public URL on local disk).
//
//	{ "success": true, "url": "…", "expires_in": 900 }
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	objectPath := storage.NormalizePath(query.Get(r, "path"))
	if !strings.HasPrefix(objectPath, "media/") || storage.ValidatePath(objectPath) != nil {
		jsonutil.Error(w, h.Log, apperr.Validationf("path must name a stored media object"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "uploads.Link")
	defer cancel()

	ok, err := h.Store.Exists(ctx, objectPath)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "check media", err))
		return
	}
	if !ok {
		jsonutil.Error(w, h.Log, apperr.New(apperr.NotFound, "media not found"))
		return
	}

	u, err := media.SignedURL(ctx, h.Store, objectPath, LinkTTL)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "sign media url", err))
		return
	}
	jsonutil.OK(w, map[string]any{"url": u, "expires_in": int(LinkTTL.Seconds())})
}

// detectContentType sniffs the file's first 512 bytes and falls back to the
// file extension when sniffing is inconclusive (some video containers).
func detectContentType(file multipart.File, header *multipart.FileHeader) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	_, _ = file.Seek(0, io.SeekStart)

	sniffed := storage.DetectContentType("", buf[:n])
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	return storage.DetectContentType(header.Filename, nil)
}
