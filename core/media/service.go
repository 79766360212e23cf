package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/trezcool/sanaa/core"
)

const (
	MaxUploadSize = 5 << 20 // 5 MiB
	KeyPrefix     = "uploads/"

	sniffLen = 512
)

var (
	// errors
	ErrNoFile     = core.NewValidationError(nil, core.FieldError{Field: "image", Error: "no file uploaded"})
	ErrNotAnImage = core.NewValidationError(nil, core.FieldError{Field: "image", Error: "only image files are allowed"})
	ErrTooLarge   = core.NewValidationError(nil, core.FieldError{Field: "image", Error: fmt.Sprintf("file too large, max %d MB", MaxUploadSize>>20)})
	ErrInvalidURL = core.NewValidationError(nil, core.FieldError{Field: "url", Error: "not an uploaded image URL"})

	tracer = otel.Tracer("github.com/trezcool/sanaa/core/media")
)

type (
	File struct {
		Name        string
		ContentType string
		Size        int64 // as announced by the client, -1 if unknown
		Content     io.Reader
	}

	Upload struct {
		URL       string `json:"url"`
		Key       string `json:"key"`
		Remaining int    `json:"remaining"`
	}

	Service interface {
		// Upload stores an image and consumes one call of the user's quota.
		Upload(ctx context.Context, userID string, f File) (Upload, error)
		// Delete removes an uploaded image, consumes one call of the user's quota and returns the calls left.
		Delete(ctx context.Context, userID, url string) (int, error)
		Usage(ctx context.Context, userID string) (core.RateLimitUsage, error)
	}

	service struct {
		blob    core.BlobStorage
		limiter core.RateLimiter
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(blob core.BlobStorage, limiter core.RateLimiter) Service {
	return &service{blob: blob, limiter: limiter}
}

func (svc *service) Upload(ctx context.Context, userID string, f File) (Upload, error) {
	ctx, span := tracer.Start(ctx, "media.Upload")
	defer span.End()

	if f.Content == nil || f.Size == 0 {
		return Upload{}, ErrNoFile
	}
	if f.Size > MaxUploadSize {
		return Upload{}, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, MaxUploadSize+1))
	if err != nil {
		return Upload{}, errors.Wrap(err, "reading upload")
	}
	if len(data) == 0 {
		return Upload{}, ErrNoFile
	}
	if len(data) > MaxUploadSize {
		return Upload{}, ErrTooLarge
	}

	contentType, ok := imageContentType(f.ContentType, data)
	if !ok {
		return Upload{}, ErrNotAnImage
	}

	// invalid files do not consume the quota
	usage, err := svc.limiter.Allow(ctx, userID)
	if err != nil {
		return Upload{}, err
	}

	key := fmt.Sprintf("%s%s-%d%s", KeyPrefix, uuid.NewString(), core.NowFunc().UnixMilli(), extension(f.Name, contentType))
	url, err := svc.blob.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return Upload{}, errors.Wrap(err, "storing image")
	}
	return Upload{URL: url, Key: key, Remaining: usage.Remaining}, nil
}

func (svc *service) Delete(ctx context.Context, userID, url string) (int, error) {
	ctx, span := tracer.Start(ctx, "media.Delete")
	defer span.End()

	key, err := svc.blob.KeyFromURL(url)
	if err != nil || !strings.HasPrefix(key, KeyPrefix) || strings.Contains(key, "..") {
		return 0, ErrInvalidURL
	}

	usage, err := svc.limiter.Allow(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err = svc.blob.Delete(ctx, key); err != nil {
		return 0, errors.Wrap(err, "deleting image")
	}
	return usage.Remaining, nil
}

func (svc *service) Usage(ctx context.Context, userID string) (core.RateLimitUsage, error) {
	return svc.limiter.Usage(ctx, userID)
}

// imageContentType returns the sniffed content type when both it and the declared one are images.
func imageContentType(declared string, data []byte) (string, bool) {
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err != nil || !strings.HasPrefix(mt, "image/") {
			return "", false
		}
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	sniffed := http.DetectContentType(head)
	if !strings.HasPrefix(sniffed, "image/") {
		return "", false
	}
	return sniffed, true
}

func extension(name, contentType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" && mime.TypeByExtension(ext) != "" && strings.HasPrefix(mime.TypeByExtension(ext), "image/") {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
