package blob

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"

	"github.com/trezcool/sanaa/core"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStorage keeps objects in a publicly readable Google Cloud Storage bucket.
type GCSStorage struct {
	objects   *gcs.ObjectsService
	bucket    string
	publicURL string
}

var _ core.BlobStorage = (*GCSStorage)(nil)

func NewGCSStorage(ctx context.Context, conf *core.Config) (*GCSStorage, error) {
	if conf.Storage.GCSBucket == "" {
		return nil, errors.New("missing GCS bucket")
	}

	var opts []option.ClientOption
	if conf.Storage.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Storage.GCSCredentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}

	return &GCSStorage{
		objects:   svc.Objects,
		bucket:    conf.Storage.GCSBucket,
		publicURL: gcsPublicHost + "/" + conf.Storage.GCSBucket,
	}, nil
}

func (s *GCSStorage) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	obj := &gcs.Object{
		Name:         key,
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	}
	if _, err := s.objects.Insert(s.bucket, obj).Media(r).Context(ctx).Do(); err != nil {
		return "", errors.Wrap(err, "inserting GCS object")
	}
	return s.publicURL + "/" + key, nil
}

func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	err := s.objects.Delete(s.bucket, key).Context(ctx).Do()
	if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == http.StatusNotFound {
		return nil
	}
	return errors.Wrap(err, "deleting GCS object")
}

func (s *GCSStorage) KeyFromURL(u string) (string, error) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", errInvalidKey
	}
	key, err := url.PathUnescape(strings.TrimPrefix(u, prefix))
	if err != nil || key == "" {
		return "", errInvalidKey
	}
	return key, nil
}
