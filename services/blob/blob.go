package blob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
)

// Backends
const (
	Local = "local"
	GCS   = "gcs"
)

// New returns the blob storage of the configured backend.
func New(ctx context.Context, conf *core.Config) (core.BlobStorage, error) {
	switch conf.Storage.Backend {
	case Local, "":
		return NewLocalStorage(conf)
	case GCS:
		return NewGCSStorage(ctx, conf)
	default:
		return nil, errors.Errorf("unsupported storage backend %q", conf.Storage.Backend)
	}
}
