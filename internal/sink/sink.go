package sink

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"

	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
)

// Saver stores one result stream under name and returns its location.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// Options for Open.
type Options struct {
	// HTTPClient is the proxy-aware client used by the cloud SDKs.
	HTTPClient *nethttp.Client
	// Overwrite replaces existing local files instead of picking a new name.
	Overwrite bool
	Logger    *logging.Logger
}

// Open returns the saver for a parsed destination.
func Open(ctx context.Context, dest Destination, opts Options) (Saver, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	switch dest.Kind {
	case KindLocal:
		return NewLocal(dest.Dir, opts.Overwrite, logger), nil
	case KindS3:
		return NewS3(ctx, dest, opts.HTTPClient, logger)
	case KindAzure:
		return NewAzure(dest, opts.HTTPClient, logger)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, dest.Kind)
	}
}
