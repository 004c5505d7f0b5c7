package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/curious-containers/cc-jupyter-cli/internal/diskspace"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/util/paths"
)

// Local writes results into a directory.
type Local struct {
	dir       string
	overwrite bool
	logger    *logging.Logger
}

// NewLocal creates a saver for dir. The directory is created on first save.
func NewLocal(dir string, overwrite bool, logger *logging.Logger) *Local {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Local{dir: dir, overwrite: overwrite, logger: logger}
}

// Dir returns the target directory.
func (l *Local) Dir() string {
	return l.dir
}

// Save writes r to a temporary file next to the target and renames it into
// place once the stream is complete.
func (l *Local) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	name = paths.SafeName(name)
	if name == "" {
		return "", fmt.Errorf("invalid result name")
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	target := filepath.Join(l.dir, name)
	if err := diskspace.CheckForDownload(target, size); err != nil {
		return "", err
	}
	if !l.overwrite {
		unique, err := paths.UniquePath(target)
		if err != nil {
			return "", fmt.Errorf("failed to pick file name: %w", err)
		}
		target = unique
	}

	tmp, err := os.CreateTemp(l.dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if size > 0 && written != size {
		return "", fmt.Errorf("incomplete download of %s: got %d of %d bytes", name, written, size)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}

	l.logger.Debug().Str("path", target).Int64("bytes", written).Msg("result written")
	return target, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
