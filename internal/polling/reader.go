package polling

import (
	"io"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
)

// countingReader publishes download progress at most every
// ProgressUpdateInterval.
type countingReader struct {
	r     io.Reader
	id    string
	total int64
	bus   *events.EventBus

	n        int64
	lastSent time.Time
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if now := time.Now(); now.Sub(c.lastSent) >= constants.ProgressUpdateInterval {
		c.lastSent = now
		c.bus.PublishDownload(c.id, c.n, c.total, false, nil)
	}
	return n, err
}
