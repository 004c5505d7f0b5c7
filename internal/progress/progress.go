// Package progress draws download progress: a single bar for one result and
// a multi-bar display when several results download at once.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewBar creates a byte progress bar. A negative size draws a spinner.
func NewBar(out io.Writer, size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// SingleDownload returns a stream wrapper drawing one bar per download on
// out. It matches polling.ProgressFunc.
func SingleDownload(out io.Writer) func(notebookID, name string, size int64, r io.Reader) io.Reader {
	return func(notebookID, name string, size int64, r io.Reader) io.Reader {
		bar := NewBar(out, size, "Downloading "+name)
		return &barReader{r: r, bar: bar}
	}
}

// barReader feeds the bar and finishes it at EOF.
type barReader struct {
	r   io.Reader
	bar *progressbar.ProgressBar
}

func (b *barReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if n > 0 {
		_ = b.bar.Add(n)
	}
	if err == io.EOF {
		_ = b.bar.Finish()
	}
	return n, err
}

// truncatePath keeps the last maxComponents elements of a path.
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}
