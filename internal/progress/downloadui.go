package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// DownloadUI manages concurrent result download bars using mpb
type DownloadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	totalFiles int
	completed  int32

	mu   sync.Mutex
	bars map[string]*DownloadBar
}

// DownloadBar is the bar of one result download
type DownloadBar struct {
	bar       *mpb.Bar
	ui        *DownloadUI
	index     int
	name      string
	size      int64
	startTime time.Time
}

// NewDownloadUI creates a UI for totalFiles downloads on stderr. Bars are only
// drawn on a terminal; otherwise one line per download is printed.
func NewDownloadUI(totalFiles int) *DownloadUI {
	isTerminal := IsTerminal(os.Stderr)
	if isTerminal {
		enableANSI(os.Stderr)
	}
	return newDownloadUI(totalFiles, os.Stderr, isTerminal)
}

func newDownloadUI(totalFiles int, out io.Writer, isTerminal bool) *DownloadUI {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}
	return &DownloadUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
		bars:       make(map[string]*DownloadBar),
	}
}

// AddBar creates the bar of one download. size < 0 means unknown.
func (u *DownloadUI) AddBar(notebookID, name string, size int64) *DownloadBar {
	u.mu.Lock()
	index := len(u.bars) + 1
	db := &DownloadBar{ui: u, index: index, name: name, size: size, startTime: time.Now()}
	u.bars[notebookID] = db
	u.mu.Unlock()

	if !u.isTerminal {
		fmt.Fprintf(u.out, "Downloading [%d/%d]: %s\n", index, u.totalFiles, name)
		return db
	}

	total := size
	if total < 0 {
		total = 0
	}
	db.bar = u.progress.New(total,
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d/%d] %s", index, u.totalFiles, truncatePath(name, 2)), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
			decor.Name("  "),
			decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 60, decor.WCSyncSpace),
		),
		mpb.BarRemoveOnComplete(),
	)
	return db
}

// Wrap matches polling.ProgressFunc: it adds a bar and proxies r through it.
func (u *DownloadUI) Wrap(notebookID, name string, size int64, r io.Reader) io.Reader {
	db := u.AddBar(notebookID, name, size)
	if db.bar == nil {
		return r
	}
	return db.bar.ProxyReader(r)
}

// Complete marks the download of notebookID as finished.
func (u *DownloadUI) Complete(notebookID, location string, err error) {
	u.mu.Lock()
	db, ok := u.bars[notebookID]
	u.mu.Unlock()
	if !ok {
		return
	}
	db.complete(location, err)
}

func (b *DownloadBar) complete(location string, err error) {
	elapsed := time.Since(b.startTime).Round(time.Millisecond)
	var msg string
	if err == nil {
		if b.bar != nil {
			current := b.bar.Current()
			b.bar.SetTotal(current, true)
		}
		msg = fmt.Sprintf("✓ %s → %s (%s)\n", b.name, location, elapsed)
	} else {
		if b.bar != nil {
			b.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s: %v\n", b.name, err)
	}

	// Write through mpb's writer to avoid breaking the redraw.
	if b.ui.isTerminal {
		_, _ = b.ui.progress.Write([]byte(msg))
	} else {
		fmt.Fprint(b.ui.out, msg)
	}
	atomic.AddInt32(&b.ui.completed, 1)
}

// Wait blocks until all progress bars complete
func (u *DownloadUI) Wait() {
	u.progress.Wait()
}

// Writer returns an io.Writer that safely prints above the progress bars
func (u *DownloadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

// Completed returns the number of finished downloads
func (u *DownloadUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// IsTerminal returns whether bars are drawn
func (u *DownloadUI) IsTerminal() bool {
	return u.isTerminal
}
