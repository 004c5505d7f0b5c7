// Package polling keeps the results view in sync with the service.
//
// The engine is a two-state machine. It is Polling while any job reported by
// the last successful fetch is processing and Idle otherwise. A verbose fetch
// (entering the view, manual refresh, after cancel) always rebuilds the view;
// a background tick rebuilds it only when the status sequence changed.
package polling

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/api"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// State of the engine.
type State int

const (
	Idle State = iota
	Polling
)

func (s State) String() string {
	if s == Polling {
		return "polling"
	}
	return "idle"
}

var (
	ErrNotActive       = errors.New("results view is not active")
	ErrUnknownNotebook = errors.New("unknown notebook")
	ErrNotCancellable  = errors.New("only processing jobs can be cancelled")
	ErrNotDownloadable = errors.New("only successful jobs can be downloaded")
)

// View is the results display driven by the engine.
type View interface {
	Clear()
	ShowLoading()
	HideLoading()
	Render(results []models.ResultEntry)
}

// Service is the part of the API client used by the engine.
type Service interface {
	ListResults(ctx context.Context) ([]models.ResultEntry, error)
	CancelNotebook(ctx context.Context, notebookID string) error
	DownloadResult(ctx context.Context, notebookID string) (*api.Download, error)
}

// Saver stores a downloaded result under name and returns where it went.
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// ProgressFunc may wrap a download stream, e.g. to draw a progress bar.
type ProgressFunc func(notebookID, name string, size int64, r io.Reader) io.Reader

// Engine owns the result list of one session.
type Engine struct {
	service  Service
	view     View
	alerts   alerts.Pusher
	eventBus *events.EventBus
	logger   *logging.Logger
	interval time.Duration
	progress ProgressFunc

	mu         sync.Mutex
	state      State
	active     bool
	generation uint64
	baseCtx    context.Context
	stop       chan struct{}
	results    []models.ResultEntry
	statuses   []models.ProcessStatus
}

// NewEngine creates an idle engine. interval <= 0 selects the default.
func NewEngine(service Service, view View, sink alerts.Pusher, eventBus *events.EventBus, logger *logging.Logger, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		service:  service,
		view:     view,
		alerts:   sink,
		eventBus: eventBus,
		logger:   logger,
		interval: interval,
		baseCtx:  context.Background(),
	}
}

// SetProgress installs a download stream wrapper.
func (e *Engine) SetProgress(fn ProgressFunc) {
	e.mu.Lock()
	e.progress = fn
	e.mu.Unlock()
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Interval returns the background polling interval.
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Results returns a copy of the last fetched result list.
func (e *Engine) Results() []models.ResultEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ResultEntry, len(e.results))
	copy(out, e.results)
	return out
}

// Enter makes the results view current and performs a verbose fetch.
// Background ticks run on ctx until Leave or ctx is done.
func (e *Engine) Enter(ctx context.Context) error {
	e.mu.Lock()
	e.active = true
	e.generation++
	e.baseCtx = ctx
	e.mu.Unlock()
	return e.fetch(ctx, true)
}

// Refresh performs a verbose fetch.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if !active {
		return ErrNotActive
	}
	return e.fetch(ctx, true)
}

// Leave marks the view as no longer current and stops polling. Responses of
// requests still in flight are discarded.
func (e *Engine) Leave() {
	e.mu.Lock()
	e.active = false
	e.generation++
	changed := e.stopLocked()
	e.mu.Unlock()
	if changed {
		e.eventBus.PublishPollingState(false)
	}
}

// tick is the non-verbose fetch of the background timer.
func (e *Engine) tick(ctx context.Context) {
	_ = e.fetch(ctx, false)
}

func (e *Engine) fetch(ctx context.Context, verbose bool) error {
	e.mu.Lock()
	gen := e.generation
	e.mu.Unlock()

	if verbose {
		e.view.Clear()
		e.view.ShowLoading()
	}

	results, err := e.service.ListResults(ctx)

	e.mu.Lock()
	if gen != e.generation || !e.active {
		e.mu.Unlock()
		e.logger.Debug().Msg("discarding results of a previous view")
		return nil
	}

	if err != nil {
		// The view is cleared, so rows of the last list are no longer actionable.
		e.results = nil
		e.statuses = nil
		stopped := e.stopLocked()
		e.mu.Unlock()
		e.view.Clear()
		if verbose {
			e.view.HideLoading()
		}
		e.logger.Error().Err(err).Msg("failed to fetch results")
		e.alerts.Push(alerts.LevelDanger, api.ServerText(err))
		if stopped {
			e.eventBus.PublishPollingState(false)
		}
		return err
	}

	statuses := models.Statuses(results)
	rebuild := verbose || !sameStatuses(e.statuses, statuses)
	transitions := diffStatuses(e.results, results)
	e.results = results
	e.statuses = statuses

	var started, stopped bool
	if models.AnyProcessing(results) {
		started = e.startLocked()
	} else {
		stopped = e.stopLocked()
	}
	e.mu.Unlock()

	if rebuild {
		if !verbose {
			e.view.Clear()
		}
		e.view.Render(copyResults(results))
	}
	if verbose {
		e.view.HideLoading()
	}

	for _, t := range transitions {
		e.eventBus.PublishResultsChanged(t.NotebookID, t.NotebookFilename, string(t.old), string(t.ProcessStatus))
	}
	if started || stopped {
		e.eventBus.PublishPollingState(started)
	}
	return nil
}

// startLocked starts the ticker unless it is running.
func (e *Engine) startLocked() bool {
	if e.state == Polling {
		return false
	}
	e.state = Polling
	e.stop = make(chan struct{})
	go e.loop(e.baseCtx, e.stop)
	e.logger.Debug().Dur("interval", e.interval).Msg("polling started")
	return true
}

// stopLocked stops the ticker if it is running.
func (e *Engine) stopLocked() bool {
	if e.state == Idle {
		return false
	}
	close(e.stop)
	e.stop = nil
	e.state = Idle
	e.logger.Debug().Msg("polling stopped")
	return true
}

func (e *Engine) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			e.mu.Lock()
			stopped := e.stop == stop && e.stopLocked()
			e.mu.Unlock()
			if stopped {
				e.eventBus.PublishPollingState(false)
			}
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// Cancel cancels a processing job and re-fetches verbosely afterwards,
// whether or not the cancellation succeeded.
func (e *Engine) Cancel(ctx context.Context, notebookID string) error {
	row, err := e.lookup(notebookID)
	if err != nil {
		return err
	}
	if row.ProcessStatus != models.StatusProcessing {
		return ErrNotCancellable
	}

	cancelErr := e.service.CancelNotebook(ctx, notebookID)
	if cancelErr != nil {
		e.logger.Error().Err(cancelErr).Str("notebook_id", notebookID).Msg("cancel failed")
		e.alerts.Push(alerts.LevelDanger, api.ServerText(cancelErr))
	}

	if err := e.Refresh(ctx); err != nil && !errors.Is(err, ErrNotActive) && cancelErr == nil {
		return err
	}
	return cancelErr
}

// Download streams the result of a successful job into saver.
func (e *Engine) Download(ctx context.Context, notebookID string, saver Saver) (string, error) {
	row, err := e.lookup(notebookID)
	if err != nil {
		return "", err
	}
	if row.ProcessStatus != models.StatusSuccess {
		return "", ErrNotDownloadable
	}

	dl, err := e.service.DownloadResult(ctx, notebookID)
	if err != nil {
		e.alerts.Push(alerts.LevelDanger, api.ServerText(err))
		return "", err
	}
	defer dl.Close()

	name := dl.Filename
	if name == "" {
		name = row.NotebookFilename
	}
	if name == "" {
		name = notebookID + ".ipynb"
	}

	counter := &countingReader{r: dl.Body, id: notebookID, total: dl.Size, bus: e.eventBus}
	var r io.Reader = counter
	e.mu.Lock()
	progress := e.progress
	e.mu.Unlock()
	if progress != nil {
		r = progress(notebookID, name, dl.Size, r)
	}

	location, err := saver.Save(ctx, name, r, dl.Size)
	e.eventBus.PublishDownload(notebookID, counter.n, dl.Size, true, err)
	if err != nil {
		e.logger.Error().Err(err).Str("notebook_id", notebookID).Msg("download failed")
		e.alerts.Push(alerts.LevelDanger, "Could not save result "+name+": "+err.Error())
		return "", err
	}
	e.logger.Info().Str("notebook_id", notebookID).Str("location", location).Msg("result saved")
	return location, nil
}

func (e *Engine) lookup(notebookID string) (models.ResultEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.results {
		if r.NotebookID == notebookID {
			return r, nil
		}
	}
	return models.ResultEntry{}, ErrUnknownNotebook
}

func sameStatuses(a, b []models.ProcessStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type transition struct {
	models.ResultEntry
	old models.ProcessStatus
}

// diffStatuses lists jobs whose status differs from the previous fetch. Jobs
// first seen are reported only when a previous fetch exists.
func diffStatuses(prev, next []models.ResultEntry) []transition {
	if prev == nil {
		return nil
	}
	old := make(map[string]models.ProcessStatus, len(prev))
	for _, r := range prev {
		old[r.NotebookID] = r.ProcessStatus
	}
	var out []transition
	for _, r := range next {
		if s, ok := old[r.NotebookID]; !ok || s != r.ProcessStatus {
			out = append(out, transition{ResultEntry: r, old: s})
		}
	}
	return out
}

func copyResults(in []models.ResultEntry) []models.ResultEntry {
	out := make([]models.ResultEntry, len(in))
	copy(out, in)
	return out
}
