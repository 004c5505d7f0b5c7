// Package core ties one client session together: the draft being edited, the
// alert list, the API client and the results polling engine.
package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/api"
	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/draft"
	"github.com/curious-containers/cc-jupyter-cli/internal/endpoint"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
	"github.com/curious-containers/cc-jupyter-cli/internal/notify"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
	stringutil "github.com/curious-containers/cc-jupyter-cli/internal/util/strings"
)

// Service is the API surface a session needs.
type Service interface {
	polling.Service
	ListPredefinedImages(ctx context.Context) ([]models.PredefinedImage, error)
	ExecuteNotebook(ctx context.Context, job models.JobSubmission) ([]byte, error)
}

// Session is the state of one client session. Nothing in it is global, so
// several sessions can coexist in one process.
type Session struct {
	config   *config.Config
	eventBus *events.EventBus
	alerts   *alerts.Sink
	draft    *draft.Model
	service  Service
	resolver *endpoint.Resolver
	engine   *polling.Engine
	notifier *notify.Notifier
	logger   *logging.Logger
}

// NewSession connects to the configured service. view receives the results
// table; it may be nil for sessions that never enter the results view.
func NewSession(cfg *config.Config, view polling.View, eventBus *events.EventBus, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	client, err := api.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return newSession(cfg, client, client.Resolver(), view, eventBus, logger), nil
}

// ErrOffline is returned by sessions created with NewOfflineSession for
// every operation that needs the service.
var ErrOffline = errors.New("session is not connected to a service")

// NewOfflineSession creates a session for editing and rendering drafts only.
func NewOfflineSession(cfg *config.Config, logger *logging.Logger) *Session {
	return newSession(cfg, offlineService{}, nil, nil, nil, logger)
}

func newSession(cfg *config.Config, service Service, resolver *endpoint.Resolver, view polling.View, eventBus *events.EventBus, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if view == nil {
		view = discardView{}
	}
	sink := alerts.NewSink(eventBus)
	return &Session{
		config:   cfg,
		eventBus: eventBus,
		alerts:   sink,
		draft:    draft.New(sink, logger),
		service:  service,
		resolver: resolver,
		engine:   polling.NewEngine(service, view, sink, eventBus, logger, cfg.PollInterval()),
		notifier: notify.NewNotifier(cfg.NotificationsEnabled, logger),
		logger:   logger,
	}
}

func (s *Session) Config() *config.Config       { return s.config }
func (s *Session) EventBus() *events.EventBus   { return s.eventBus }
func (s *Session) Alerts() *alerts.Sink         { return s.alerts }
func (s *Session) Draft() *draft.Model          { return s.draft }
func (s *Session) Engine() *polling.Engine      { return s.engine }
func (s *Session) Resolver() *endpoint.Resolver { return s.resolver }
func (s *Session) Notifier() *notify.Notifier   { return s.notifier }

// WatchNotifications sends desktop notifications for finished jobs until ctx
// is done.
func (s *Session) WatchNotifications(ctx context.Context) {
	if s.eventBus == nil || !s.notifier.IsEnabled() {
		return
	}
	go s.notifier.Watch(ctx, s.eventBus)
}

// PredefinedImages lists the images offered by the service. Failures are
// reported as danger alerts.
func (s *Session) PredefinedImages(ctx context.Context) ([]models.PredefinedImage, error) {
	images, err := s.service.ListPredefinedImages(ctx)
	if err != nil {
		s.alerts.Push(alerts.LevelDanger, api.ServerText(err))
		return nil, err
	}
	return images, nil
}

// Submit sends the draft. Local problems produce one info alert and no
// request. On success the notebooks are removed from the draft and the
// results view is entered; on failure the draft is left untouched.
func (s *Session) Submit(ctx context.Context) error {
	if s.draft.NotebookCount() == 0 {
		s.alerts.Push(alerts.LevelInfo, "Please add at least one notebook.")
		return draft.ErrNoNotebooks
	}
	if err := s.draft.Validate(); err != nil {
		s.alerts.Push(alerts.LevelInfo, sentence(err.Error()))
		return err
	}

	job := s.draft.BuildSubmissionPayload()
	if _, err := s.service.ExecuteNotebook(ctx, job); err != nil {
		s.logger.Error().Err(err).Int("notebooks", len(job.JupyterNotebooks)).Msg("submission failed")
		s.alerts.Push(alerts.LevelDanger, api.ServerText(err))
		return fmt.Errorf("submit: %w", err)
	}

	s.logger.Info().Int("notebooks", len(job.JupyterNotebooks)).Msg("job submitted")
	s.draft.Clear()
	s.alerts.Push(alerts.LevelSuccess, "Submitted "+stringutil.Count(len(job.JupyterNotebooks), "notebook")+".")

	// The fetch reports its own failures as alerts.
	if err := s.engine.Enter(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial results fetch failed")
	}
	return nil
}

// Close leaves the results view.
func (s *Session) Close() {
	s.engine.Leave()
}

// ApplyJobFile loads a job file into the draft through the draft's own
// operations. It returns every problem found; the rest of the file is
// applied regardless.
func (s *Session) ApplyJobFile(job *config.JobFile) []error {
	d := s.draft
	errs := d.AddNotebookFiles(job.Notebooks)

	switch {
	case job.CustomImage != "":
		d.SetDependencyMode(true)
		d.SetCustomImage(job.CustomImage)
	case job.Image != "":
		d.SetDependencyMode(false)
		d.SetPredefinedImage(job.Image)
	}

	for _, vram := range job.GPUs {
		index := d.IndexOf(draft.ListGPUs, d.AddGPU())
		if !d.UpdateGPU(index, strconv.Itoa(vram)) {
			errs = append(errs, fmt.Errorf("gpu: invalid VRAM %d MB", vram))
		}
	}

	if job.Requirements != "" {
		if err := d.LoadRequirementsFile(job.Requirements); err != nil {
			errs = append(errs, err)
		}
	}

	if len(job.ExternalData) > 0 {
		// Explicit bindings replace the ones inferred from the notebooks.
		for len(d.Snapshot().ExternalData) > 0 {
			d.RemoveAt(draft.ListExternalData, 0)
		}
		for _, spec := range job.ExternalData {
			if err := s.applyExternalData(spec); err != nil {
				errs = append(errs, fmt.Errorf("external data %s: %w", spec.Name, err))
			}
		}
	}
	return errs
}

func (s *Session) applyExternalData(spec config.ExternalDataSpec) error {
	d := s.draft
	index := d.IndexOf(draft.ListExternalData, d.AddExternalData())

	fields := []struct {
		field draft.Field
		value string
	}{
		{draft.FieldInputName, spec.Name},
		{draft.FieldInputType, spec.Type},
		{draft.FieldConnectorType, spec.Connector},
		{draft.FieldHost, spec.Host},
		{draft.FieldPath, spec.Path},
		{draft.FieldUsername, spec.Username},
		{draft.FieldPassword, spec.Password},
		{draft.FieldValue, spec.ValueString()},
	}
	var errs []error
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := d.UpdateExternalDataField(index, f.field, f.value); err != nil {
			errs = append(errs, err)
		}
	}
	if spec.Mount {
		if err := d.UpdateExternalDataField(index, draft.FieldMount, "true"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sentence capitalizes an error message for display.
func sentence(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

type discardView struct{}

func (discardView) Clear()                              {}
func (discardView) ShowLoading()                        {}
func (discardView) HideLoading()                        {}
func (discardView) Render(results []models.ResultEntry) {}

type offlineService struct{}

func (offlineService) ListPredefinedImages(context.Context) ([]models.PredefinedImage, error) {
	return nil, ErrOffline
}

func (offlineService) ExecuteNotebook(context.Context, models.JobSubmission) ([]byte, error) {
	return nil, ErrOffline
}

func (offlineService) ListResults(context.Context) ([]models.ResultEntry, error) {
	return nil, ErrOffline
}

func (offlineService) CancelNotebook(context.Context, string) error {
	return ErrOffline
}

func (offlineService) DownloadResult(context.Context, string) (*api.Download, error) {
	return nil, ErrOffline
}
