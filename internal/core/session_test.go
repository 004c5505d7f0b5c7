package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/api"
	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/draft"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
)

type fakeService struct {
	mu        sync.Mutex
	submitted []models.JobSubmission
	submitErr error
	results   []models.ResultEntry
	lists     int
}

func (f *fakeService) ListPredefinedImages(ctx context.Context) ([]models.PredefinedImage, error) {
	return []models.PredefinedImage{{Name: "base"}}, nil
}

func (f *fakeService) ExecuteNotebook(ctx context.Context, job models.JobSubmission) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, job)
	return nil, f.submitErr
}

func (f *fakeService) ListResults(ctx context.Context) ([]models.ResultEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return f.results, nil
}

func (f *fakeService) CancelNotebook(ctx context.Context, notebookID string) error {
	return nil
}

func (f *fakeService) DownloadResult(ctx context.Context, notebookID string) (*api.Download, error) {
	return nil, errors.New("not implemented")
}

func newTestSession(t *testing.T, service *fakeService) *Session {
	t.Helper()
	cfg := config.NewConfig()
	s := newSession(cfg, service, nil, nil, events.NewEventBus(100), nil)
	t.Cleanup(s.Close)
	return s
}

func addNotebook(t *testing.T, s *Session, name string) {
	t.Helper()
	if err := s.Draft().AddNotebook(name, []byte(`{"cells": []}`)); err != nil {
		t.Fatalf("AddNotebook() error = %v", err)
	}
}

func TestSubmitWithoutNotebooks(t *testing.T) {
	service := &fakeService{}
	s := newTestSession(t, service)

	err := s.Submit(context.Background())
	if !errors.Is(err, draft.ErrNoNotebooks) {
		t.Errorf("Submit() error = %v, want ErrNoNotebooks", err)
	}
	if len(service.submitted) != 0 {
		t.Errorf("%d requests sent, want 0", len(service.submitted))
	}
	all := s.Alerts().All()
	if len(all) != 1 || all[0].Level != alerts.LevelInfo {
		t.Errorf("alerts = %+v, want exactly one info alert", all)
	}
}

func TestSubmitValidationFailure(t *testing.T) {
	service := &fakeService{}
	s := newTestSession(t, service)
	addNotebook(t, s, "a.ipynb")

	err := s.Submit(context.Background())
	if !errors.Is(err, draft.ErrNoImage) {
		t.Errorf("Submit() error = %v, want ErrNoImage", err)
	}
	if len(service.submitted) != 0 {
		t.Errorf("%d requests sent, want 0", len(service.submitted))
	}
	if got := s.Alerts().Count(alerts.LevelInfo); got != 1 {
		t.Errorf("info alerts = %d, want 1", got)
	}
	if s.Draft().NotebookCount() != 1 {
		t.Error("draft must be untouched after a validation failure")
	}
}

func TestSubmitSuccessHandsOffToPolling(t *testing.T) {
	service := &fakeService{
		results: []models.ResultEntry{{NotebookID: "n1", ProcessStatus: models.StatusProcessing, NotebookFilename: "a.ipynb"}},
	}
	s := newTestSession(t, service)
	addNotebook(t, s, "a.ipynb")
	s.Draft().SetPredefinedImage("base")
	s.Draft().AddGPU()

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(service.submitted) != 1 {
		t.Fatalf("%d requests sent, want 1", len(service.submitted))
	}
	job := service.submitted[0]
	if len(job.JupyterNotebooks) != 1 || job.JupyterNotebooks[0].Filename != "a.ipynb" {
		t.Errorf("notebooks = %+v", job.JupyterNotebooks)
	}
	if diff := cmp.Diff([]int{2048}, job.GpuRequirements); diff != "" {
		t.Errorf("gpus mismatch (-want +got):\n%s", diff)
	}

	if s.Draft().NotebookCount() != 0 {
		t.Error("notebooks should be cleared after a successful submission")
	}
	if len(s.Draft().Snapshot().GPUs) != 1 {
		t.Error("GPU requirements should be kept after a successful submission")
	}
	if got := s.Alerts().Count(alerts.LevelSuccess); got != 1 {
		t.Errorf("success alerts = %d, want 1", got)
	}
	if service.lists != 1 {
		t.Errorf("ListResults called %d times, want 1", service.lists)
	}
	if s.Engine().State() != polling.Polling {
		t.Errorf("engine state = %v, want polling", s.Engine().State())
	}

	s.Close()
	if s.Engine().State() != polling.Idle {
		t.Errorf("engine state after Close = %v, want idle", s.Engine().State())
	}
}

func TestSubmitServerFailureKeepsDraft(t *testing.T) {
	service := &fakeService{submitErr: &api.Error{Op: "execute notebook", Status: 500, Body: "agency unreachable"}}
	s := newTestSession(t, service)
	addNotebook(t, s, "a.ipynb")
	s.Draft().SetPredefinedImage("base")

	err := s.Submit(context.Background())
	if api.StatusCode(err) != 500 {
		t.Errorf("Submit() error = %v, want status 500", err)
	}
	if s.Draft().NotebookCount() != 1 {
		t.Error("draft must be untouched after a failed submission")
	}
	active := s.Alerts().Active()
	if len(active) != 1 || active[0].Level != alerts.LevelDanger || active[0].Message != "agency unreachable" {
		t.Errorf("alerts = %+v", active)
	}
	if service.lists != 0 {
		t.Errorf("results fetched %d times after a failed submission", service.lists)
	}
}

func TestApplyJobFile(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"train.ipynb":      `{"cells": []}`,
		"broken.ipynb":     `{"cells": [`,
		"requirements.txt": "numpy\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	job := &config.JobFile{
		Notebooks:    []string{filepath.Join(dir, "train.ipynb"), filepath.Join(dir, "broken.ipynb")},
		CustomImage:  "me/image:1",
		GPUs:         []int{4096, 1024},
		Requirements: filepath.Join(dir, "requirements.txt"),
		ExternalData: []config.ExternalDataSpec{
			{Name: "input_file", Type: "File", Connector: "SSH", Host: "h", Path: "/p", Username: "u"},
			{Name: "learning_rate", Type: "Float", Value: 0.01},
			{Name: "epochs", Type: "Bogus"},
		},
	}

	s := newTestSession(t, &fakeService{})
	errs := s.ApplyJobFile(job)
	if len(errs) != 2 {
		t.Errorf("ApplyJobFile() errors = %v, want the broken notebook and the bogus type", errs)
	}

	snap := s.Draft().Snapshot()
	if len(snap.Notebooks) != 1 || snap.Notebooks[0].Filename != "train.ipynb" {
		t.Errorf("notebooks = %+v", snap.Notebooks)
	}
	if !snap.Dependencies.Custom || snap.Dependencies.CustomImage != "me/image:1" {
		t.Errorf("dependencies = %+v", snap.Dependencies)
	}
	if got := []int{snap.GPUs[0].VRAM, snap.GPUs[1].VRAM}; !cmp.Equal(got, []int{4096, 1024}) {
		t.Errorf("gpus = %v", got)
	}
	if snap.Requirements == nil || snap.Requirements.Data != "numpy\n" {
		t.Errorf("requirements = %+v", snap.Requirements)
	}

	if len(snap.ExternalData) != 3 {
		t.Fatalf("external data = %+v", snap.ExternalData)
	}
	file := snap.ExternalData[0]
	if file.InputType != models.InputTypeFile || file.ConnectorType != models.ConnectorSSH || *file.Host != "h" {
		t.Errorf("file entry = %+v", file)
	}
	if lr := snap.ExternalData[1]; lr.InputType != models.InputTypeFloat || lr.Value != 0.01 {
		t.Errorf("float entry = %+v", lr)
	}
}

func TestApplyJobFileRejectsInvalidVRAM(t *testing.T) {
	s := newTestSession(t, &fakeService{})
	errs := s.ApplyJobFile(&config.JobFile{GPUs: []int{0, 4096}})
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "invalid VRAM 0") {
		t.Errorf("ApplyJobFile() errors = %v", errs)
	}

	snap := s.Draft().Snapshot()
	if got := []int{snap.GPUs[0].VRAM, snap.GPUs[1].VRAM}; !cmp.Equal(got, []int{constants.DefaultGPUVRAM, 4096}) {
		t.Errorf("gpus = %v", got)
	}
}

func TestSentence(t *testing.T) {
	if got := sentence("predefined image: no docker image selected"); got != "Predefined image: no docker image selected." {
		t.Errorf("sentence() = %q", got)
	}
}

func TestOfflineSessionNeverSubmits(t *testing.T) {
	s := NewOfflineSession(config.NewConfig(), nil)
	addNotebook(t, s, "a.ipynb")
	s.Draft().SetPredefinedImage("base")

	if err := s.Submit(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("Submit() error = %v, want ErrOffline", err)
	}
	if s.Draft().NotebookCount() != 1 {
		t.Error("draft must be untouched")
	}
}
