package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/endpoint"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

func newTestClient(t *testing.T, handler nethttp.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.ServiceURL = srv.URL + "/app/"
	cfg.SessionCookie = "tok"
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.reads.RetryWaitMin = time.Millisecond
	client.reads.RetryWaitMax = 5 * time.Millisecond
	return client
}

func TestNewClientRequiresConnectionSettings(t *testing.T) {
	cfg := config.NewConfig()
	if _, err := NewClient(cfg, nil); !errors.Is(err, config.ErrMissingServiceURL) {
		t.Errorf("NewClient() error = %v, want ErrMissingServiceURL", err)
	}
	cfg.ServiceURL = "cc.example.org"
	if _, err := NewClient(cfg, nil); !errors.Is(err, config.ErrMissingSession) {
		t.Errorf("NewClient() error = %v, want ErrMissingSession", err)
	}
	cfg.SessionCookie = "s"
	client, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if got := client.Resolver().Base(); got != "https://cc.example.org/" {
		t.Errorf("Base() = %q, want https://cc.example.org/", got)
	}
}

func TestListResults(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet || r.URL.Path != "/app/list_results" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if c, err := r.Cookie("session"); err != nil || c.Value != "tok" {
			t.Errorf("session cookie = %v, %v", c, err)
		}
		w.Write([]byte(`[
			{"notebook_id": "n1", "process_status": "processing", "notebook_filename": "a.ipynb", "execution_time": 1700000000},
			{"notebook_id": "n2", "process_status": "failure", "notebook_filename": "b.ipynb", "execution_time": 1700000100, "debug_info": "oom"}
		]`))
	}))

	results, err := client.ListResults(context.Background())
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	want := []models.ResultEntry{
		{NotebookID: "n1", ProcessStatus: models.StatusProcessing, NotebookFilename: "a.ipynb", ExecutionTime: 1700000000},
		{NotebookID: "n2", ProcessStatus: models.StatusFailure, NotebookFilename: "b.ipynb", ExecutionTime: 1700000100, DebugInfo: "oom"},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if got := client.CallCount(endpoint.ListResults); got != 1 {
		t.Errorf("CallCount() = %d, want 1", got)
	}
}

func TestExecuteNotebook(t *testing.T) {
	var got map[string]json.RawMessage
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost || r.URL.Path != "/app/executeNotebook" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("ok"))
	}))

	job := models.JobSubmission{
		JupyterNotebooks: []models.NotebookEntry{{Data: json.RawMessage(`{"cells":[]}`), Filename: "a.ipynb"}},
		GpuRequirements:  []int{2048},
	}
	body, err := client.ExecuteNotebook(context.Background(), job)
	if err != nil {
		t.Fatalf("ExecuteNotebook() error = %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
	for _, key := range []string{"jupyterNotebooks", "dependencies", "gpuRequirements", "externalData"} {
		if _, ok := got[key]; !ok {
			t.Errorf("payload is missing %q: %v", key, got)
		}
	}
}

func TestCancelNotebook(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodDelete || r.URL.Path != "/app/cancel_notebook" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != `{"notebookId":"n1"}` {
			t.Errorf("body = %s", data)
		}
	}))

	if err := client.CancelNotebook(context.Background(), "n1"); err != nil {
		t.Fatalf("CancelNotebook() error = %v", err)
	}
}

func TestServerErrorCarriesBody(t *testing.T) {
	var calls int32
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(nethttp.StatusInternalServerError)
		w.Write([]byte("could not reach agency\n"))
	}))

	_, err := client.ExecuteNotebook(context.Background(), models.JobSubmission{})
	if err == nil {
		t.Fatal("ExecuteNotebook() should fail")
	}
	if got := ServerText(err); got != "could not reach agency" {
		t.Errorf("ServerText() = %q", got)
	}
	if got := StatusCode(err); got != 500 {
		t.Errorf("StatusCode() = %d, want 500", got)
	}
	if got := err.Error(); got != "execute notebook failed: status 500: could not reach agency" {
		t.Errorf("Error() = %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("submission sent %d times, want 1", n)
	}
}

func TestReadsRetriedWhenConfigured(t *testing.T) {
	var calls int32
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(nethttp.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := client.ListResults(context.Background()); err == nil {
		t.Fatal("ListResults() should fail without retries")
	}

	client.reads.RetryMax = 2
	atomic.StoreInt32(&calls, 0)
	results, err := client.ListResults(context.Background())
	if err != nil {
		t.Fatalf("ListResults() error = %v", err)
	}
	if len(results) != 0 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("results = %v after %d calls", results, atomic.LoadInt32(&calls))
	}
}

func TestLoginRedirect(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Redirect(w, r, "/app/auth/login", nethttp.StatusFound)
	}))

	if _, err := client.ListPredefinedImages(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("ListPredefinedImages() error = %v, want ErrNotLoggedIn", err)
	}
}

func TestListPredefinedImages(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte(`[{"name": "base"}, {"name": "tensorflow"}]`))
	}))

	images, err := client.ListPredefinedImages(context.Background())
	if err != nil {
		t.Fatalf("ListPredefinedImages() error = %v", err)
	}
	want := []models.PredefinedImage{{Name: "base"}, {Name: "tensorflow"}}
	if diff := cmp.Diff(want, images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadResult(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.EscapedPath() != "/app/result/n%201" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		w.Header().Set("Content-Disposition", `attachment; filename="a.ipynb"`)
		w.Write([]byte(`{"cells":[]}`))
	}))

	dl, err := client.DownloadResult(context.Background(), "n 1")
	if err != nil {
		t.Fatalf("DownloadResult() error = %v", err)
	}
	defer dl.Close()

	data, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != `{"cells":[]}` {
		t.Errorf("body = %s", data)
	}
	if dl.Filename != "a.ipynb" {
		t.Errorf("Filename = %q, want a.ipynb", dl.Filename)
	}
	if dl.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", dl.Size, len(data))
	}
}

func TestDownloadResultNotFound(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.Error(w, "no such result", nethttp.StatusNotFound)
	}))

	_, err := client.DownloadResult(context.Background(), "n1")
	if StatusCode(err) != 404 || ServerText(err) != "no such result" {
		t.Errorf("DownloadResult() error = %v", err)
	}
}

func TestLogoutAcceptsRedirect(t *testing.T) {
	client := newTestClient(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/app/auth/logout" {
			t.Errorf("path = %s", r.URL.Path)
		}
		nethttp.Redirect(w, r, "/app/", nethttp.StatusFound)
	}))

	if err := client.Logout(context.Background()); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}
