package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/endpoint"
	"github.com/curious-containers/cc-jupyter-cli/internal/http"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
	"github.com/curious-containers/cc-jupyter-cli/internal/ratelimit"
)

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Interface("details", keysAndValues).Msg("[retry] " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Only log errors and warnings, not all info
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Interface("details", keysAndValues).Msg("[retry] " + msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Interface("details", keysAndValues).Msg("[retry] " + msg)
}

// apiMetrics tracks request counts per operation
type apiMetrics struct {
	sync.Mutex
	totalCalls int64
	callsByOp  map[string]int64
}

// Client talks to the notebook execution service.
//
// Reads (GET) are retried up to the configured number of times. Submissions
// and cancellations are sent exactly once.
type Client struct {
	reads    *retryablehttp.Client
	writes   *retryablehttp.Client
	config   *config.Config
	resolver *endpoint.Resolver
	limiter  *ratelimit.Registry
	logger   *logging.Logger
	timeout  time.Duration
	metrics  *apiMetrics
}

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if err := cfg.ValidateForConnection(); err != nil {
		return nil, err
	}
	resolver, err := endpoint.New(cfg.ServiceURL)
	if err != nil {
		return nil, err
	}

	// Configure HTTP client with proxy support
	httpClient, err := http.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	// The service answers unauthenticated requests with a redirect to its
	// login page; surface that instead of decoding the page.
	httpClient.CheckRedirect = func(*nethttp.Request, []*nethttp.Request) error {
		return nethttp.ErrUseLastResponse
	}

	newRetryClient := func(retryMax int) *retryablehttp.Client {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = httpClient
		rc.RetryMax = retryMax
		rc.RetryWaitMin = constants.RetryWaitMin
		rc.RetryWaitMax = constants.RetryWaitMax
		rc.Logger = &retryLogger{logger: logger}
		// Keep the final response so the server text reaches the caller.
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		return rc
	}

	limiter := ratelimit.NewRegistry(cfg.RequestsPerSecond, cfg.Burst)
	for _, scope := range []ratelimit.Scope{ratelimit.ScopeDefault, ratelimit.ScopeSubmit} {
		limiter.Limiter(scope).SetLogger(logger)
	}

	return &Client{
		reads:    newRetryClient(cfg.Retries),
		writes:   newRetryClient(0),
		config:   cfg,
		resolver: resolver,
		limiter:  limiter,
		logger:   logger,
		timeout:  cfg.Timeout(),
		metrics:  &apiMetrics{callsByOp: make(map[string]int64)},
	}, nil
}

// Resolver returns the endpoint resolver of the configured service.
func (c *Client) Resolver() *endpoint.Resolver {
	return c.resolver
}

// GetConfig returns the configuration used by this API client
func (c *Client) GetConfig() *config.Config {
	return c.config
}

// CallCount returns the number of requests sent for an operation.
func (c *Client) CallCount(op endpoint.Operation) int64 {
	c.metrics.Lock()
	defer c.metrics.Unlock()
	return c.metrics.callsByOp[string(op)]
}

// doRequest performs an HTTP request with the session cookie and rate limiting.
func (c *Client) doRequest(ctx context.Context, method string, op endpoint.Operation, body interface{}, params ...string) (*nethttp.Response, error) {
	target := c.resolver.URL(op, params...)

	if err := c.limiter.Wait(ctx, method, string(op)); err != nil {
		return nil, fmt.Errorf("rate limiter cancelled: %w", err)
	}

	c.metrics.Lock()
	c.metrics.totalCalls++
	c.metrics.callsByOp[string(op)]++
	c.metrics.Unlock()

	var reqBody interface{}
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&nethttp.Cookie{Name: c.config.CookieName, Value: c.config.SessionCookie})

	client := c.writes
	if method == nethttp.MethodGet {
		client = c.reads
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("op", string(op)).Msg("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("op", string(op)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if isLoginRedirect(resp) {
		resp.Body.Close()
		return nil, ErrNotLoggedIn
	}

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		c.logger.Warn().Str("op", string(op)).Str("retry_after", resp.Header.Get("Retry-After")).Msg("throttled by service")
	}

	return resp, nil
}

func isLoginRedirect(resp *nethttp.Response) bool {
	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return false
	}
	return strings.Contains(resp.Header.Get("Location"), "auth/login")
}

// withTimeout bounds ctx by the configured request timeout.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// errorFromResponse reads the body of a failed response into an *Error.
func errorFromResponse(op string, resp *nethttp.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// ListPredefinedImages returns the runtime images offered by the service.
func (c *Client) ListPredefinedImages(ctx context.Context) ([]models.PredefinedImage, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, nethttp.MethodGet, endpoint.PredefinedImages, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, errorFromResponse("list predefined images", resp)
	}

	var images []models.PredefinedImage
	if err := json.NewDecoder(resp.Body).Decode(&images); err != nil {
		return nil, fmt.Errorf("failed to decode predefined images: %w", err)
	}
	return images, nil
}

// ExecuteNotebook submits a job. The response body is opaque and returned
// as is.
func (c *Client) ExecuteNotebook(ctx context.Context, job models.JobSubmission) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, nethttp.MethodPost, endpoint.ExecuteNotebook, job)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, errorFromResponse("execute notebook", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read submit response: %w", err)
	}
	return data, nil
}

// ListResults returns every job of the logged in user.
func (c *Client) ListResults(ctx context.Context) ([]models.ResultEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, nethttp.MethodGet, endpoint.ListResults, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, errorFromResponse("list results", resp)
	}

	var results []models.ResultEntry
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return results, nil
}

// CancelNotebook cancels a processing job.
func (c *Client) CancelNotebook(ctx context.Context, notebookID string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, nethttp.MethodDelete, endpoint.CancelNotebook, models.CancelRequest{NotebookID: notebookID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return errorFromResponse("cancel notebook", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Download is an open result stream. The caller must Close it.
type Download struct {
	Body     io.ReadCloser
	Size     int64 // -1 when unknown
	Filename string
}

// Close releases the stream.
func (d *Download) Close() error {
	return d.Body.Close()
}

// cancelOnClose ties the request context to the lifetime of the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// DownloadResult opens the result document of a finished job.
func (c *Client) DownloadResult(ctx context.Context, notebookID string) (*Download, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DownloadTimeout)

	resp, err := c.doRequest(ctx, nethttp.MethodGet, endpoint.Result, nil, notebookID)
	if err != nil {
		cancel()
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		defer cancel()
		defer resp.Body.Close()
		return nil, errorFromResponse("download result", resp)
	}

	return &Download{
		Body:     cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		Size:     resp.ContentLength,
		Filename: attachmentName(resp.Header.Get("Content-Disposition")),
	}, nil
}

// attachmentName extracts the filename parameter of a Content-Disposition header.
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Logout ends the server session. A redirect counts as success.
func (c *Client) Logout(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.doRequest(ctx, nethttp.MethodGet, endpoint.Logout, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse("logout", resp)
	}
	return nil
}
