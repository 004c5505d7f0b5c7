package constants

import (
	"time"
)

// Service defaults
const (
	// DefaultCookieName - name of the session cookie set by the service login flow
	DefaultCookieName = "session"

	// DefaultDockerImage - base image preselected when the service lists no images
	DefaultDockerImage = "bruno1996/cc_jupyterservice_base_image"
)

// Draft defaults
const (
	// DefaultGPUVRAM - VRAM in MB assigned to a newly added GPU requirement
	DefaultGPUVRAM = 2048

	// MaxNotebookSize - largest notebook file read from disk (64 MB)
	MaxNotebookSize = 64 * 1024 * 1024

	// ParametersTag - cell tag marking the notebook parameters cell
	ParametersTag = "parameters"
)

// Polling
const (
	// DefaultPollInterval - interval between background result fetches (4 seconds)
	DefaultPollInterval = 4000 * time.Millisecond

	// MinPollInterval - lower bound accepted from configuration
	MinPollInterval = 500 * time.Millisecond
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - additional space to require beyond result size (15%)
	DiskSpaceBufferPercent = 0.15
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for event channels
	EventBusMaxBuffer = 4096
)

// UI Updates
const (
	// ProgressUpdateInterval - interval for progress bar updates (250ms)
	ProgressUpdateInterval = 250 * time.Millisecond

	// AlertsVisible - number of most recent alerts shown by the renderers
	AlertsVisible = 5
)

// API and Context Timeouts
const (
	// APIContextTimeout - default timeout for API operations (30 seconds)
	APIContextTimeout = 30 * time.Second

	// DownloadTimeout - timeout for a single result download (30 minutes)
	DownloadTimeout = 30 * time.Minute

	// MaxConcurrentDownloads - parallel downloads of 'results download --all'
	MaxConcurrentDownloads = 4
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)

// Rate Limiter
const (
	// DefaultRequestsPerSecond - sustained request rate against the service
	DefaultRequestsPerSecond = 5.0

	// DefaultBurst - request burst capacity
	DefaultBurst = 10

	// RateLimitWarningThreshold - delay threshold to log a warning (2 seconds)
	RateLimitWarningThreshold = 2 * time.Second
)

// Retry configuration
const (
	// RetryWaitMin - minimum wait between retries of idempotent requests
	RetryWaitMin = 500 * time.Millisecond

	// RetryWaitMax - maximum wait between retries of idempotent requests
	RetryWaitMax = 10 * time.Second
)
