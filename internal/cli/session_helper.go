package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/core"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	ihttp "github.com/curious-containers/cc-jupyter-cli/internal/http"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
	"github.com/curious-containers/cc-jupyter-cli/internal/sink"
	"github.com/curious-containers/cc-jupyter-cli/internal/view"
)

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile), nil
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file and applies environment and flag
// overrides, in that order.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if serviceURL != "" {
		cfg.ServiceURL = serviceURL
	}
	if sessionCookie != "" {
		cfg.SessionCookie = sessionCookie
	}
	return cfg, nil
}

// newSession loads the configuration and connects a session. view may be
// nil for commands that never render the results table.
func newSession(v polling.View) (*core.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s, err := core.NewSession(cfg, v, events.NewEventBus(constants.EventBusDefaultBuffer), GetLogger())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openSaver resolves --dest against the configured download directory.
func openSaver(ctx context.Context, cfg *config.Config, dest string, overwrite bool) (sink.Saver, sink.Destination, error) {
	parsed, err := sink.ParseDestination(dest, cfg.DownloadDir())
	if err != nil {
		return nil, sink.Destination{}, err
	}
	opts := sink.Options{Overwrite: overwrite, Logger: GetLogger()}
	if parsed.Kind != sink.KindLocal {
		client, err := ihttp.NewClient(cfg, GetLogger())
		if err != nil {
			return nil, parsed, err
		}
		opts.HTTPClient = client
	}
	saver, err := sink.Open(ctx, parsed, opts)
	return saver, parsed, err
}

// printAlerts writes the active alerts of a session and dismisses them.
func printAlerts(w io.Writer, s *core.Session) {
	active := s.Alerts().Active()
	if len(active) == 0 {
		return
	}
	fmt.Fprintln(w, view.Alerts(active))
	s.Alerts().DismissAll()
}

// hasDanger reports whether any alert of the session is a danger alert.
func hasDanger(list []alerts.Alert) bool {
	for _, a := range list {
		if a.Level == alerts.LevelDanger {
			return true
		}
	}
	return false
}
