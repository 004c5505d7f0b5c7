package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/core"
	"github.com/curious-containers/cc-jupyter-cli/internal/events"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
	"github.com/curious-containers/cc-jupyter-cli/internal/polling"
	"github.com/curious-containers/cc-jupyter-cli/internal/progress"
	"github.com/curious-containers/cc-jupyter-cli/internal/sink"
	"github.com/curious-containers/cc-jupyter-cli/internal/tui"
	"github.com/curious-containers/cc-jupyter-cli/internal/util/paths"
	stringutil "github.com/curious-containers/cc-jupyter-cli/internal/util/strings"
	"github.com/curious-containers/cc-jupyter-cli/internal/view"
)

// ErrFetchFailed is returned when the result list could not be loaded.
var ErrFetchFailed = errors.New("results could not be fetched")

// newResultsCmd creates the 'results' command group.
func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List, follow, cancel and download submitted jobs",
		Long: `Commands for submitted jobs.

Commands:
  list     - Show the current result list
  watch    - Follow the results until no job is processing
  cancel   - Cancel a processing job
  download - Download the results of successful jobs`,
	}
	cmd.AddCommand(newResultsListCmd())
	cmd.AddCommand(newResultsWatchCmd())
	cmd.AddCommand(newResultsCancelCmd())
	cmd.AddCommand(newResultsDownloadCmd())
	return cmd
}

// enterResults creates a session and performs the first verbose fetch.
func enterResults(ctx context.Context, cmd *cobra.Command, v polling.View) (*core.Session, error) {
	s, err := newSession(v)
	if err != nil {
		return nil, err
	}
	if err := s.Engine().Enter(ctx); err != nil {
		printAlerts(cmd.ErrOrStderr(), s)
		s.Close()
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return s, nil
}

func newResultsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the current result list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := enterResults(GetContext(), cmd, view.NewConsole(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			s.Close()
			printAlerts(cmd.ErrOrStderr(), s)
			return nil
		},
	}
}

func newResultsWatchCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the results",
		Long: `Follow the results of submitted jobs.

By default an interactive view is shown:
  r refresh   c cancel   d download   x dismiss alerts   q quit

With --plain (or when stdout is not a terminal) the table is printed
whenever a job changes status, until no job is processing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchResults(cmd, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print tables instead of the interactive view")
	cmd.Flags().String("dest", "", "Download destination used by the interactive view")
	return cmd
}

// watchResults runs the interactive view, or the plain console watcher.
func watchResults(cmd *cobra.Command, plain bool) error {
	ctx := GetContext()
	if plain || !progress.IsTerminal(os.Stdout) {
		return watchPlain(ctx, cmd)
	}

	// The full-screen view owns the terminal.
	logger = logging.NewLogger(logging.ModeTUI, nil)

	bridge := tui.NewBridge()
	s, err := newSession(bridge)
	if err != nil {
		return err
	}
	defer s.Close()

	dest := ""
	if f := cmd.Flags().Lookup("dest"); f != nil {
		dest = f.Value.String()
	}
	saver, _, err := openSaver(ctx, s.Config(), dest, false)
	if err != nil {
		return err
	}

	s.WatchNotifications(ctx)
	return tui.Run(ctx, bridge, s.Engine(), s.Alerts(), s.EventBus(), saver)
}

func watchPlain(ctx context.Context, cmd *cobra.Command) error {
	s, err := newSession(view.NewConsole(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.WatchNotifications(ctx)

	stateCh := s.EventBus().Subscribe(events.EventPollingState)
	defer s.EventBus().Unsubscribe(events.EventPollingState, stateCh)

	if err := s.Engine().Enter(ctx); err != nil {
		printAlerts(cmd.ErrOrStderr(), s)
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	for s.Engine().State() == polling.Polling {
		select {
		case <-ctx.Done():
			return nil
		case <-stateCh:
		}
		printAlerts(cmd.ErrOrStderr(), s)
	}
	printAlerts(cmd.ErrOrStderr(), s)
	if hasDanger(s.Alerts().All()) {
		return ErrFetchFailed
	}
	fmt.Fprintln(cmd.OutOrStdout(), "No job is processing.")
	return nil
}

func newResultsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel NOTEBOOK_ID",
		Short: "Cancel a processing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			s, err := enterResults(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			err = s.Engine().Cancel(ctx, args[0])
			printAlerts(cmd.ErrOrStderr(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %s\n", args[0])
			fmt.Fprint(cmd.OutOrStdout(), view.Results(view.ResultRows(s.Engine().Results(), nil)))
			return nil
		},
	}
}

func newResultsDownloadCmd() *cobra.Command {
	var (
		all       bool
		dest      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "download [NOTEBOOK_ID...]",
		Short: "Download the results of successful jobs",
		Long: `Download the executed notebooks of successful jobs.

--dest selects where results go (default: download.directory or the
current directory):
  ./results                    local directory
  s3://bucket/prefix           S3 (AWS_* environment or default credential chain)
  azblob://account/container   Azure Blob (AZURE_STORAGE_KEY or AZURE_STORAGE_SAS)

Examples:
  cc-jupyter results download 3f2a9c
  cc-jupyter results download --all --dest s3://my-bucket/runs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("name at least one notebook id or use --all")
			}
			ctx := GetContext()
			s, err := enterResults(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, err := selectDownloads(s.Engine().Results(), args, all)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No successful jobs to download.")
				return nil
			}

			saver, parsed, err := openSaver(ctx, s.Config(), dest, overwrite)
			if err != nil {
				return err
			}
			if parsed.Kind == sink.KindLocal {
				saver = planLocalNames(saver, parsed.Dir, s.Engine().Results(), ids)
			}
			return downloadAll(ctx, cmd, s, saver, parsed.String(), ids)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Download every successful job")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination directory or s3:// / azblob:// URL")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing local files")
	return cmd
}

// selectDownloads returns the ids to download, in result order when all is
// set and in argument order otherwise.
func selectDownloads(results []models.ResultEntry, ids []string, all bool) ([]string, error) {
	if all {
		var out []string
		for _, r := range results {
			if r.ProcessStatus == models.StatusSuccess {
				out = append(out, r.NotebookID)
			}
		}
		return out, nil
	}

	status := make(map[string]models.ProcessStatus, len(results))
	for _, r := range results {
		status[r.NotebookID] = r.ProcessStatus
	}
	for _, id := range ids {
		st, ok := status[id]
		if !ok {
			return nil, fmt.Errorf("unknown notebook %s", id)
		}
		if st != models.StatusSuccess {
			return nil, fmt.Errorf("notebook %s is %s, only successful jobs can be downloaded", id, st)
		}
	}
	return ids, nil
}

// planLocalNames gives results that share a file name distinct names.
func planLocalNames(saver sink.Saver, dir string, results []models.ResultEntry, ids []string) sink.Saver {
	byID := make(map[string]models.ResultEntry, len(results))
	for _, r := range results {
		byID[r.NotebookID] = r
	}
	files := make([]paths.ResultFile, 0, len(ids))
	for _, id := range ids {
		name := paths.SafeName(byID[id].NotebookFilename)
		if name == "" {
			name = id + ".ipynb"
		}
		files = append(files, paths.ResultFile{NotebookID: id, Name: name, LocalPath: filepath.Join(dir, name)})
	}
	files, renamed := paths.ResolveCollisions(files)
	if renamed == 0 {
		return saver
	}
	planned := make(map[string]string, len(files))
	for _, f := range files {
		planned[f.NotebookID] = filepath.Base(f.LocalPath)
	}
	return &plannedSaver{inner: saver, names: planned}
}

// plannedSaver stores each result under the name planned for its notebook.
type plannedSaver struct {
	inner sink.Saver
	names map[string]string
}

type notebookKey struct{}

func (p *plannedSaver) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if id, ok := ctx.Value(notebookKey{}).(string); ok {
		if planned := p.names[id]; planned != "" {
			name = planned
		}
	}
	return p.inner.Save(ctx, name, r, size)
}

// downloadAll downloads ids with bounded parallelism. A single download
// draws one progress bar; several share a multi-bar display.
func downloadAll(ctx context.Context, cmd *cobra.Command, s *core.Session, saver sink.Saver, where string, ids []string) error {
	engine := s.Engine()
	errOut := cmd.ErrOrStderr()

	if len(ids) == 1 {
		if progress.IsTerminal(os.Stderr) {
			engine.SetProgress(progress.SingleDownload(errOut))
		}
		location, err := engine.Download(context.WithValue(ctx, notebookKey{}, ids[0]), ids[0], saver)
		printAlerts(errOut, s)
		if err != nil {
			s.Notifier().DownloadFailed(ids[0], err.Error())
			return err
		}
		s.Notifier().DownloadComplete(ids[0], location)
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", location)
		return nil
	}

	ui := progress.NewDownloadUI(len(ids))
	engine.SetProgress(ui.Wrap)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, constants.MaxConcurrentDownloads)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			location, err := engine.Download(context.WithValue(ctx, notebookKey{}, id), id, saver)
			ui.Complete(id, location, err)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	ui.Wait()
	printAlerts(errOut, s)

	if failed > 0 {
		s.Notifier().DownloadFailed(stringutil.Count(failed, "result"), "see the terminal for details")
		return fmt.Errorf("%d of %d downloads failed", failed, len(ids))
	}
	s.Notifier().DownloadComplete(stringutil.Count(len(ids), "result"), where)
	return nil
}
