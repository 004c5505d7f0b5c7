package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/core"
	"github.com/curious-containers/cc-jupyter-cli/internal/draft"
	"github.com/curious-containers/cc-jupyter-cli/internal/view"
)

// draftFlags are the flags that build a draft, shared by 'submit' and 'draft'.
type draftFlags struct {
	jobFile      string
	image        string
	customImage  string
	gpus         []int
	requirements string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.jobFile, "job", "j", "", "YAML job file describing the draft")
	cmd.Flags().StringVar(&f.image, "image", "", "Predefined docker image (default "+constants.DefaultDockerImage+")")
	cmd.Flags().StringVar(&f.customImage, "custom-image", "", "Custom docker image (takes precedence over --image)")
	cmd.Flags().IntSliceVar(&f.gpus, "gpu", nil, "Request a GPU with the given VRAM in MB (repeatable)")
	cmd.Flags().StringVarP(&f.requirements, "requirements", "r", "", "Python requirements file")
}

// build merges the job file (if any) with notebook arguments and flags.
// Flags win over the job file.
func (f *draftFlags) build(notebooks []string) (*config.JobFile, error) {
	job := &config.JobFile{}
	if f.jobFile != "" {
		loaded, err := config.LoadJobFile(f.jobFile)
		if err != nil {
			return nil, err
		}
		job = loaded
	}

	for _, nb := range notebooks {
		abs, err := filepath.Abs(nb)
		if err != nil {
			return nil, err
		}
		job.Notebooks = append(job.Notebooks, abs)
	}
	if f.image != "" {
		job.Image = f.image
	}
	if f.customImage != "" {
		job.CustomImage = f.customImage
	}
	if job.Image == "" && job.CustomImage == "" {
		job.Image = constants.DefaultDockerImage
	}
	if len(f.gpus) > 0 {
		job.GPUs = f.gpus
	}
	if f.requirements != "" {
		abs, err := filepath.Abs(f.requirements)
		if err != nil {
			return nil, err
		}
		job.Requirements = abs
	}
	return job, nil
}

// applyDraft fills the session's draft and prints every problem found. With
// --verbose every changed section is printed as it is applied.
func applyDraft(cmd *cobra.Command, s *core.Session, job *config.JobFile) {
	if verbose || debug {
		traceDraft(cmd.ErrOrStderr(), s.Draft())
	}
	for _, err := range s.ApplyJobFile(job) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

// traceDraft prints the section named by each change of d to w. Notebook
// files load concurrently, so writes are serialized.
func traceDraft(w io.Writer, d *draft.Model) {
	var mu sync.Mutex
	d.AddListener(func(change draft.Change) {
		section := view.Section(d.Snapshot(), change)
		if section == "" {
			return
		}
		mu.Lock()
		fmt.Fprintf(w, "%s\n\n", section)
		mu.Unlock()
	})
}

// newSubmitCmd creates the 'submit' command.
func newSubmitCmd() *cobra.Command {
	var (
		flags draftFlags
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "submit [notebook.ipynb...]",
		Short: "Submit notebooks for execution",
		Long: `Submit one or more notebooks for execution.

The draft is built from the job file (--job), then notebook arguments and
flags are applied on top. External data bindings are inferred from the
parameters cell of the first notebook unless the job file lists them.

Examples:
  cc-jupyter submit train.ipynb --image bruno1996/cc_jupyterservice_base_image --gpu 4096
  cc-jupyter submit --job job.yaml --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.build(args)
			if err != nil {
				return err
			}

			s, err := newSession(nil)
			if err != nil {
				return err
			}
			defer s.Close()
			applyDraft(cmd, s, job)

			ctx := GetContext()
			err = s.Submit(ctx)
			printAlerts(cmd.ErrOrStderr(), s)
			if err != nil {
				if errors.Is(err, draft.ErrNoNotebooks) {
					return fmt.Errorf("nothing to submit: %w", err)
				}
				return err
			}

			if !watch {
				fmt.Fprint(cmd.OutOrStdout(), view.Results(view.ResultRows(s.Engine().Results(), nil)))
				return nil
			}
			s.Close()
			return watchResults(cmd, false)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the results after submitting")
	return cmd
}

// newDraftCmd creates the 'draft' command.
func newDraftCmd() *cobra.Command {
	var (
		flags draftFlags
		save  string
	)

	cmd := &cobra.Command{
		Use:   "draft [notebook.ipynb...]",
		Short: "Show the draft a submit would send, without sending it",
		Long: `Build a draft exactly like 'submit' does, render it and check it for
missing required fields. No request is sent to the service.

Use --save to write the result as a job file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := flags.build(args)
			if err != nil {
				return err
			}

			// Drafts need no connection.
			s := core.NewOfflineSession(config.NewConfig(), GetLogger())
			applyDraft(cmd, s, job)
			printAlerts(cmd.ErrOrStderr(), s)

			fmt.Fprint(cmd.OutOrStdout(), view.Draft(s.Draft().Snapshot()))
			validateErr := s.Draft().Validate()
			if validateErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nNot ready: %v\n", validateErr)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "\nReady to submit.")
			}

			if save != "" {
				if err := config.SaveJobFile(save, job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved job file to %s\n", save)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&save, "save", "", "Write the draft as a job file")
	return cmd
}
