package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newImagesCmd creates the 'images' command.
func newImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List the predefined docker images offered by the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			images, err := s.PredefinedImages(GetContext())
			if err != nil {
				printAlerts(cmd.ErrOrStderr(), s)
				return err
			}
			out := cmd.OutOrStdout()
			if len(images) == 0 {
				fmt.Fprintln(out, "The service offers no predefined images.")
				return nil
			}
			for _, img := range images {
				fmt.Fprintln(out, img.Name)
			}
			return nil
		},
	}
}
