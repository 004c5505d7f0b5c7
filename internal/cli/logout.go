package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curious-containers/cc-jupyter-cli/internal/api"
	"github.com/curious-containers/cc-jupyter-cli/internal/config"
)

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the service session and forget the session cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(cfg, GetLogger())
			if err != nil {
				return err
			}
			if err := client.Logout(GetContext()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			if keep {
				return nil
			}

			path, err := configPath()
			if err != nil {
				return err
			}
			stored, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			if stored.SessionCookie == "" {
				return nil
			}
			stored.SessionCookie = ""
			return config.SaveConfig(stored, path)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep-cookie", false, "Do not remove the session cookie from the config file")
	return cmd
}
