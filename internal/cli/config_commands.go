package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curious-containers/cc-jupyter-cli/internal/config"
	ihttp "github.com/curious-containers/cc-jupyter-cli/internal/http"
	"github.com/curious-containers/cc-jupyter-cli/internal/util/sanitize"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cc-jupyter configuration",
		Long: `Configuration management commands for cc-jupyter.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  get   - Print one setting
  set   - Change one setting
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for cc-jupyter.

You need the URL of the service and the value of its session cookie, which
your browser stores after you log in.

Use --force to overwrite an existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view the current config.")
					return nil
				}
			}

			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "cc-jupyter Configuration Setup")
			fmt.Fprintln(out, "==============================")
			fmt.Fprintln(out)

			p := newPrompter(cmd.InOrStdin(), out)
			if err := runConfigInit(p, cfg); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nConfiguration saved to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// runConfigInit asks for every setting of a usual setup.
func runConfigInit(p *prompter, cfg *config.Config) error {
	var err error
	if cfg.ServiceURL, err = p.line("Service URL", cfg.ServiceURL); err != nil {
		return err
	}
	if cfg.ServiceURL == "" {
		return config.ErrMissingServiceURL
	}
	if cfg.SessionCookie, err = p.secret("Session cookie", cfg.SessionCookie); err != nil {
		return err
	}
	if cfg.DownloadDirectory, err = p.line("Download directory", cfg.DownloadDir()); err != nil {
		return err
	}

	useProxy, err := p.confirm("Configure proxy?")
	if err != nil {
		return err
	}
	if !useProxy {
		return nil
	}
	if cfg.ProxyMode, err = p.line("Proxy mode (system, basic, ntlm)", "system"); err != nil {
		return err
	}
	if cfg.ProxyMode == "system" {
		return nil
	}
	if cfg.ProxyHost, err = p.line("Proxy host", cfg.ProxyHost); err != nil {
		return err
	}
	port, err := p.line("Proxy port", "8080")
	if err != nil {
		return err
	}
	if cfg.ProxyPort, err = strconv.Atoi(port); err != nil {
		return fmt.Errorf("proxy port: not an integer: %q", port)
	}
	if cfg.ProxyUser, err = p.line("Proxy user (optional)", cfg.ProxyUser); err != nil {
		return err
	}
	if ihttp.NeedsProxyPassword(cfg) || cfg.ProxyUser != "" {
		if cfg.ProxyPassword, err = p.secret("Proxy password", cfg.ProxyPassword); err != nil {
			return err
		}
	}
	return nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration: the config file with
environment and flag overrides applied. Credentials are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			section := ""
			for _, key := range config.Keys() {
				sec, name, _ := strings.Cut(key, ".")
				if sec != section {
					if section != "" {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "[%s]\n", sec)
					section = sec
				}
				value, _ := cfg.Get(key)
				if config.IsSecret(key) {
					value = maskSecret(value)
				}
				fmt.Fprintf(out, "%s = %s\n", name, value)
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

// newConfigGetCmd creates the 'config get' command.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get KEY",
		Short:     "Print one setting",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting",
		Long: `Change one setting in the config file. Keys are "section.name":

  ` + strings.Join(config.Keys(), "\n  "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			value := sanitize.Field(args[1])
			if config.IsSecret(args[0]) {
				value = sanitize.Token(value)
			}
			if err := cfg.Set(args[0], value); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			GetLogger().Debug().Str("key", args[0]).Str("path", path).Msg("setting saved")
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
