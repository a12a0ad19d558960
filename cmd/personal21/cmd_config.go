package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/personal21/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ~/.personal21/config.yaml",
	}

	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigShowCommand(opts))
	cmd.AddCommand(newConfigSetCommand(opts))

	return cmd
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration directory and a default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			fmt.Fprint(w, "Creating configuration directory... ")
			dir, err := config.EnsureDir()
			if err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			fmt.Fprintln(w, "✓")

			configPath := filepath.Join(dir, "config.yaml")
			_, err = os.Stat(configPath)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				fmt.Fprint(w, "Creating default configuration... ")
				cfg := config.DefaultLocalConfig()
				cfg.EnsureUserID()
				if err := config.SaveLocalConfig(cfg); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				fmt.Fprintln(w, "✓")
			case err != nil:
				return fmt.Errorf("stat config: %w", err)
			default:
				fmt.Fprintln(w, "Configuration already exists ✓")
			}

			fmt.Fprintln(w)
			fmt.Fprintln(w, "Next steps:")
			fmt.Fprintln(w, "  1. personal21 config set remote.url https://<project>.example.com")
			fmt.Fprintln(w, "  2. personal21 config set remote.kind http")
			fmt.Fprintln(w, "  3. personal21 config set remote.api_key <key>")
			fmt.Fprintln(w, "  4. personal21 sync")
			return nil
		},
	}
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (secrets hidden)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadLocalConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			red := cfg.Redacted()
			return opts.render(cmd.OutOrStdout(), red, func(w io.Writer) {
				data, err := yaml.Marshal(red)
				if err != nil {
					fmt.Fprintf(w, "marshal config: %v\n", err)
					return
				}
				w.Write(data)
				fmt.Fprintf(w, "# api_key set: %t, token set: %t\n", cfg.Remote.APIKey != "", cfg.Remote.Token != "")
			})
		},
	}
}

// settableKeys lists the keys accepted by config set
var settableKeys = []string{
	"daemon.port", "daemon.bind", "daemon.log_level",
	"storage.backend", "storage.path",
	"remote.kind", "remote.url", "remote.api_key", "remote.token",
	"sync.user_id", "sync.auto_push",
	"queue.enabled", "queue.url", "queue.workers",
	"workout.catalog_path", "locale",
}

func newConfigSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one configuration value",
		Long:  "Set one configuration value. Keys: " + strings.Join(settableKeys, ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadLocalConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			secret, err := setConfigValue(cfg, args[0], args[1])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if secret {
				dir, err := config.Dir()
				if err != nil {
					return err
				}
				secrets, err := config.ReadSecrets(dir)
				if err != nil {
					return err
				}
				secrets.Remote.APIKey = cfg.Remote.APIKey
				secrets.Remote.Token = cfg.Remote.Token
				if err := config.SaveSecrets(secrets); err != nil {
					return err
				}
			} else if err := config.SaveLocalConfig(cfg); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s updated\n", args[0])
			return nil
		},
	}
}

// setConfigValue applies key=value to cfg and reports whether the key
// belongs in secrets.yaml
func setConfigValue(cfg *config.LocalConfig, key, value string) (secret bool, err error) {
	switch key {
	case "daemon.port":
		cfg.Daemon.Port, err = strconv.Atoi(value)
	case "daemon.bind":
		cfg.Daemon.Bind = value
	case "daemon.log_level":
		cfg.Daemon.LogLevel = value
	case "storage.backend":
		cfg.Storage.Backend = value
	case "storage.path":
		cfg.Storage.Path = value
	case "remote.kind":
		cfg.Remote.Kind = value
	case "remote.url":
		cfg.Remote.URL = value
	case "remote.api_key":
		cfg.Remote.APIKey = value
		return true, nil
	case "remote.token":
		cfg.Remote.Token = value
		return true, nil
	case "sync.user_id":
		cfg.Sync.UserID = value
	case "sync.auto_push":
		cfg.Sync.AutoPush, err = strconv.ParseBool(value)
	case "queue.enabled":
		cfg.Queue.Enabled, err = strconv.ParseBool(value)
	case "queue.url":
		cfg.Queue.URL = value
	case "queue.workers":
		cfg.Queue.Workers, err = strconv.Atoi(value)
	case "workout.catalog_path":
		cfg.Workout.CatalogPath = value
	case "locale":
		cfg.Locale = value
	default:
		return false, fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(settableKeys, ", "))
	}
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return false, nil
}
