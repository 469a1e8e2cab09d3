// Package cli implements the authctl command tree.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"local-auth/internal/backend"
	"local-auth/internal/config"
	"local-auth/internal/repository"
	"local-auth/internal/repository/kvstore"
	"local-auth/internal/service"
)

// Opener returns the key-value store the commands operate on.
type Opener func(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.KeyValueStore, func() error, error)

type options struct {
	backend string
	dbPath  string
	verbose bool
}

// NewRootCmd creates the authctl root command. A nil open uses backend.Open.
func NewRootCmd(open Opener, logger *logrus.Logger) *cobra.Command {
	if open == nil {
		open = backend.Open
	}
	if logger == nil {
		logger = logrus.New()
	}
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Manage the local authentication store",
		Long:          `authctl registers users, logs them in and out, and shows the current session of a local authentication store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "storage backend: memory, sqlite or s3")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	withStore := func(run func(cmd *cobra.Command, store *service.AuthStore, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, logger)
			if err != nil {
				return err
			}
			kv, closeFn, err := open(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer closeFn()

			store := service.NewAuthStore(cmd.Context(),
				kvstore.NewCredentialRepository(kv),
				kvstore.NewSessionRepository(kv),
				logger)
			return run(cmd, store, args)
		}
	}

	cmd.AddCommand(
		newRegisterCmd(withStore),
		newLoginCmd(withStore),
		newLogoutCmd(withStore),
		newWhoamiCmd(withStore),
	)
	return cmd
}

// loadConfig applies flag overrides before validating, then sets the log level.
func loadConfig(opts *options, logger *logrus.Logger) (config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if opts.backend != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, nil
}
