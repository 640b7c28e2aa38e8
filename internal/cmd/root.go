package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/acompana/portal/internal/authapi"
	"github.com/acompana/portal/internal/config"
	"github.com/acompana/portal/internal/log"
	"github.com/acompana/portal/internal/session"
	"github.com/acompana/portal/internal/tui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Community care portal",
	Long: `portal is the terminal client for the Acompaña community care platform.
Elderly users, family members, and care professionals each log in with
their own method and see their own screens.

Running portal without a subcommand opens the interactive portal.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}

		storage, err := newStorage(cfg)
		if err != nil {
			return err
		}

		store := session.NewStore(storage, logger)
		client := authapi.NewClient(cfg.ServerURL, logger)
		app := tui.NewApp(store, client, cfg.LocalityID, logger)

		return tui.Run(app)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/acompana/portal.yaml)")
}

// bootstrap loads the configuration and builds the logger.
func bootstrap() (*config.Config, *log.Logger, error) {
	path := cfgFile
	if path == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(base, "acompana", "portal.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New(log.Config{
		Level:  log.ParseLevel(cfg.Log.Level),
		Format: log.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})

	return cfg, logger, nil
}

// newStorage builds the durable session storage for the configuration.
func newStorage(cfg *config.Config) (*session.FileStorage, error) {
	dir := cfg.StorageDir
	if dir == "" {
		var err error
		dir, err = session.DefaultStorageDir()
		if err != nil {
			return nil, err
		}
	}
	return session.NewFileStorage(dir), nil
}
