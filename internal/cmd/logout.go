package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acompana/portal/internal/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the persisted session",
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
		store.Initialize(cmd.Context())
		store.Logout(cmd.Context())

		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
