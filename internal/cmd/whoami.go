package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the persisted session, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}
		storage, err := newStorage(cfg)
		if err != nil {
			return err
		}

		id, err := storage.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}
		if id == nil {
			fmt.Println("Not logged in.")
			return nil
		}
		if verr := id.Validate(); verr != nil {
			fmt.Println("A stored session exists but is not valid; it will be discarded on next start.")
			return nil
		}

		fmt.Printf("%s (%s), id %s\n", id.DisplayName(), id.Role, id.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
