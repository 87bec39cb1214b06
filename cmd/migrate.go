package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.store.Migrate(cmd.Context()); err != nil {
			return err
		}
		rt.log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
