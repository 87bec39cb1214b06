package cmd

import (
	"github.com/spf13/cobra"

	"offScreenAPI/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every attempt whose window has ended, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		sweeper := services.NewExpirationSweeper(rt.store, nil, rt.cfg.SweepInterval, rt.cfg.SweepBatch, rt.log)
		n, err := sweeper.SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("expired %d attempts\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
