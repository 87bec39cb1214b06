package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"offScreenAPI/services"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the challenge catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import challenge templates from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer f.Close()

		rt, err := newRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := services.NewCatalogService(rt.store, rt.log).ImportTemplates(cmd.Context(), f)
		if err != nil {
			return err
		}
		cmd.Printf("read %d, inserted %d, skipped %d\n", res.Read, res.Inserted, res.Skipped)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogImportCmd)
	rootCmd.AddCommand(catalogCmd)
}
