package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "offscreen",
	Short: "Challenge lifecycle and scoring engine for offScreen teams.",
	Long: `offscreen assigns daily, weekly and screen-time challenges, validates photo
evidence with a vision model and keeps the team ledgers and weekly streaks.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute is called by main.main. It only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file; environment variables take precedence")
}

// initConfig reads the optional config file. .env and the environment are
// loaded by config.Load.
func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}
