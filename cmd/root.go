package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "coinlens",
	Short: "Crypto market dashboard backend with an AI market assistant",
	Long: `Coinlens serves live crypto market data to the dashboard frontend and
answers free-text market questions through a context-enriched AI
assistant backed by interchangeable completion providers.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".coinlens.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
