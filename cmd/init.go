package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coinlens/coinlens/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize coinlens configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure coinlens and writes a .coinlens.yml file. API keys are read from the environment at runtime and never written to disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
