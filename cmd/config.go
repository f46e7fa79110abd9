package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the effective configuration as yaml",
	Long: `print the effective configuration as yaml

Defaults are overridden by the config file, then by environment variables
using the historical Makefile names, then by command line flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print(cfg.String())
		return nil
	},
}
