package cmd

import (
	"github.com/spf13/cobra"
)

var samFile string

func init() {
	rootCmd.AddCommand(samCmd)

	samCmd.PersistentFlags().StringVarP(&samFile, "samfile", "s", "stdin", "Samfile to read. If none is specified, will read from stdin")
}

var samCmd = &cobra.Command{
	Use:   "sam",
	Short: "Analyse the reads in sam files",
	Long:  `Analyse the reads in sam files`,
}
