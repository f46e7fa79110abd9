package cmd

import (
	"github.com/spf13/cobra"

	"github.com/virus-evolution/gopipe/pkg/frequencies"
	"github.com/virus-evolution/gopipe/pkg/gfio"
)

var frequenciesOutfile string
var frequenciesSortOn string

func init() {
	samCmd.AddCommand(frequenciesCmd)

	frequenciesCmd.Flags().StringVarP(&frequenciesOutfile, "outfile", "o", "stdout", "Tab-separated report to write")
	frequenciesCmd.Flags().StringVar(&frequenciesSortOn, "sort-on", "", "Sort rows by \"max\" base frequency or \"entropy\" instead of genome position")

	frequenciesCmd.Flags().SortFlags = false
}

var frequenciesCmd = &cobra.Command{
	Use:   "frequencies",
	Short: "report the base frequencies at an alignment's significant sites",
	Long: `report the base frequencies at an alignment's significant sites

A site is significant when at least --min-reads reads cover it and no single
base accounts for more than --homogeneous-cutoff of them. For each one the
report gives the 1-based location, read count, maximum base frequency,
entropy, and the base counts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := gfio.OpenIn(*cmd.Flag("samfile"))
		if err != nil {
			return err
		}
		defer in.Close()

		dec, err := gfio.Decompress(in)
		if err != nil {
			return err
		}
		defer dec.Close()

		out, err := gfio.OpenOut(*cmd.Flag("outfile"))
		if err != nil {
			return err
		}
		defer out.Close()

		return frequencies.Frequencies(dec, out, cfg.MinReads, cfg.HomogeneousCutoff, frequenciesSortOn)
	},
}
