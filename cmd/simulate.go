package cmd

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/virus-evolution/gopipe/pkg/gfio"
	"github.com/virus-evolution/gopipe/pkg/simulate"
)

var simulateGenomeFile string
var simulateOutfile string
var simulateCount int
var simulateSeed uint64

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVarP(&simulateGenomeFile, "genome", "g", "", "Template genome fasta file. If none is specified, a random genome of the configured genome-length is used")
	simulateCmd.Flags().StringVarP(&simulateOutfile, "outfile", "o", "stdout", "Fasta file of simulated reads to write")
	simulateCmd.Flags().IntVar(&simulateCount, "count", 100, "Number of reads to simulate")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 0, "Random seed, for reproducible output. If not given, the clock is used")

	simulateCmd.Flags().SortFlags = false
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "simulate reads from a genome",
	Long: `simulate reads from a genome

Read lengths are drawn from a normal distribution with the configured
mean-length and sd-length, and start positions are uniform over the genome.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var genomeIn io.Reader

		if simulateGenomeFile != "" {
			f, err := gfio.OpenIn(*cmd.Flag("genome"))
			if err != nil {
				return err
			}
			defer f.Close()

			dec, err := gfio.Decompress(f)
			if err != nil {
				return err
			}
			defer dec.Close()

			genomeIn = dec
		}

		out, err := gfio.OpenOut(*cmd.Flag("outfile"))
		if err != nil {
			return err
		}
		defer out.Close()

		opts := simulate.Options{
			Count:        simulateCount,
			GenomeLength: cfg.GenomeLength,
			MeanLength:   cfg.MeanLength,
			SDLength:     cfg.SDLength,
			Seed:         simulateSeed,
		}
		if !cmd.Flags().Changed("seed") {
			opts.Seed = uint64(time.Now().UnixNano())
		}

		return simulate.Simulate(genomeIn, out, opts)
	},
}
