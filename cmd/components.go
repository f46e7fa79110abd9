package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/virus-evolution/gopipe/pkg/component"
	"github.com/virus-evolution/gopipe/pkg/gfio"
)

var componentsOutdir string

func init() {
	samCmd.AddCommand(componentsCmd)

	componentsCmd.Flags().StringVarP(&componentsOutdir, "outdir", "d", ".", "Directory to write the summary and component fasta files into")

	componentsCmd.Flags().SortFlags = false
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "group reads into connected and consistent components",
	Long: `group reads into connected and consistent components

Reads covering shared significant sites form connected components; within
each, reads that also agree about the bases at those sites (to within
--homogeneous-cutoff) form consistent components. The summary is written to
the configured cc-out filename in --outdir, along with one fasta file per
consistent component.`,
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

		if err = os.MkdirAll(componentsOutdir, 0755); err != nil {
			return err
		}

		out, err := os.Create(filepath.Join(componentsOutdir, cfg.CCOut))
		if err != nil {
			return err
		}
		defer out.Close()

		return component.Components(dec, out, componentsOutdir, cfg.MinReads, cfg.HomogeneousCutoff)
	},
}
