package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/virus-evolution/gopipe/pkg/rules"
)

var makeJobs int
var makeForce bool
var makeDryRun bool
var makeWatch bool
var makeVerbose bool
var makeSamtools string

func init() {
	rootCmd.AddCommand(makeCmd)

	makeCmd.Flags().IntVarP(&makeJobs, "jobs", "j", 1, "Number of targets to build at once")
	makeCmd.Flags().BoolVarP(&makeForce, "force", "B", false, "Rebuild targets even if they are up to date")
	makeCmd.Flags().BoolVarP(&makeDryRun, "dry-run", "n", false, "Print the commands that would run without running them")
	makeCmd.Flags().BoolVarP(&makeWatch, "watch", "w", false, "Keep rebuilding targets whenever their sources change")
	makeCmd.Flags().BoolVarP(&makeVerbose, "verbose", "v", false, "Also log targets that are already up to date")
	makeCmd.Flags().StringVar(&makeSamtools, "samtools", "samtools", "Name or path of the samtools executable")

	makeCmd.Flags().SortFlags = false
}

var makeCmd = &cobra.Command{
	Use:   "make target [target...]",
	Short: "build targets from their sources by file extension",
	Long: `build targets from their sources by file extension

A target is rebuilt when it is missing or older than its source:

  X.bam    sorted, indexed bam from X.sam (samtools; also writes X.bam.bai)
  X.stats  per-reference read counts from X.sam (sam-reference-read-counts.py)
  X.fasta  filtered fasta from X.fastq (filter-fasta.py)

The helper scripts are looked up in the configured bin directory, and the
effective configuration is exported into their environment using the
historical Makefile variable names (MIN_READS, HOMOGENEOUS_CUTOFF, ...).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := makeLogger(makeVerbose)
		if err != nil {
			return err
		}
		defer log.Sync()

		runner := &rules.Runner{
			Rules:  rules.New(cfg, makeSamtools),
			Jobs:   makeJobs,
			Force:  makeForce,
			DryRun: makeDryRun,
			Env:    cfg.Environ(),
			Log:    log,
		}

		if makeWatch {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := runner.Watch(ctx, args)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		return runner.Run(context.Background(), args)
	},
}

func makeLogger(verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewDevelopmentConfig()
	if !verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	} else {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapConfig.Build()
}
