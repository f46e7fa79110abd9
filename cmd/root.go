package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virus-evolution/gopipe/pkg/config"
)

// cfg is the effective configuration, assembled before any subcommand runs:
// defaults, then the config file, then the environment (Makefile variable
// names), then explicitly set flags.
var cfg = config.Default()

var configFile string

var (
	rootCmd = &cobra.Command{
		Use:     "gopipe",
		Short:   "build rules and read-set analyses for viral deep sequencing pipelines",
		Long:    `build rules and read-set analyses for viral deep sequencing pipelines`,
		Version: "0.1.0",
	}
)

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return resolveConfig()
	}

	pf := rootCmd.PersistentFlags()

	pf.StringVar(&configFile, "config", "", "yaml file to read settings from")
	pf.StringVar(&cfg.Bin, "bin", cfg.Bin, "Directory containing the pipeline's helper scripts")
	pf.StringVar(&cfg.CCOut, "cc-out", cfg.CCOut, "Output filename for the connected components summary")
	pf.StringVar(&cfg.GreadyOut, "gready-out", cfg.GreadyOut, "Output filename for the greedy analysis")
	pf.StringVar(&cfg.ClusterOut, "cluster-out", cfg.ClusterOut, "Output filename for the cluster analysis")
	pf.IntVar(&cfg.GenomeLength, "genome-length", cfg.GenomeLength, "Length of the genome reads are aligned to")
	pf.Float64Var(&cfg.HomogeneousCutoff, "homogeneous-cutoff", cfg.HomogeneousCutoff, "Sites where the commonest base is above this fraction are homogeneous")
	pf.Float64Var(&cfg.ClusterDistanceCutoff, "cluster-distance-cutoff", cfg.ClusterDistanceCutoff, "Distance threshold for the cluster analysis")
	pf.Float64Var(&cfg.MeanLength, "mean-length", cfg.MeanLength, "Mean read length")
	pf.Float64Var(&cfg.SDLength, "sd-length", cfg.SDLength, "Standard deviation of read length")
	pf.IntVar(&cfg.MinReads, "min-reads", cfg.MinReads, "Minimum number of reads that must cover a significant site")
}

// resolveConfig layers the configuration sources. The flag values were
// parsed straight into cfg, so they are set aside first and reapplied on top
// of the file and environment values for the flags actually given.
func resolveConfig() error {
	fromFlags := cfg
	pf := rootCmd.PersistentFlags()

	cfg = config.Default()

	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return err
		}
	}

	if err := cfg.FromEnv(); err != nil {
		return err
	}

	if pf.Changed("bin") {
		cfg.Bin = fromFlags.Bin
	}
	if pf.Changed("cc-out") {
		cfg.CCOut = fromFlags.CCOut
	}
	if pf.Changed("gready-out") {
		cfg.GreadyOut = fromFlags.GreadyOut
	}
	if pf.Changed("cluster-out") {
		cfg.ClusterOut = fromFlags.ClusterOut
	}
	if pf.Changed("genome-length") {
		cfg.GenomeLength = fromFlags.GenomeLength
	}
	if pf.Changed("homogeneous-cutoff") {
		cfg.HomogeneousCutoff = fromFlags.HomogeneousCutoff
	}
	if pf.Changed("cluster-distance-cutoff") {
		cfg.ClusterDistanceCutoff = fromFlags.ClusterDistanceCutoff
	}
	if pf.Changed("mean-length") {
		cfg.MeanLength = fromFlags.MeanLength
	}
	if pf.Changed("sd-length") {
		cfg.SDLength = fromFlags.SDLength
	}
	if pf.Changed("min-reads") {
		cfg.MinReads = fromFlags.MinReads
	}

	return nil
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
