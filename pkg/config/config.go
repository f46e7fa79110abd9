/*
Package config holds the pipeline settings and their defaults. Every value can
be overridden by a yaml config file, by an environment variable using the
historical Makefile spelling (e.g. MIN_READS), or by a command line flag, in
that order of increasing precedence.
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full set of pipeline settings. The zero value is not useful:
// start from Default().
type Config struct {
	// The directory containing the pipeline's helper scripts
	// (sam-reference-read-counts.py, filter-fasta.py).
	Bin string `yaml:"bin"`

	// Output filenames for the downstream analyses.
	CCOut      string `yaml:"ccOut"`
	GreadyOut  string `yaml:"greadyOut"`
	ClusterOut string `yaml:"clusterOut"`

	// The length of the genome reads are aligned to.
	GenomeLength int `yaml:"genomeLength"`

	// A genome site is homogeneous (and so not significant) if its commonest
	// base accounts for more than this fraction of the reads covering it.
	HomogeneousCutoff float64 `yaml:"homogeneousCutoff"`

	// Distance threshold for the downstream cluster analysis.
	ClusterDistanceCutoff float64 `yaml:"clusterDistanceCutoff"`

	// Mean and standard deviation of read lengths, for read simulation.
	MeanLength float64 `yaml:"meanLength"`
	SDLength   float64 `yaml:"sdLength"`

	// The minimum number of reads that must cover a site for it to be
	// considered significant.
	MinReads int `yaml:"minReads"`
}

// Default returns the configuration with every setting at its default value.
func Default() Config {
	return Config{
		Bin:                   "../../bin",
		CCOut:                 "cc.out",
		GreadyOut:             "gready.out",
		ClusterOut:            "cluster.out",
		GenomeLength:          1000,
		HomogeneousCutoff:     0.95,
		ClusterDistanceCutoff: 0.25,
		MeanLength:            100,
		SDLength:              18,
		MinReads:              5,
	}
}

// LoadFile overlays the settings present in a yaml file on top of the
// receiver. Keys absent from the file are left alone.
func (c *Config) LoadFile(filename string) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", filename, err)
	}
	return nil
}

// FromEnv overlays any settings present in the environment, using the
// Makefile variable names, on top of the receiver.
func (c *Config) FromEnv() error {
	var err error

	if v, ok := os.LookupEnv("BIN"); ok {
		c.Bin = v
	}
	if v, ok := os.LookupEnv("CC_OUT"); ok {
		c.CCOut = v
	}
	if v, ok := os.LookupEnv("GREADY_OUT"); ok {
		c.GreadyOut = v
	}
	if v, ok := os.LookupEnv("CLUSTER_OUT"); ok {
		c.ClusterOut = v
	}
	if c.GenomeLength, err = intEnv("GENOME_LENGTH", c.GenomeLength); err != nil {
		return err
	}
	if c.HomogeneousCutoff, err = floatEnv("HOMOGENEOUS_CUTOFF", c.HomogeneousCutoff); err != nil {
		return err
	}
	if c.ClusterDistanceCutoff, err = floatEnv("CLUSTER_DISTANCE_CUTOFF", c.ClusterDistanceCutoff); err != nil {
		return err
	}
	if c.MeanLength, err = floatEnv("MEAN_LENGTH", c.MeanLength); err != nil {
		return err
	}
	if c.SDLength, err = floatEnv("SD_LENGTH", c.SDLength); err != nil {
		return err
	}
	if c.MinReads, err = intEnv("MIN_READS", c.MinReads); err != nil {
		return err
	}

	return nil
}

// Environ returns the settings as KEY=value strings using the Makefile
// variable names, suitable for appending to a child process's environment so
// that downstream scripts see the caller's overrides.
func (c Config) Environ() []string {
	return []string{
		"BIN=" + c.Bin,
		"CC_OUT=" + c.CCOut,
		"GREADY_OUT=" + c.GreadyOut,
		"CLUSTER_OUT=" + c.ClusterOut,
		"GENOME_LENGTH=" + strconv.Itoa(c.GenomeLength),
		"HOMOGENEOUS_CUTOFF=" + formatFloat(c.HomogeneousCutoff),
		"CLUSTER_DISTANCE_CUTOFF=" + formatFloat(c.ClusterDistanceCutoff),
		"MEAN_LENGTH=" + formatFloat(c.MeanLength),
		"SD_LENGTH=" + formatFloat(c.SDLength),
		"MIN_READS=" + strconv.Itoa(c.MinReads),
	}
}

// String renders the configuration as yaml.
func (c Config) String() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		// Config contains nothing yaml can fail to marshal.
		panic(err)
	}
	return string(b)
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return i, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return f, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
