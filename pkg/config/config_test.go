package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()

	if c.GenomeLength != 1000 {
		t.Errorf("wrong default genome length: %d", c.GenomeLength)
	}
	if c.HomogeneousCutoff != 0.95 {
		t.Errorf("wrong default homogeneous cutoff: %f", c.HomogeneousCutoff)
	}
	if c.ClusterDistanceCutoff != 0.25 {
		t.Errorf("wrong default cluster distance cutoff: %f", c.ClusterDistanceCutoff)
	}
	if c.MeanLength != 100 || c.SDLength != 18 {
		t.Errorf("wrong default read length distribution: %f %f", c.MeanLength, c.SDLength)
	}
	if c.MinReads != 5 {
		t.Errorf("wrong default min reads: %d", c.MinReads)
	}
	if c.Bin != "../../bin" {
		t.Errorf("wrong default bin directory: %s", c.Bin)
	}
	if c.CCOut != "cc.out" || c.GreadyOut != "gready.out" || c.ClusterOut != "cluster.out" {
		t.Errorf("wrong default output filenames: %s %s %s", c.CCOut, c.GreadyOut, c.ClusterOut)
	}
}

func TestLoadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "gopipe.yaml")
	err := os.WriteFile(filename, []byte("minReads: 10\nbin: /opt/pipeline/bin\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	c := Default()
	if err = c.LoadFile(filename); err != nil {
		t.Fatal(err)
	}

	if c.MinReads != 10 {
		t.Errorf("minReads not overridden from file: %d", c.MinReads)
	}
	if c.Bin != "/opt/pipeline/bin" {
		t.Errorf("bin not overridden from file: %s", c.Bin)
	}

	// keys absent from the file keep their previous values
	if c.GenomeLength != 1000 || c.HomogeneousCutoff != 0.95 {
		t.Errorf("unrelated settings changed by LoadFile")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MIN_READS", "10")
	t.Setenv("HOMOGENEOUS_CUTOFF", "0.9")
	t.Setenv("CC_OUT", "components.txt")

	c := Default()
	if err := c.FromEnv(); err != nil {
		t.Fatal(err)
	}

	if c.MinReads != 10 {
		t.Errorf("MIN_READS not applied: %d", c.MinReads)
	}
	if c.HomogeneousCutoff != 0.9 {
		t.Errorf("HOMOGENEOUS_CUTOFF not applied: %f", c.HomogeneousCutoff)
	}
	if c.CCOut != "components.txt" {
		t.Errorf("CC_OUT not applied: %s", c.CCOut)
	}
	if c.GenomeLength != 1000 {
		t.Errorf("unset variable changed the config: %d", c.GenomeLength)
	}
}

func TestFromEnvBad(t *testing.T) {
	t.Setenv("GENOME_LENGTH", "a thousand")

	c := Default()
	if err := c.FromEnv(); err == nil {
		t.Errorf("no error for a non-numeric GENOME_LENGTH")
	}
}

func TestEnviron(t *testing.T) {
	c := Default()
	c.MinReads = 10

	environ := c.Environ()

	desiredResult := []string{
		"BIN=../../bin",
		"CC_OUT=cc.out",
		"GREADY_OUT=gready.out",
		"CLUSTER_OUT=cluster.out",
		"GENOME_LENGTH=1000",
		"HOMOGENEOUS_CUTOFF=0.95",
		"CLUSTER_DISTANCE_CUTOFF=0.25",
		"MEAN_LENGTH=100",
		"SD_LENGTH=18",
		"MIN_READS=10",
	}

	if !reflect.DeepEqual(environ, desiredResult) {
		t.Errorf("wrong environment: %v", environ)
	}
}
