package simulate

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/exp/rand"
)

func TestRandomGenome(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	genome := RandomGenome(rng, 1000)

	if len(genome) != 1000 {
		t.Fatalf("wrong genome length: %d", len(genome))
	}
	for i := 0; i < len(genome); i++ {
		switch genome[i] {
		case 'A', 'C', 'G', 'T':
		default:
			t.Fatalf("non-nucleotide character in genome: %c", genome[i])
		}
	}
}

func TestReads(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	genome := RandomGenome(rng, 200)

	opts := Options{Count: 50, MeanLength: 100, SDLength: 18}

	records, err := Reads(genome, opts, rng)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 50 {
		t.Fatalf("wrong number of reads: %d", len(records))
	}

	for i, FR := range records {
		if FR.ID != fmt.Sprintf("read-%d", i+1) {
			t.Errorf("wrong read id: %s", FR.ID)
		}

		if len(FR.Seq) < 1 || len(FR.Seq) > len(genome) {
			t.Errorf("read %s has impossible length %d", FR.ID, len(FR.Seq))
		}

		// the description records a genome offset the read really came from
		var id string
		var offset int
		if _, err := fmt.Sscanf(FR.Description, "%s genome offset %d", &id, &offset); err != nil {
			t.Fatalf("unparseable description: %q", FR.Description)
		}
		if genome[offset:offset+len(FR.Seq)] != FR.Seq {
			t.Errorf("read %s does not match the genome at offset %d", FR.ID, offset)
		}
	}
}

func TestReadsEmptyGenome(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if _, err := Reads("", Options{Count: 1, MeanLength: 10, SDLength: 1}, rng); err == nil {
		t.Error("no error for an empty genome")
	}
}

func TestSimulateReproducible(t *testing.T) {
	opts := Options{Count: 10, GenomeLength: 100, MeanLength: 30, SDLength: 5, Seed: 7}

	first := new(bytes.Buffer)
	if err := Simulate(nil, first, opts); err != nil {
		t.Fatal(err)
	}

	second := new(bytes.Buffer)
	if err := Simulate(nil, second, opts); err != nil {
		t.Fatal(err)
	}

	if first.String() != second.String() {
		t.Errorf("the same seed gave different output")
	}

	if strings.Count(first.String(), ">") != 10 {
		t.Errorf("wrong number of fasta records: %d", strings.Count(first.String(), ">"))
	}
}

func TestSimulateFromTemplate(t *testing.T) {
	genome := ">genome\n" + strings.Repeat("ACGT", 25) + "\n"
	opts := Options{Count: 5, MeanLength: 20, SDLength: 2, Seed: 3}

	out := new(bytes.Buffer)
	if err := Simulate(strings.NewReader(genome), out, opts); err != nil {
		t.Fatal(err)
	}

	// every read is a substring of the template
	template := strings.Repeat("ACGT", 25)
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if strings.HasPrefix(line, ">") {
			continue
		}
		if !strings.Contains(template, line) {
			t.Errorf("read is not a substring of the template: %q", line)
		}
	}
}
