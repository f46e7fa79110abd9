/*
Package simulate samples synthetic reads from a genome, with read lengths
drawn from a normal distribution, for exercising the rest of the pipeline
*/
package simulate

import (
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/virus-evolution/gopipe/pkg/fasta"
)

// Options controls a simulation run.
type Options struct {
	// How many reads to generate.
	Count int

	// The genome length, used when no template genome is supplied.
	GenomeLength int

	// The read length distribution.
	MeanLength float64
	SDLength   float64

	// Seed for the random source, for reproducible output.
	Seed uint64
}

// RandomGenome generates a uniform random genome sequence.
func RandomGenome(rng *rand.Rand, length int) string {
	bases := []byte{'A', 'C', 'G', 'T'}
	genome := make([]byte, length)
	for i := range genome {
		genome[i] = bases[rng.Intn(len(bases))]
	}
	return string(genome)
}

// Reads samples opts.Count reads from genome. Lengths are drawn from
// Normal(opts.MeanLength, opts.SDLength), clamped to [1, len(genome)], and
// start offsets are uniform over the positions the read fits at. Each read
// is named read-<n> with its genome offset in the description, matching the
// layout the analysis commands write.
func Reads(genome string, opts Options, rng *rand.Rand) ([]fasta.Record, error) {
	if len(genome) == 0 {
		return nil, errors.New("empty genome")
	}

	lengths := distuv.Normal{Mu: opts.MeanLength, Sigma: opts.SDLength, Src: rng}

	records := make([]fasta.Record, opts.Count)

	for i := range records {
		length := int(math.Round(lengths.Rand()))
		if length < 1 {
			length = 1
		}
		if length > len(genome) {
			length = len(genome)
		}

		offset := rng.Intn(len(genome) - length + 1)
		id := fmt.Sprintf("read-%d", i+1)

		records[i] = fasta.Record{
			ID:          id,
			Description: fmt.Sprintf("%s genome offset %d", id, offset),
			Seq:         genome[offset : offset+length],
			Idx:         i,
		}
	}

	return records, nil
}

// Simulate writes simulated reads in fasta format to out. If genomeIn is
// non-nil the first fasta record read from it is the template genome,
// otherwise a random genome of opts.GenomeLength is used.
func Simulate(genomeIn io.Reader, out io.Writer, opts Options) error {
	rng := rand.New(rand.NewSource(opts.Seed))

	var genome string

	if genomeIn != nil {
		FR, err := fasta.NewReader(genomeIn).Read()
		if err != nil {
			return fmt.Errorf("reading template genome: %w", err)
		}
		genome = FR.Seq
	} else {
		genome = RandomGenome(rng, opts.GenomeLength)
	}

	records, err := Reads(genome, opts, rng)
	if err != nil {
		return err
	}

	w := fasta.NewWriter(out)
	for _, FR := range records {
		if err := w.Write(FR); err != nil {
			return err
		}
	}

	return w.Flush()
}
