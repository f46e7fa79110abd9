/*
Package component groups the reads that cover an alignment's significant
sites into connected components (reads linked by sharing significant sites)
and, within each component, into consistent components (reads that also agree
about the bases at those sites)
*/
package component

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"

	"github.com/virus-evolution/gopipe/pkg/fasta"
	"github.com/virus-evolution/gopipe/pkg/sam"
)

// A ConsistentComponent is a set of reads that share significant offsets and
// largely agree on the bases present at them. Nucleotides tallies the bases
// its reads have at each of those offsets.
type ConsistentComponent struct {
	Reads       []*sam.AlignedRead
	Nucleotides map[int]map[byte]int
}

// A Component is a set of reads connected by sharing significant offsets,
// regardless of whether they agree about the bases there, split into its
// consistent sub-components.
type Component struct {
	Reads      []*sam.AlignedRead
	Offsets    []int
	Consistent []*ConsistentComponent
}

// Commonest returns the most frequent base in counts. Draws are broken in
// favour of drawBreaker if it is among the most frequent, else the
// alphabetically first of them.
func Commonest(counts map[byte]int, drawBreaker byte) byte {
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	var best []byte
	for base, n := range counts {
		if n == max {
			best = append(best, base)
		}
	}
	slices.Sort(best)

	for _, base := range best {
		if base == drawBreaker {
			return base
		}
	}

	return best[0]
}

// readOrder sorts reads by genome offset, then by id, for stable output.
func readOrder(a, b *sam.AlignedRead) bool {
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	return a.ID < b.ID
}

// seedOrder sorts reads by number of significant offsets covered (most
// first), then by genome offset (rightmost first): the order in which reads
// are considered when growing a consistent component.
func seedOrder(a, b *sam.AlignedRead) bool {
	if len(a.SignificantOffsets) != len(b.SignificantOffsets) {
		return len(a.SignificantOffsets) > len(b.SignificantOffsets)
	}
	return a.Offset > b.Offset
}

// ConnectedComponents partitions reads into components connected by shared
// significant offsets, then splits each component into consistent components
// using threshold (see findConsistentComponents). Every read passed in must
// cover at least one significant offset.
func ConnectedComponents(reads []*sam.AlignedRead, threshold float64) ([]*Component, error) {
	pending := make([]*sam.AlignedRead, len(reads))
	copy(pending, reads)
	slices.SortFunc(pending, readOrder)

	var components []*Component

	for len(pending) > 0 {
		component := []*sam.AlignedRead{pending[0]}
		pending = pending[1:]

		offsets := make(map[int]bool)
		for _, offset := range component[0].SignificantOffsets {
			offsets[offset] = true
		}

		// keep absorbing reads that share an offset with the component until
		// a pass adds nothing
		addedSomething := true
		for addedSomething {
			addedSomething = false
			var rest []*sam.AlignedRead
			for _, read := range pending {
				if coversAny(read, offsets) {
					addedSomething = true
					component = append(component, read)
					for _, offset := range read.SignificantOffsets {
						offsets[offset] = true
					}
				} else {
					rest = append(rest, read)
				}
			}
			pending = rest
		}

		c, err := newComponent(component, offsets, threshold)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}

	return components, nil
}

func coversAny(read *sam.AlignedRead, offsets map[int]bool) bool {
	for _, offset := range read.SignificantOffsets {
		if offsets[offset] {
			return true
		}
	}
	return false
}

func newComponent(reads []*sam.AlignedRead, offsets map[int]bool, threshold float64) (*Component, error) {
	c := &Component{Reads: reads}

	for offset := range offsets {
		c.Offsets = append(c.Offsets, offset)
	}
	slices.Sort(c.Offsets)

	c.Consistent = findConsistentComponents(reads, threshold)

	// the consistent components must partition the component's reads
	n := 0
	for _, cc := range c.Consistent {
		n += len(cc.Reads)
	}
	if n != len(c.Reads) {
		return nil, fmt.Errorf("consistent components hold %d reads, component has %d", n, len(c.Reads))
	}

	slices.SortFunc(c.Reads, readOrder)

	return c, nil
}

// findConsistentComponents repeatedly seeds a new consistent component with
// the unassigned read covering the most significant offsets and grows it in
// two phases: first all reads that agree exactly with the bases seen so far
// at every shared offset, then any first-phase reject whose fraction of
// agreeing offsets is at least threshold.
func findConsistentComponents(reads []*sam.AlignedRead, threshold float64) []*ConsistentComponent {
	pending := make([]*sam.AlignedRead, len(reads))
	copy(pending, reads)
	slices.SortFunc(pending, seedOrder)

	var consistent []*ConsistentComponent

	for len(pending) > 0 {
		seed := pending[0]
		these := []*sam.AlignedRead{seed}

		nucleotides := make(map[int]map[byte]int)
		addNucleotides(nucleotides, seed)

		var rejected []*sam.AlignedRead

		// first phase: accept reads that agree exactly at every offset the
		// growing component already has an opinion about
		for _, read := range pending[1:] {
			if agreesExactly(nucleotides, read) {
				addNucleotides(nucleotides, read)
				these = append(these, read)
			} else {
				rejected = append(rejected, read)
			}
		}

		// second phase: re-admit rejects that agree at a high enough
		// fraction of the shared offsets. Their bases are tallied only after
		// all admission decisions, so earlier rejects can't vouch for later
		// ones.
		var accepted []*sam.AlignedRead
		var stillPending []*sam.AlignedRead
		for _, read := range rejected {
			if agreement(nucleotides, read) >= threshold {
				accepted = append(accepted, read)
				these = append(these, read)
			} else {
				stillPending = append(stillPending, read)
			}
		}
		for _, read := range accepted {
			addNucleotides(nucleotides, read)
		}

		pending = stillPending

		slices.SortFunc(these, readOrder)
		consistent = append(consistent, &ConsistentComponent{Reads: these, Nucleotides: nucleotides})
	}

	return consistent
}

func addNucleotides(nucleotides map[int]map[byte]int, read *sam.AlignedRead) {
	for _, offset := range read.SignificantOffsets {
		base, _ := read.Base(offset)
		if nucleotides[offset] == nil {
			nucleotides[offset] = make(map[byte]int)
		}
		nucleotides[offset][base]++
	}
}

// agreesExactly reports whether, at every one of the read's significant
// offsets the tally has seen, the read's base has already been seen there.
func agreesExactly(nucleotides map[int]map[byte]int, read *sam.AlignedRead) bool {
	for _, offset := range read.SignificantOffsets {
		if counts, ok := nucleotides[offset]; ok {
			base, _ := read.Base(offset)
			if counts[base] == 0 {
				return false
			}
		}
	}
	return true
}

// agreement returns the fraction of the read's significant offsets known to
// the tally at which the read's base has been seen. A read sharing no
// offsets with the tally has agreement 0.
func agreement(nucleotides map[int]map[byte]int, read *sam.AlignedRead) float64 {
	total, matching := 0, 0
	for _, offset := range read.SignificantOffsets {
		if counts, ok := nucleotides[offset]; ok {
			total++
			base, _ := read.Base(offset)
			if counts[base] > 0 {
				matching++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matching) / float64(total)
}

// Summarize writes a human-readable description of the consistent component.
func (cc *ConsistentComponent) Summarize(w io.Writer, count int) {
	fmt.Fprintf(w, "    consistent component %d: %d reads, covering %d offsets\n",
		count, len(cc.Reads), len(cc.Nucleotides))
	fmt.Fprintf(w, "    nucleotides for each offset:\n")

	offsets := make([]int, 0, len(cc.Nucleotides))
	for offset := range cc.Nucleotides {
		offsets = append(offsets, offset)
	}
	slices.Sort(offsets)

	for _, offset := range offsets {
		counts := cc.Nucleotides[offset]
		bases := make([]byte, 0, len(counts))
		for base := range counts {
			bases = append(bases, base)
		}
		slices.Sort(bases)

		line := fmt.Sprintf("      %d:", offset)
		for _, base := range bases {
			line += fmt.Sprintf(" %c:%d", base, counts[base])
		}
		fmt.Fprintf(w, "%s commonest:%c\n", line, Commonest(counts, 'A'))
	}

	fmt.Fprintf(w, "    reads:\n")
	for _, read := range cc.Reads {
		fmt.Fprintf(w, "      %s (offset %d, length %d)\n", read.ID, read.Offset, len(read.Seq))
	}
}

// SaveFasta writes the consistent component's reads as fasta.
func (cc *ConsistentComponent) SaveFasta(w io.Writer) error {
	fw := fasta.NewWriter(w)
	for _, read := range cc.Reads {
		if err := fw.Write(read.ToFasta()); err != nil {
			return err
		}
	}
	return fw.Flush()
}

// Summarize writes a human-readable description of the component and its
// consistent components.
func (c *Component) Summarize(w io.Writer, count int) {
	fmt.Fprintf(w, "component %d: %d reads, covering %d offsets\n", count, len(c.Reads), len(c.Offsets))

	line := "  offsets:"
	for _, offset := range c.Offsets {
		line += fmt.Sprintf(" %d", offset)
	}
	fmt.Fprintln(w, line)

	for _, read := range c.Reads {
		fmt.Fprintf(w, "  %s (offset %d, length %d)\n", read.ID, read.Offset, len(read.Seq))
	}

	for i, cc := range c.Consistent {
		cc.Summarize(w, i+1)
	}
}

// SaveFasta writes one fasta file per consistent component into dir, named
// component-<count>-<i>.fasta.
func (c *Component) SaveFasta(dir string, count int) error {
	for i, cc := range c.Consistent {
		filename := filepath.Join(dir, fmt.Sprintf("component-%d-%d.fasta", count, i+1))

		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		if err = cc.SaveFasta(f); err != nil {
			f.Close()
			return err
		}
		if err = f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Components reads a SAM file, finds its significant sites, and writes the
// connected-component summary to out and one fasta file per consistent
// component into outdir.
func Components(in io.Reader, out io.Writer, outdir string, minReads int, homogeneousCutoff float64) error {
	a, err := sam.ReadAlignment(in)
	if err != nil {
		return err
	}

	p := a.Pile()
	offsets := p.SignificantOffsets(minReads, homogeneousCutoff)
	a.AssignSignificantOffsets(offsets)

	significant := a.SignificantReads()

	os.Stderr.WriteString(fmt.Sprintf(
		"read %d aligned reads of length %d, %d reads cover %d significant locations\n",
		len(a.Reads), a.GenomeLength, len(significant), len(offsets)))

	components, err := ConnectedComponents(significant, homogeneousCutoff)
	if err != nil {
		return err
	}

	for i, c := range components {
		c.Summarize(out, i+1)
		if err = c.SaveFasta(outdir, i+1); err != nil {
			return err
		}
	}

	return nil
}
