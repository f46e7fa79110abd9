/*
Package frequencies reports the base frequencies and entropy at the
significant sites of an alignment of reads against a single reference
*/
package frequencies

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"

	"github.com/virus-evolution/gopipe/pkg/sam"
)

// A Site is the base tally at one significant genome offset.
type Site struct {
	Offset    int
	ReadCount int
	Counts    map[byte]int
}

// MaxFrequency returns the frequency of the site's commonest base.
func (s Site) MaxFrequency() float64 {
	max := 0
	for _, n := range s.Counts {
		if n > max {
			max = n
		}
	}
	return float64(max) / float64(s.ReadCount)
}

// Entropy returns the natural-log entropy of the site's base distribution.
// It can never exceed ln(4), all four bases being equally frequent.
func (s Site) Entropy() float64 {
	probs := make([]float64, 0, len(s.Counts))
	for _, n := range s.Counts {
		probs = append(probs, float64(n)/float64(s.ReadCount))
	}
	return stat.Entropy(probs)
}

// BaseCountsString renders the site's base counts in a fixed order, e.g.
// "A:2 G:1".
func (s Site) BaseCountsString() string {
	out := ""
	for _, base := range []byte{'A', 'C', 'G', 'T'} {
		if n, ok := s.Counts[base]; ok {
			if out != "" {
				out += " "
			}
			out += fmt.Sprintf("%c:%d", base, n)
		}
	}
	return out
}

// Gather collects the Site tallies for a set of (sorted) genome offsets.
func Gather(p *sam.Pileup, offsets []int) []Site {
	sites := make([]Site, len(offsets))
	for i, offset := range offsets {
		sites[i] = Site{
			Offset:    offset,
			ReadCount: p.ReadCount[offset],
			Counts:    p.BaseCount[offset],
		}
	}
	return sites
}

// WriteTSV writes one row per site: 1-based location, read count, maximum
// base frequency, entropy, and the base counts. sortOn may be "" (genome
// order), "max" or "entropy".
func WriteTSV(w io.Writer, sites []Site, sortOn string) error {
	switch sortOn {
	case "":
	case "max":
		slices.SortStableFunc(sites, func(a, b Site) bool {
			return a.MaxFrequency() < b.MaxFrequency()
		})
	case "entropy":
		slices.SortStableFunc(sites, func(a, b Site) bool {
			return a.Entropy() < b.Entropy()
		})
	default:
		return fmt.Errorf("unknown sort order: %s", sortOn)
	}

	if _, err := fmt.Fprintln(w, "location\treadCount\tmaxFrequency\tentropy\tbases"); err != nil {
		return err
	}

	for _, site := range sites {
		_, err := fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4f\t%s\n",
			site.Offset+1, site.ReadCount, site.MaxFrequency(), site.Entropy(),
			site.BaseCountsString())
		if err != nil {
			return err
		}
	}

	return nil
}

// Frequencies reads a SAM file and writes the significant-site report for it.
func Frequencies(in io.Reader, out io.Writer, minReads int, homogeneousCutoff float64, sortOn string) error {
	a, err := sam.ReadAlignment(in)
	if err != nil {
		return err
	}

	p := a.Pile()
	offsets := p.SignificantOffsets(minReads, homogeneousCutoff)

	os.Stderr.WriteString(fmt.Sprintf(
		"read %d aligned reads of length %d, found %d significant locations\n",
		len(a.Reads), a.GenomeLength, len(offsets)))

	return WriteTSV(out, Gather(p, offsets), sortOn)
}
