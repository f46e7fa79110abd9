/*
Package sam reads SAM format alignments of short reads against a single
reference, and provides the per-site read and base counts that the analysis
commands are built on
*/
package sam

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	biogosam "github.com/biogo/hts/sam"

	"github.com/virus-evolution/gopipe/pkg/fasta"
)

// An AlignedRead is one read laid out in reference space: Seq[i] is the
// read's base at genome offset Offset+i, with '-' standing in for deleted
// positions. Insertions relative to the reference are discarded.
type AlignedRead struct {
	ID     string
	Offset int
	Seq    []byte

	// The subset of the genome's significant offsets that this read covers,
	// sorted ascending. Populated by Alignment.AssignSignificantOffsets.
	SignificantOffsets []int
}

// End returns the offset one past the last genome position the read covers.
func (r *AlignedRead) End() int {
	return r.Offset + len(r.Seq)
}

// Base returns the read's base at a genome offset, and false if the read does
// not cover that offset.
func (r *AlignedRead) Base(offset int) (byte, bool) {
	if offset < r.Offset || offset >= r.End() {
		return 0, false
	}
	return r.Seq[offset-r.Offset], true
}

// ToFasta renders the read as a fasta record, with its genome offset in the
// description.
func (r *AlignedRead) ToFasta() fasta.Record {
	return fasta.Record{
		ID:          r.ID,
		Description: fmt.Sprintf("%s genome offset %d", r.ID, r.Offset),
		Seq:         string(r.Seq),
	}
}

// An Alignment is the set of mapped reads from one SAM file, plus the length
// of the genome they are aligned to.
type Alignment struct {
	GenomeLength int
	Reads        []*AlignedRead
}

// ReadAlignment reads a SAM file into an Alignment. Unmapped reads and
// secondary mappings are skipped, with a message on stderr, like the rest of
// this pipeline's tooling. The genome length is taken from the longest
// reference sequence declared in the header, falling back to the rightmost
// position covered by any read if the header declares none.
func ReadAlignment(f io.Reader) (*Alignment, error) {
	s, err := biogosam.NewReader(f)
	if err != nil {
		return nil, err
	}

	genomeLength := 0
	for _, ref := range s.Header().Refs() {
		if ref.Len() > genomeLength {
			genomeLength = ref.Len()
		}
	}

	a := &Alignment{GenomeLength: genomeLength}

	for {
		rec, err := s.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		if rec.Flags&biogosam.Unmapped != 0 {
			os.Stderr.WriteString("skipping unmapped read: " + rec.Name + "\n")
			continue
		}

		if rec.Flags&biogosam.Secondary != 0 {
			os.Stderr.WriteString("ignoring secondary mapping: " + rec.Name + "\n")
			continue
		}

		read, err := expandRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rec.Name, err)
		}

		a.Reads = append(a.Reads, read)

		if read.End() > a.GenomeLength {
			a.GenomeLength = read.End()
		}
	}

	return a, nil
}

// expandRecord walks one SAM record's CIGAR string to lay its sequence out in
// reference space
func expandRecord(rec *biogosam.Record) (*AlignedRead, error) {

	POS := rec.Pos

	if POS < 0 {
		return nil, errors.New("no mapping position")
	}

	SEQ := rec.Seq.Expand()

	seq := make([]byte, 0, len(SEQ))
	qstart := 0

	for _, op := range rec.Cigar {
		size := op.Len()

		switch op.Type() {
		case biogosam.CigarMatch, biogosam.CigarEqual, biogosam.CigarMismatch:
			seq = append(seq, SEQ[qstart:qstart+size]...)
			qstart += size
		case biogosam.CigarInsertion, biogosam.CigarSoftClipped:
			// consumes query only: no reference-space positions
			qstart += size
		case biogosam.CigarDeletion, biogosam.CigarSkipped:
			for i := 0; i < size; i++ {
				seq = append(seq, '-')
			}
		}
		// hard clips and padding consume neither
	}

	for i, b := range seq {
		if b >= 'a' && b <= 'z' {
			seq[i] = b - 32
		}
	}

	return &AlignedRead{ID: rec.Name, Offset: POS, Seq: seq}, nil
}

// A Pileup holds, for every genome offset, how many reads have a real base
// there and what those bases are. Only A, C, G and T count: deletions and
// ambiguity codes contribute to neither tally.
type Pileup struct {
	ReadCount []int
	BaseCount []map[byte]int
}

// Pile builds the per-offset counts for an alignment.
func (a *Alignment) Pile() *Pileup {
	p := &Pileup{
		ReadCount: make([]int, a.GenomeLength),
		BaseCount: make([]map[byte]int, a.GenomeLength),
	}

	for _, read := range a.Reads {
		for i, base := range read.Seq {
			switch base {
			case 'A', 'C', 'G', 'T':
				offset := read.Offset + i
				p.ReadCount[offset]++
				if p.BaseCount[offset] == nil {
					p.BaseCount[offset] = make(map[byte]int)
				}
				p.BaseCount[offset][base]++
			}
		}
	}

	return p
}

// SignificantOffsets returns the genome offsets that are covered by at least
// minReads reads and whose commonest base accounts for no more than
// homogeneousCutoff of them.
func (p *Pileup) SignificantOffsets(minReads int, homogeneousCutoff float64) []int {
	var offsets []int

	for offset, count := range p.ReadCount {
		if count < minReads {
			continue
		}

		max := 0
		for _, n := range p.BaseCount[offset] {
			if n > max {
				max = n
			}
		}

		if float64(max)/float64(count) <= homogeneousCutoff {
			offsets = append(offsets, offset)
		}
	}

	return offsets
}

// AssignSignificantOffsets records on each read the subset of offsets it
// covers. offsets must be sorted ascending.
func (a *Alignment) AssignSignificantOffsets(offsets []int) {
	for _, read := range a.Reads {
		read.SignificantOffsets = nil

		// offsets is sorted, so only the window overlapping the read matters
		lo := sort.SearchInts(offsets, read.Offset)
		for _, offset := range offsets[lo:] {
			if offset >= read.End() {
				break
			}
			read.SignificantOffsets = append(read.SignificantOffsets, offset)
		}
	}
}

// SignificantReads returns the reads covering at least one significant
// offset.
func (a *Alignment) SignificantReads() []*AlignedRead {
	var reads []*AlignedRead
	for _, read := range a.Reads {
		if len(read.SignificantOffsets) > 0 {
			reads = append(reads, read)
		}
	}
	return reads
}
