/*
Package rules implements the pipeline's file-extension build rules: sorted,
indexed bam files from sam files, per-reference read-count statistics from
sam files, and filtered fasta files from fastq files. The work itself is done
by samtools and by the pipeline's helper scripts; this package only decides
what to run, and when a target is out of date with respect to its source.
*/
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/virus-evolution/gopipe/pkg/config"
)

// A Step is one external command line, or a pipeline of them: each command's
// stdout feeds the next command's stdin. If Stdin or Stdout name files, the
// first command reads from and the last command writes to them.
type Step struct {
	Argv   [][]string
	Stdin  string
	Stdout string
}

// String renders the step the way a shell would write it.
func (s Step) String() string {
	parts := make([]string, len(s.Argv))
	for i, argv := range s.Argv {
		parts[i] = strings.Join(argv, " ")
	}

	out := strings.Join(parts, " | ")
	if s.Stdin != "" {
		out += " < " + s.Stdin
	}
	if s.Stdout != "" {
		out += " > " + s.Stdout
	}
	return out
}

// A Rule builds targets with one extension from sources with another.
type Rule struct {
	TargetExt string
	SourceExt string
	Short     string

	// Steps returns the commands that build target from source, in order.
	Steps func(target, source string) []Step
}

// A Ruleset is the collection of rules the pipeline knows, bound to a
// configuration and a samtools executable.
type Ruleset struct {
	rules []Rule
}

// New returns the pipeline's ruleset. samtools is the executable name or
// path; the helper scripts are looked up under cfg.Bin.
func New(cfg config.Config, samtools string) *Ruleset {
	return &Ruleset{rules: []Rule{
		{
			TargetExt: ".bam",
			SourceExt: ".sam",
			Short:     "sort and index a sam file into a bam file",
			Steps: func(target, source string) []Step {
				// samtools sort scatters temp files under this prefix
				tmp := filepath.Join(os.TempDir(), "gopipe-sort-"+uuid.NewString())
				return []Step{
					{Argv: [][]string{
						{samtools, "view", "-b", source},
						{samtools, "sort", "-T", tmp, "-o", target, "-"},
					}},
					{Argv: [][]string{
						{samtools, "index", target},
					}},
				}
			},
		},
		{
			TargetExt: ".stats",
			SourceExt: ".sam",
			Short:     "per-reference read counts from a sam file",
			Steps: func(target, source string) []Step {
				return []Step{
					{
						Argv:   [][]string{{filepath.Join(cfg.Bin, "sam-reference-read-counts.py"), source}},
						Stdout: target,
					},
				}
			},
		},
		{
			TargetExt: ".fasta",
			SourceExt: ".fastq",
			Short:     "filter a fastq file into a fasta file",
			Steps: func(target, source string) []Step {
				return []Step{
					{
						Argv:   [][]string{{filepath.Join(cfg.Bin, "filter-fasta.py"), "--quiet", "--fastq", "--saveAs", "fasta"}},
						Stdin:  source,
						Stdout: target,
					},
				}
			},
		},
	}}
}

// Resolve finds the rule for a target by its extension and returns it along
// with the source filename the rule would build the target from.
func (rs *Ruleset) Resolve(target string) (Rule, string, error) {
	ext := filepath.Ext(target)

	for _, rule := range rs.rules {
		if rule.TargetExt == ext {
			source := strings.TrimSuffix(target, ext) + rule.SourceExt
			return rule, source, nil
		}
	}

	return Rule{}, "", fmt.Errorf("no rule to make target %s", target)
}

// NeedsBuild reports whether target is missing or older than source. A
// missing source is an error.
func NeedsBuild(target, source string) (bool, error) {
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return false, fmt.Errorf("target %s: source %s: %w", target, source, err)
	}

	targetInfo, err := os.Stat(target)
	if os.IsNotExist(err) {
		return true, nil
	} else if err != nil {
		return false, err
	}

	return targetInfo.ModTime().Before(sourceInfo.ModTime()), nil
}
