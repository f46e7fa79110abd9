package rules

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/virus-evolution/gopipe/pkg/config"
)

func testRuleset() *Ruleset {
	cfg := config.Default()
	cfg.Bin = "/opt/pipeline/bin"
	return New(cfg, "samtools")
}

func TestResolve(t *testing.T) {
	rs := testRuleset()

	cases := []struct {
		target, source string
	}{
		{"sample.bam", "sample.sam"},
		{"sample.stats", "sample.sam"},
		{"reads.fasta", "reads.fastq"},
		{"some/dir/sample.bam", "some/dir/sample.sam"},
	}

	for _, c := range cases {
		rule, source, err := rs.Resolve(c.target)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", c.target, err)
		}
		if source != c.source {
			t.Errorf("Resolve(%s): wrong source %s", c.target, source)
		}
		if rule.TargetExt != filepath.Ext(c.target) {
			t.Errorf("Resolve(%s): wrong rule %s", c.target, rule.TargetExt)
		}
	}
}

func TestResolveUnknownExtension(t *testing.T) {
	rs := testRuleset()

	for _, target := range []string{"sample.vcf", "noextension"} {
		if _, _, err := rs.Resolve(target); err == nil {
			t.Errorf("no error for %s", target)
		}
	}
}

func TestBamRuleSteps(t *testing.T) {
	rs := testRuleset()

	rule, source, err := rs.Resolve("sample.bam")
	if err != nil {
		t.Fatal(err)
	}

	steps := rule.Steps("sample.bam", source)
	if len(steps) != 2 {
		t.Fatalf("wrong number of steps: %d", len(steps))
	}

	// first step: view piped into sort, writing the target
	if len(steps[0].Argv) != 2 {
		t.Fatalf("first step is not a pipeline: %v", steps[0].Argv)
	}
	if !reflect.DeepEqual(steps[0].Argv[0], []string{"samtools", "view", "-b", "sample.sam"}) {
		t.Errorf("wrong view command: %v", steps[0].Argv[0])
	}
	sort := steps[0].Argv[1]
	if sort[0] != "samtools" || sort[1] != "sort" {
		t.Errorf("wrong sort command: %v", sort)
	}
	if sort[len(sort)-3] != "-o" || sort[len(sort)-2] != "sample.bam" || sort[len(sort)-1] != "-" {
		t.Errorf("sort does not write the target from stdin: %v", sort)
	}

	// second step: index the bam, producing sample.bam.bai
	if !reflect.DeepEqual(steps[1].Argv, [][]string{{"samtools", "index", "sample.bam"}}) {
		t.Errorf("wrong index command: %v", steps[1].Argv)
	}

	// the sort temp prefix must be unique per invocation
	again := rule.Steps("sample.bam", source)
	if reflect.DeepEqual(steps[0].Argv[1], again[0].Argv[1]) {
		t.Errorf("sort temp prefix reused across invocations")
	}
}

func TestStatsRuleSteps(t *testing.T) {
	rs := testRuleset()

	rule, source, err := rs.Resolve("sample.stats")
	if err != nil {
		t.Fatal(err)
	}

	steps := rule.Steps("sample.stats", source)

	desiredResult := []Step{{
		Argv:   [][]string{{"/opt/pipeline/bin/sam-reference-read-counts.py", "sample.sam"}},
		Stdout: "sample.stats",
	}}

	if !reflect.DeepEqual(steps, desiredResult) {
		t.Errorf("wrong steps: %v", steps)
	}
}

func TestFastaRuleSteps(t *testing.T) {
	rs := testRuleset()

	rule, source, err := rs.Resolve("reads.fasta")
	if err != nil {
		t.Fatal(err)
	}

	steps := rule.Steps("reads.fasta", source)

	desiredResult := []Step{{
		Argv:   [][]string{{"/opt/pipeline/bin/filter-fasta.py", "--quiet", "--fastq", "--saveAs", "fasta"}},
		Stdin:  "reads.fastq",
		Stdout: "reads.fasta",
	}}

	if !reflect.DeepEqual(steps, desiredResult) {
		t.Errorf("wrong steps: %v", steps)
	}
}

func TestStepString(t *testing.T) {
	step := Step{
		Argv:   [][]string{{"samtools", "view", "-b", "a.sam"}, {"samtools", "sort", "-o", "a.bam", "-"}},
		Stdin:  "",
		Stdout: "",
	}
	if step.String() != "samtools view -b a.sam | samtools sort -o a.bam -" {
		t.Errorf("wrong rendering: %q", step.String())
	}

	step = Step{Argv: [][]string{{"filter-fasta.py", "--quiet"}}, Stdin: "r.fastq", Stdout: "r.fasta"}
	if step.String() != "filter-fasta.py --quiet < r.fastq > r.fasta" {
		t.Errorf("wrong rendering: %q", step.String())
	}
}

func TestNeedsBuild(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "sample.sam")
	target := filepath.Join(dir, "sample.bam")

	// missing source: error
	if _, err := NeedsBuild(target, source); err == nil {
		t.Error("no error for a missing source")
	}

	if err := os.WriteFile(source, []byte("@HD\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// missing target: build
	need, err := NeedsBuild(target, source)
	if err != nil {
		t.Fatal(err)
	}
	if !need {
		t.Error("missing target reported as up to date")
	}

	if err = os.WriteFile(target, []byte("bam"), 0644); err != nil {
		t.Fatal(err)
	}

	// target newer than source: up to date
	now := time.Now()
	os.Chtimes(source, now.Add(-time.Hour), now.Add(-time.Hour))
	os.Chtimes(target, now, now)

	need, err = NeedsBuild(target, source)
	if err != nil {
		t.Fatal(err)
	}
	if need {
		t.Error("fresh target reported as stale")
	}

	// source newer than target: build
	os.Chtimes(source, now.Add(time.Hour), now.Add(time.Hour))

	need, err = NeedsBuild(target, source)
	if err != nil {
		t.Fatal(err)
	}
	if !need {
		t.Error("stale target reported as up to date")
	}
}
