package rules

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// A Runner builds targets with a Ruleset. Failures propagate the external
// command's exit status: there are no retries, and the first failure cancels
// the commands of any targets still building.
type Runner struct {
	Rules *Ruleset

	// How many targets may build at once. Values < 1 mean one at a time.
	Jobs int

	// Force rebuilds targets even when they are up to date.
	Force bool

	// DryRun writes the commands that would run to Stdout without running
	// them.
	DryRun bool

	// Extra KEY=value pairs appended to each child process's environment,
	// normally config.Config.Environ().
	Env []string

	// Stdout is where dry runs print commands; nil means os.Stdout.
	Stdout io.Writer

	// Log is the runner's logger; nil means no logging.
	Log *zap.Logger
}

func (r *Runner) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

// Run builds every target, up to Jobs of them concurrently. The first
// failure's error is returned.
func (r *Runner) Run(ctx context.Context, targets []string) error {
	g, ctx := errgroup.WithContext(ctx)

	jobs := r.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)

	for _, target := range targets {
		target := target
		g.Go(func() error {
			return r.Build(ctx, target)
		})
	}

	return g.Wait()
}

// Build brings one target up to date.
func (r *Runner) Build(ctx context.Context, target string) error {
	log := r.logger()

	rule, source, err := r.Rules.Resolve(target)
	if err != nil {
		return err
	}

	if !r.Force {
		need, err := NeedsBuild(target, source)
		if err != nil {
			return err
		}
		if !need {
			log.Debug("up to date", zap.String("target", target))
			return nil
		}
	}

	for _, step := range rule.Steps(target, source) {
		if r.DryRun {
			fmt.Fprintln(r.stdout(), step.String())
			continue
		}

		log.Info("running",
			zap.String("target", target),
			zap.String("source", source),
			zap.String("command", step.String()))

		if err := r.runStep(ctx, step); err != nil {
			log.Error("failed",
				zap.String("target", target),
				zap.String("command", step.String()),
				zap.Error(err))
			return fmt.Errorf("building %s: %s: %w", target, step.String(), err)
		}
	}

	log.Info("built", zap.String("target", target))

	return nil
}

// runStep runs one step's commands, wired together as a pipeline where there
// is more than one. Stderr of every command passes through to this process's
// stderr, like it would under make.
func (r *Runner) runStep(ctx context.Context, step Step) error {
	cmds := make([]*exec.Cmd, len(step.Argv))

	for i, argv := range step.Argv {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Env = append(os.Environ(), r.Env...)
		cmd.Stderr = os.Stderr
		cmds[i] = cmd
	}

	if step.Stdin != "" {
		in, err := os.Open(step.Stdin)
		if err != nil {
			return err
		}
		defer in.Close()
		cmds[0].Stdin = in
	}

	if step.Stdout != "" {
		out, err := os.Create(step.Stdout)
		if err != nil {
			return err
		}
		defer out.Close()
		cmds[len(cmds)-1].Stdout = out
	}

	for i := 1; i < len(cmds); i++ {
		pipe, err := cmds[i-1].StdoutPipe()
		if err != nil {
			return err
		}
		cmds[i].Stdin = pipe
	}

	for _, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			return err
		}
	}

	// wait on every command so none is left behind, but report the first
	// failure
	var firstErr error
	for _, cmd := range cmds {
		if err := cmd.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
