package rules

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDur is how long a source must go without new events before it is
// rebuilt: editors and aligners produce bursts of writes while a file is
// still being written, and rebuilding mid-burst would read a half-written
// source.
const debounceDur = 500 * time.Millisecond

// Watch builds the targets once, then rebuilds each one whenever its source
// file changes, until ctx is cancelled. A changed source is rebuilt only
// after its events have settled for debounceDur, so the last write of a
// burst is never lost. Build failures are logged and watching continues.
func (r *Runner) Watch(ctx context.Context, targets []string) error {
	log := r.logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// map each source file (by absolute path) to the targets built from it,
	// and watch the directories the sources live in
	sourceTargets := make(map[string][]string)
	watched := make(map[string]bool)

	for _, target := range targets {
		_, source, err := r.Rules.Resolve(target)
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(source)
		if err != nil {
			return err
		}
		sourceTargets[abs] = append(sourceTargets[abs], target)

		dir := filepath.Dir(abs)
		if !watched[dir] {
			if err = watcher.Add(dir); err != nil {
				return err
			}
			watched[dir] = true
		}
	}

	if err := r.Run(ctx, targets); err != nil {
		log.Error("initial build failed", zap.Error(err))
	}

	// pending records when each changed source was last written; a source is
	// rebuilt once it has settled past the debounce window
	pending := make(map[string]time.Time)

	timer := time.NewTimer(debounceDur)
	stopTimer(timer)
	defer timer.Stop()

	// rearm schedules the timer for the earliest pending deadline
	rearm := func() {
		stopTimer(timer)
		if len(pending) == 0 {
			return
		}
		earliest := time.Now().Add(debounceDur)
		for _, at := range pending {
			if deadline := at.Add(debounceDur); deadline.Before(earliest) {
				earliest = deadline
			}
		}
		wait := time.Until(earliest)
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := sourceTargets[abs]; !ok {
				continue
			}

			pending[abs] = time.Now()
			rearm()

		case <-timer.C:
			now := time.Now()
			var stale []string
			for abs, at := range pending {
				if now.Sub(at) >= debounceDur {
					delete(pending, abs)
					log.Info("source changed", zap.String("source", abs))
					stale = append(stale, sourceTargets[abs]...)
				}
			}

			if len(stale) > 0 {
				if err := r.Run(ctx, stale); err != nil {
					log.Error("rebuild failed", zap.Error(err))
				}
			}
			rearm()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", zap.Error(err))
		}
	}
}

// stopTimer stops a timer and drains its channel if it already fired
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
