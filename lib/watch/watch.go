// Package watch re-runs a query when the files backing it change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rjeczalik/notify"
	"github.com/steinarvk/whizdex/lib/logging"
	"go.uber.org/zap"
)

var alwaysExcludedSuffixes = []string{
	"~",
	".swp",
	".swx",
	".tmp",
}

type Func func(ctx context.Context, reason string) error

func excluded(path string) bool {
	basename := filepath.Base(path)
	if strings.HasPrefix(basename, ".#") {
		return true
	}
	for _, suffix := range alwaysExcludedSuffixes {
		if strings.HasSuffix(basename, suffix) {
			return true
		}
	}
	return false
}

// Dir calls fn once immediately, then again each time changes under dir have
// been quiet for the debounce interval. It returns when ctx is done or fn
// fails.
func Dir(ctx context.Context, dir string, debounce time.Duration, fn Func) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.FromContext(ctx)

	recwatch := filepath.Join(dir, "...")
	logger.Info("watching directory", zap.String("dir", dir), zap.Duration("debounce", debounce))

	watcherEventCh := make(chan notify.EventInfo, 10)
	if err := notify.Watch(recwatch, watcherEventCh, notify.All); err != nil {
		return fmt.Errorf("unable to watch %q: %w", dir, err)
	}
	defer notify.Stop(watcherEventCh)

	paths := make(chan string)
	go func() {
		defer close(paths)
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcherEventCh:
				select {
				case paths <- evt.Path():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return run(ctx, paths, debounce, fn)
}

func run(ctx context.Context, paths <-chan string, debounce time.Duration, fn Func) error {
	logger := logging.FromContext(ctx)

	if err := fn(ctx, "startup"); err != nil {
		return err
	}

	var timer *time.Timer
	var timerCh <-chan time.Time
	var pendingReason string
	var pendingCount int

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case path, ok := <-paths:
			if !ok {
				return nil
			}
			if excluded(path) {
				continue
			}

			pendingCount++
			pendingReason = fmt.Sprintf("updated %q (%d change(s))", path, pendingCount)

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			reason := pendingReason
			pendingReason = ""
			pendingCount = 0

			logger.Info("re-running after change", zap.String("reason", reason))
			if err := fn(ctx, reason); err != nil {
				return err
			}
		}
	}
}
