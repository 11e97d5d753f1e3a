package domain

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// Scheduler fans tasks out to the Verifier and streams verdicts back in
// completion order.
type Scheduler interface {
	// Schedule starts one check per task received on tasks. The verdict
	// channel closes after every started check finished; the error channel
	// then delivers the first fatal error, if any, and closes. A fatal error
	// cancels the checks still running.
	Schedule(ctx context.Context, tasks <-chan m.Task) (<-chan m.Verdict, <-chan error)
}

type scheduler struct {
	Verifier
	buffer int
}

// NewScheduler constructs a Scheduler. buffer sizes the verdict channel; the
// run budget, not the buffer, bounds concurrency.
func NewScheduler(verifier Verifier, buffer int) Scheduler {
	return &scheduler{Verifier: verifier, buffer: max(buffer, 1)}
}

func (s *scheduler) Schedule(ctx context.Context, tasks <-chan m.Task) (<-chan m.Verdict, <-chan error) {
	verdicts := make(chan m.Verdict, s.buffer)
	errorChannel := make(chan error, 1)

	group, groupCtx := errgroup.WithContext(ctx)

	go func() {
		defer close(errorChannel)

		scheduled := 0

		for task := range tasks {
			if groupCtx.Err() != nil {
				// Keep draining so the producer never blocks.
				continue
			}

			current := task
			scheduled++

			group.Go(func() error {
				verdict, err := s.Verify(groupCtx, current)
				if err != nil {
					return fmt.Errorf("verify %s: %w", current.Unit.Path, err)
				}

				// The consumer reads until close, so this send cannot block forever.
				verdicts <- verdict

				return nil
			})
		}

		err := group.Wait()

		slog.Debug("All scheduled checks finished", "scheduled", scheduled, "error", err)
		close(verdicts)

		if err != nil {
			errorChannel <- err
		}
	}()

	return verdicts, errorChannel
}
