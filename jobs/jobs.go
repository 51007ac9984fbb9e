// Package jobs runs fire-and-forget background work: reflection
// generation, reindexing, pruning. Jobs have no result channel back to
// the trigger; callers observe effects through stats and retrieval.
package jobs

import (
	"context"
	"log"
	"sync"
)

// Runner dispatches background jobs. A panicking job is recovered and
// logged, never crashing the process. There is no cancellation beyond
// the context handed to Dispatch; a job runs to completion or failure.
type Runner struct {
	wg sync.WaitGroup
}

// NewRunner creates a job runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Dispatch starts fn in the background. The name is used for logging
// only.
func (r *Runner) Dispatch(ctx context.Context, name string, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[JOBS] %s panicked: %v", name, rec)
			}
		}()
		log.Printf("[JOBS] %s started", name)
		if err := fn(ctx); err != nil {
			log.Printf("[JOBS] %s failed: %v", name, err)
			return
		}
		log.Printf("[JOBS] %s finished", name)
	}()
}

// Wait blocks until all dispatched jobs have finished. Used at
// shutdown and in tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
