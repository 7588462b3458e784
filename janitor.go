package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adhocore/gronx"
)

// Janitor periodically drops finished queue history and expired reference
// pages on a cron schedule.
type Janitor struct {
	cronExpr string
	queue    *RequestQueue
	cache    *ReferenceCache
}

// NewJanitor validates cronExpr. queue and cache may be nil.
func NewJanitor(cronExpr string, queue *RequestQueue, cache *ReferenceCache) (*Janitor, error) {
	if !gronx.New().IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cleanup cron expression %q", cronExpr)
	}
	return &Janitor{cronExpr: cronExpr, queue: queue, cache: cache}, nil
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep() (tasks, pages int) {
	if j.queue != nil {
		tasks = j.queue.ClearCompleted()
	}
	if j.cache != nil {
		pages = j.cache.PurgeExpired()
	}
	if tasks > 0 || pages > 0 {
		log.Printf("Janitor: cleared %d finished task(s), %d expired page(s)", tasks, pages)
	}
	return tasks, pages
}

// NextRun returns the first scheduled sweep strictly after ref.
func (j *Janitor) NextRun(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(j.cronExpr, ref, false)
}

// Run sweeps on schedule until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	for {
		next, err := j.NextRun(time.Now())
		if err != nil {
			log.Printf("Janitor stopped: %v", err)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			j.Sweep()
		}
	}
}
