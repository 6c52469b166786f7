package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/desertthunder/brewq/internal/shared"
	"golang.org/x/time/rate"
)

// BulkOpts configures [OrderActions.Bulk].
type BulkOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 8)
	RateLimit  float64 // Requests per second (default: 2)
}

// BulkResult summarizes a bulk action.
type BulkResult struct {
	Action    Action
	Total     int
	Succeeded int
	Failed    int
	Results   []ActionResult // Sorted by order id
}

// Bulk applies action to every id using a rate-limited worker pool.
//
// Individual failures are collected rather than aborting the run. At most
// one alert is raised and at most one refresh is forced for the whole batch.
func (a *OrderActions) Bulk(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	action Action,
	ids []int64,
	opts BulkOpts,
) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no order ids", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}

	result := &BulkResult{
		Action:  action,
		Total:   len(ids),
		Results: make([]ActionResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan int64, len(ids))
	results := make(chan ActionResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go a.bulkWorker(ctx, &wg, limiter, action, jobs, results)
	}

	sendProgress(prog, dispatchUpdate(len(ids), action))
	for _, id := range ids {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)
		if res.Err == nil {
			result.Succeeded++
			sendProgress(prog, appliedUpdate(completed, len(ids), res))
		} else {
			result.Failed++
			sendProgress(prog, failedUpdate(completed, len(ids), res))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].OrderID < result.Results[j].OrderID
	})

	if result.Failed > 0 {
		a.alert(failureMessage(action))
	}
	if result.Succeeded > 0 {
		sendProgress(prog, refreshUpdate(len(ids)))
		a.refresh()
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("bulk %s interrupted: %w", action, err)
	}
	return result, nil
}

// bulkWorker applies action to ids from the jobs channel.
func (a *OrderActions) bulkWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	action Action,
	jobs <-chan int64,
	results chan<- ActionResult,
) {
	defer wg.Done()

	for id := range jobs {
		res := ActionResult{OrderID: id, Action: action}
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
			results <- res
			continue
		}
		if err := a.perform(ctx, action, id); err != nil {
			a.logger.Warn("bulk action failed", "action", action, "order", id, "error", err)
			res.Err = err
		}
		results <- res
	}
}
