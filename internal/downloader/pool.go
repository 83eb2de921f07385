package downloader

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"

	"golang.org/x/sync/semaphore"
)

// Result is the outcome of one work item
type Result struct {
	Item     models.WorkItem
	Outcome  models.Outcome
	Records  int
	Err      error
	Duration time.Duration
}

// Op processes one item, including its checkpoint write. It owns everything
// it opens for the item.
type Op func(ctx context.Context, item models.WorkItem) Result

// Pool runs ops with at most capacity in flight. Admission goes through a
// FIFO weighted semaphore, so queued items are admitted in order and none
// starves.
type Pool struct {
	capacity int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
	logger   logger.Logger

	// OnResult, when set, is called once per item; calls are serialized
	OnResult func(Result)
	resultMu sync.Mutex
}

// NewPool creates a pool admitting capacity concurrent ops (minimum 1)
func NewPool(capacity int, log logger.Logger) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Pool{
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
		logger:   log,
	}
}

// Run executes op for every item and returns one result per item, in item
// order. A failing or panicking op only fails its own item. Once ctx is done,
// items not yet admitted fail with ctx.Err().
func (p *Pool) Run(ctx context.Context, items []models.WorkItem, op Op) []Result {
	results := make([]Result, len(items))
	var wg sync.WaitGroup

	logger.LogComponentStart(p.logger, "worker_pool", map[string]interface{}{
		"capacity": p.capacity,
		"items":    len(items),
	})

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			p.finish(&results[i], Result{Item: item, Outcome: models.OutcomeFailed, Err: err})
			continue
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			p.finish(&results[i], Result{Item: item, Outcome: models.OutcomeFailed, Err: err})
			continue
		}

		wg.Add(1)
		go func(slot *Result, item models.WorkItem) {
			defer wg.Done()
			defer p.sem.Release(1)

			n := p.inFlight.Add(1)
			for {
				peak := p.peak.Load()
				if n <= peak || p.peak.CompareAndSwap(peak, n) {
					break
				}
			}
			res := p.runIsolated(ctx, item, op)
			p.inFlight.Add(-1)

			p.finish(slot, res)
		}(&results[i], item)
	}

	wg.Wait()

	reason := "drained"
	if ctx.Err() != nil {
		reason = ctx.Err().Error()
	}
	logger.LogComponentStop(p.logger, "worker_pool", reason)
	return results
}

func (p *Pool) runIsolated(ctx context.Context, item models.WorkItem, op Op) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(map[string]interface{}{
				"url":   item.URL,
				"panic": fmt.Sprint(r),
				"stack": string(debug.Stack()),
			}).Error("Work item panicked")
			res = Result{Item: item, Outcome: models.OutcomeFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Item = item
		res.Duration = time.Since(start)
	}()
	return op(ctx, item)
}

func (p *Pool) finish(slot *Result, res Result) {
	*slot = res
	if p.OnResult == nil {
		return
	}
	p.resultMu.Lock()
	defer p.resultMu.Unlock()
	p.OnResult(res)
}

// InFlight returns the number of ops currently running
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Peak returns the highest InFlight observed
func (p *Pool) Peak() int {
	return int(p.peak.Load())
}

// Capacity returns the admission limit
func (p *Pool) Capacity() int {
	return p.capacity
}
