package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/reconcile"
	"github.com/MrSnakeDoc/cellar/internal/remote"
	"github.com/MrSnakeDoc/cellar/internal/transfer"
)

// ErrNotRun marks units no worker picked up.
var ErrNotRun = errors.New("unit not executed: no worker available")

// Handler executes one unit with the worker's own client.
type Handler func(ctx context.Context, c remote.Client, jc *JobContext) (transfer.Outcome, error)

// JobContext is the per-unit state. Each one is owned by the worker running it.
type JobContext struct {
	ID       int
	Worker   int
	Unit     reconcile.Unit
	Outcome  transfer.Outcome
	Err      error
	Started  time.Time
	Finished time.Time
}

func (jc *JobContext) prefix() string {
	return fmt.Sprintf("[job %d/w%d %s] ", jc.ID, jc.Worker, jc.Unit)
}

func (jc *JobContext) Infof(format string, args ...interface{}) {
	logger.Info(jc.prefix()+format, args...)
}

func (jc *JobContext) Warnf(format string, args ...interface{}) {
	logger.Warn(jc.prefix()+format, args...)
}

func (jc *JobContext) Debugf(format string, args ...interface{}) {
	logger.Debug(jc.prefix()+format, args...)
}

type Options struct {
	MaxWorkers int
	Factory    remote.Factory
	Handler    Handler
	Stats      *Stats
}

// Pool runs units on a bounded set of workers pulling from a shared queue.
type Pool struct {
	opts    Options
	arena   []JobContext
	queue   queue
	failed  atomic.Bool
	workers int
}

type queue struct {
	mu   sync.Mutex
	next int
	size int
}

// take hands out the next job id.
func (q *queue) take() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= q.size {
		return 0, false
	}
	id := q.next
	q.next++
	return id, true
}

// Workers is min(max, GOMAXPROCS, jobs), never below one for a non-empty set.
func Workers(max, jobs int) int {
	n := runtime.GOMAXPROCS(0)
	if max > 0 && max < n {
		n = max
	}
	if jobs < n {
		n = jobs
	}
	if n < 1 && jobs > 0 {
		n = 1
	}
	return n
}

func New(opts Options) *Pool {
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	return &Pool{opts: opts}
}

// Run executes every unit and returns once all workers joined.
// A failing unit never stops its siblings; check Failed afterwards.
func (p *Pool) Run(ctx context.Context, units []reconcile.Unit) []JobContext {
	p.arena = make([]JobContext, len(units))
	for i, u := range units {
		p.arena[i] = JobContext{ID: i, Worker: -1, Unit: u}
	}
	p.queue = queue{size: len(units)}
	p.workers = Workers(p.opts.MaxWorkers, len(units))
	if p.workers == 0 {
		return p.arena
	}

	logger.Debug("starting %d worker(s) for %d unit(s)", p.workers, len(units))

	var g errgroup.Group
	for w := 0; w < p.workers; w++ {
		g.Go(func() error {
			p.work(ctx, w)
			return nil
		})
	}
	_ = g.Wait()

	for i := range p.arena {
		if p.arena[i].Worker < 0 {
			p.arena[i].Err = ErrNotRun
			p.failed.Store(true)
			p.opts.Stats.Record(p.arena[i].Unit, transfer.Outcome{State: transfer.StateFailed}, ErrNotRun)
		}
	}
	return p.arena
}

func (p *Pool) work(ctx context.Context, w int) {
	c, err := p.opts.Factory()
	if err != nil {
		logger.LogError("worker %d: cannot create remote client: %v", w, err)
		p.failed.Store(true)
		return
	}

	for {
		id, ok := p.queue.take()
		if !ok {
			return
		}
		jc := &p.arena[id]
		jc.Worker = w
		p.runJob(ctx, c, jc)
		p.opts.Stats.Record(jc.Unit, jc.Outcome, jc.Err)
		logger.Debugw("unit done",
			"job", jc.ID, "worker", w, "kind", jc.Unit.Kind.String(), "key", jc.Unit.Key,
			"state", jc.Outcome.State.String(), "bytes", jc.Outcome.Bytes,
			"elapsed", jc.Finished.Sub(jc.Started).String())
		if jc.Err != nil {
			p.failed.Store(true)
			jc.Warnf("failed: %v", jc.Err)
			continue
		}
		if jc.Outcome.Message != "" {
			jc.Infof("%s", jc.Outcome.Message)
		}
	}
}

func (p *Pool) runJob(ctx context.Context, c remote.Client, jc *JobContext) {
	jc.Started = time.Now()
	defer func() {
		if r := recover(); r != nil {
			jc.Err = fmt.Errorf("panic: %v", r)
			jc.Outcome = transfer.Outcome{State: transfer.StateFailed}
		}
		jc.Finished = time.Now()
	}()
	jc.Outcome, jc.Err = p.opts.Handler(ctx, c, jc)
}

// Failed reports whether any unit failed. Read it after Run returns.
func (p *Pool) Failed() bool { return p.failed.Load() }

// Size is the number of workers used by the last Run.
func (p *Pool) Size() int { return p.workers }

func (p *Pool) Stats() *Stats { return p.opts.Stats }
