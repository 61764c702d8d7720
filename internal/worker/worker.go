// Package worker implements the long-running agents that drain a single
// input queue, invoke a type-specific handler, and forward the handled
// item (or its replacement) to an output queue. Grounded on
// original_source/dpxdt/client/workers.py's WorkerThread and the teacher's
// internal/worker/worker.go goroutine-per-worker loop.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dpxdt/coordinator/internal/queue"
	"github.com/dpxdt/coordinator/pkg/workitem"
)

var log = slog.Default()

// DefaultPollInterval is the poll_interval default from spec.md §6.
const DefaultPollInterval = time.Second

// Handler processes one WorkItem. A successful Handle that wants to report
// completion back to the coordinator returns the item (with its Result
// set) as next; returning (nil, nil) drops the item silently. A non-nil
// error is captured on the original item and always reported back.
type Handler interface {
	Handle(ctx context.Context, item workitem.WorkItem) (next workitem.WorkItem, err error)
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(ctx context.Context, item workitem.WorkItem) (workitem.WorkItem, error)

// Handle calls fn.
func (fn HandlerFunc) Handle(ctx context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
	return fn(ctx, item)
}

// Idler is an optional hook a Handler may also implement. Idle is called
// whenever the input queue yields nothing within the poll interval; the
// default behavior (a Handler that doesn't implement Idler) is a no-op,
// matching spec.md §4.2.
type Idler interface {
	Idle()
}

// Worker drains one input queue and pushes handled items to one output
// queue. Errors raised inside Handle never kill the worker goroutine.
type Worker struct {
	Name         string
	Input        *queue.Queue
	Output       *queue.Queue
	Handler      Handler
	PollInterval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Worker. A zero PollInterval falls back to
// DefaultPollInterval.
func New(name string, input, output *queue.Queue, handler Handler) *Worker {
	return &Worker{
		Name:         name,
		Input:        input,
		Output:       output,
		Handler:      handler,
		PollInterval: DefaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins running the worker's loop concurrently.
func (w *Worker) Start() {
	go w.run()
}

// Stop requests cooperative termination. It is idempotent and never waits.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Join waits for termination after Stop.
func (w *Worker) Join() {
	<-w.doneCh
}

func (w *Worker) run() {
	defer close(w.doneCh)

	idler, _ := w.Handler.(Idler)
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		item, ok := w.Input.Pop(pollInterval(w.PollInterval))
		if !ok {
			if idler != nil {
				idler.Idle()
			}
			continue
		}

		w.process(item)

		select {
		case <-w.stopCh:
			return
		default:
		}
	}
}

func (w *Worker) process(item workitem.WorkItem) {
	next, err := w.Handler.Handle(context.Background(), item)
	if err != nil {
		item.Base().SetError(workitem.New(workitem.KindHandler, w.Name, err))
		log.Debug("worker handler error", "worker", w.Name, "error", err)
		w.Output.Push(item)
		return
	}

	log.Debug("worker processed item", "worker", w.Name)
	if next != nil {
		w.Output.Push(next)
	}
}

func pollInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}
