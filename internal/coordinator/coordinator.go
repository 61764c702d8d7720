// Package coordinator implements the dispatch loop that classifies
// returning WorkItems, advances suspended workflow procedures, and
// dispatches their yields to registered queues. Grounded on
// original_source/dpxdt/client/workers.py's WorkflowThread.handle_item
// (Classify/Advance/Dispatch/Complete) and the teacher's
// internal/controller/controller.go run-loop and locking style.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/dpxdt/coordinator/internal/queue"
	"github.com/dpxdt/coordinator/internal/workflow"
	"github.com/dpxdt/coordinator/pkg/workitem"
)

var log = slog.Default()

// DefaultPollInterval is the poll_interval default from spec.md §6.
const DefaultPollInterval = time.Second

// MetricsSink receives coordinator-level events. internal/metrics.Collector
// satisfies this structurally; a nil sink is a no-op, so the coordinator
// never depends on the metrics package directly.
type MetricsSink interface {
	ItemDispatched()
	ItemCompleted()
	ItemFailed()
	WorkflowCompleted(latency time.Duration)
	PendingBarriers(n int)
}

// Coordinator owns the pending table, the routing table, and the single
// run-loop goroutine that drives every workflow procedure in the process.
// Nothing outside that goroutine ever mutates pending or routing directly;
// Register, Submit, and the queues themselves are the only concurrent-safe
// entry points.
type Coordinator struct {
	input  *queue.Queue
	output *queue.Queue

	pollInterval time.Duration
	metrics      MetricsSink

	mu      sync.Mutex
	started bool
	routing map[reflect.Type]*queue.Queue
	pending map[workitem.WorkItem]*workflow.Barrier

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Coordinator with its own input/output queues sized
// bufferSize (queue.DefaultBufferSize if non-positive). A *workflow.Workflow is
// pre-registered to route to the coordinator's own input queue, so a
// yielded sub-workflow is dispatched the same way a worker-handled leaf
// item is.
func New(pollInterval time.Duration, bufferSize int) *Coordinator {
	c := &Coordinator{
		input:        queue.New(bufferSize),
		output:       queue.New(bufferSize),
		pollInterval: pollIntervalOrDefault(pollInterval),
		routing:      make(map[reflect.Type]*queue.Queue),
		pending:      make(map[workitem.WorkItem]*workflow.Barrier),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	c.Register(&workflow.Workflow{}, c.input)
	return c
}

// SetMetrics attaches a MetricsSink. Must be called before Start.
func (c *Coordinator) SetMetrics(m MetricsSink) { c.metrics = m }

// Returns is the queue every Worker's Output should point to, and the
// queue a yielded sub-workflow is routed back to. It doubles as the
// coordinator's "pending work" inbox, mirroring the original source's
// single WorkflowThread queue of both fresh items and returning ones.
func (c *Coordinator) Returns() *queue.Queue { return c.input }

// Register binds every WorkItem of zero's concrete type to q: a workflow
// that yields an item of that type gets it pushed to q.
func (c *Coordinator) Register(zero workitem.WorkItem, q *queue.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routing[reflect.TypeOf(zero)] = q
}

// Submit marks wf as a root workflow and enqueues it for the run loop to
// start. Submit may be called before or after Start.
func (c *Coordinator) Submit(wf *workflow.Workflow) {
	wf.Root = true
	c.input.Push(wf)
}

// Start launches the run loop on its own goroutine. Calling Start twice is
// a programmer error; the second call is a no-op.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	go c.run()
	return nil
}

// Stop requests cooperative termination of the run loop. Idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Join waits for the run loop to exit after Stop.
func (c *Coordinator) Join() {
	<-c.doneCh
}

// WaitUntilDone blocks until a root workflow arrives on the output queue,
// honoring ctx for clean external interruption, then returns it with
// Check() already evaluated as the returned error.
func (c *Coordinator) WaitUntilDone(ctx context.Context) (*workflow.Workflow, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		item, ok := c.output.Pop(c.pollInterval)
		if !ok {
			continue
		}
		wf, ok := item.(*workflow.Workflow)
		if !ok {
			return nil, fmt.Errorf("coordinator: unexpected item on output queue: %T", item)
		}
		return wf, wf.Check()
	}
}

func (c *Coordinator) run() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		item, ok := c.input.Pop(c.pollInterval)
		if !ok {
			continue
		}
		c.handle(item)

		select {
		case <-c.stopCh:
			return
		default:
		}
	}
}

// handle classifies item: a *workflow.Workflow that has never run is
// fresh and gets started; everything else (a leaf result from a worker, or
// a completed non-root sub-workflow reinjected by complete) is a return
// against some outstanding barrier.
func (c *Coordinator) handle(item workitem.WorkItem) {
	if wf, ok := item.(*workflow.Workflow); ok && !wf.Started() {
		c.startWorkflow(wf)
		return
	}
	c.resumeFromReturn(item)
}

func (c *Coordinator) startWorkflow(wf *workflow.Workflow) {
	log.Debug("coordinator: starting workflow", "workflow", wf.Name, "root", wf.Root)
	c.settle(wf, wf.Start())
}

// resumeFromReturn finishes the barrier an already-returned item belongs
// to and, once every sibling has also returned, advances the parent.
func (c *Coordinator) resumeFromReturn(item workitem.WorkItem) {
	c.mu.Lock()
	barrier, ok := c.pending[item]
	if ok {
		delete(c.pending, item)
	}
	pendingCount := len(c.pending)
	c.mu.Unlock()

	if !ok {
		log.Warn("coordinator: item returned with no pending barrier", "type", fmt.Sprintf("%T", item))
		return
	}
	if c.metrics != nil {
		c.metrics.PendingBarriers(pendingCount)
	}

	barrier.Finish(item)
	if c.metrics != nil {
		if err := item.Base().Check(); err != nil {
			c.metrics.ItemFailed()
		} else {
			c.metrics.ItemCompleted()
		}
	}

	if !barrier.Complete() {
		return
	}
	value, err := barrier.Materialize()
	c.advance(barrier.Parent, value, err)
}

// settle interprets a procedure's latest Step: StepDone finishes the
// workflow, anything else is a new yield to dispatch.
func (c *Coordinator) settle(wf *workflow.Workflow, step workflow.Step) {
	if step.Kind == workflow.StepDone {
		wf.Done = true
		wf.Result = step.Result
		if step.Err != nil {
			// An error that already carries a kind (handler, routing,
			// programmer) keeps it; any other error is a procedure error.
			var werr *workitem.Error
			if !errors.As(step.Err, &werr) {
				werr = workitem.New(workitem.KindProcedure, wf.Name, step.Err)
			}
			wf.SetError(werr)
		}
		if c.metrics != nil {
			c.metrics.WorkflowCompleted(wf.Elapsed())
		}
		c.complete(wf)
		return
	}
	c.dispatch(wf, step)
}

// complete routes a finished workflow to its destination: the output
// queue if it was a root submission, or back onto the coordinator's own
// input queue for reinjection against its parent's barrier otherwise.
func (c *Coordinator) complete(wf *workflow.Workflow) {
	log.Debug("coordinator: workflow done", "workflow", wf.Name, "root", wf.Root, "err", wf.Check())
	if wf.Root {
		c.output.Push(wf)
		return
	}
	c.input.Push(wf)
}

type routedItem struct {
	item workitem.WorkItem
	q    *queue.Queue
}

// dispatch resolves a queue for every item in the yield, registers them
// all in the pending table, and pushes them -- in that order, so a
// RoutingError or duplicate-pending ProgrammerError fails the workflow
// atomically with nothing partially dispatched.
func (c *Coordinator) dispatch(wf *workflow.Workflow, step workflow.Step) {
	barrier := workflow.NewBarrier(wf, step)

	var toRegister []routedItem
	var toFire []routedItem
	seenThisBarrier := make(map[workitem.WorkItem]bool, len(barrier.Items))

	for _, it := range barrier.Items {
		target := it
		fireAndForget := false
		if t, ok := workflow.IsFireAndForget(it); ok {
			target, fireAndForget = t, true
		}

		q, err := c.routeFor(target)
		if err != nil {
			c.failDispatch(wf, err)
			return
		}

		if fireAndForget {
			toFire = append(toFire, routedItem{target, q})
			continue
		}

		if seenThisBarrier[target] || c.isPending(target) {
			c.failDispatch(wf, workitem.New(workitem.KindProgrammer, wf.Name,
				fmt.Errorf("item of type %T is already pending", target)))
			return
		}
		seenThisBarrier[target] = true
		toRegister = append(toRegister, routedItem{target, q})
	}

	if len(toRegister) > 0 {
		c.mu.Lock()
		for _, r := range toRegister {
			c.pending[r.item] = barrier
		}
		pendingCount := len(c.pending)
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.PendingBarriers(pendingCount)
		}
	}

	for _, r := range toFire {
		r.q.Push(r.item)
	}
	for _, r := range toRegister {
		r.q.Push(r.item)
		if c.metrics != nil {
			c.metrics.ItemDispatched()
		}
	}

	if barrier.Complete() {
		value, err := barrier.Materialize()
		c.advance(wf, value, err)
	}
}

// advance resumes or throws into wf's suspended procedure and settles its
// next step.
func (c *Coordinator) advance(wf *workflow.Workflow, value any, err error) {
	var step workflow.Step
	if err != nil {
		step = wf.Throw(err)
	} else {
		step = wf.Resume(value)
	}
	c.settle(wf, step)
}

// failDispatch throws err into wf at its current suspension, the same
// path a worker-reported error would have taken, without ever registering
// or pushing the offending item.
func (c *Coordinator) failDispatch(wf *workflow.Workflow, err error) {
	log.Error("coordinator: dispatch failed", "workflow", wf.Name, "error", err)
	if c.metrics != nil {
		c.metrics.ItemFailed()
	}
	c.settle(wf, wf.Throw(err))
}

func (c *Coordinator) routeFor(item workitem.WorkItem) (*queue.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.routing[reflect.TypeOf(item)]
	if !ok {
		return nil, workitem.New(workitem.KindRouting, fmt.Sprintf("%T", item),
			fmt.Errorf("no queue registered for type %T", item))
	}
	return q, nil
}

func (c *Coordinator) isPending(item workitem.WorkItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[item]
	return ok
}

func pollIntervalOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}
