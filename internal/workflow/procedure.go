// Package workflow implements the suspendable workflow procedure, its
// Barrier join bookkeeping, and the Workflow WorkItem itself. Grounded on
// original_source/dpxdt/client/workers.py's WorkflowItem/Barrier/
// WorkflowThread.handle_item, realized in Go as a goroutine-based
// coroutine -- spec.md §9's "user-mode fiber with a channel" strategy.
package workflow

import (
	"fmt"

	"github.com/dpxdt/coordinator/pkg/workitem"
)

// StepKind discriminates what a procedure did at its latest suspension.
type StepKind int

const (
	// StepYield is a single-item yield; the procedure awaits one sub-item.
	StepYield StepKind = iota
	// StepYieldMany is a fan-out yield; the procedure awaits every item in
	// the list.
	StepYieldMany
	// StepDone means the procedure returned (naturally or with an error);
	// Result and Err carry the outcome.
	StepDone
)

// Step is what a Procedure produces at each suspension or on completion.
type Step struct {
	Kind   StepKind
	Item   workitem.WorkItem
	Items  []workitem.WorkItem
	Result any
	Err    error
}

type resumeMsg struct {
	value any
	err   error
}

// Yielder is the only handle an author-written Func has on its own
// suspension. Calling Yield or YieldAll sends the request to the driving
// goroutine (the coordinator) and blocks until that goroutine resumes or
// throws into this exact call site.
type Yielder struct {
	out chan Step
	in  chan resumeMsg
}

// Yield suspends until item has been dispatched and returned. If item
// errored, the stored error is returned here, at the call site, so the
// author's ordinary error handling applies. On success, value is item
// itself if item is a leaf WorkItem, or the sub-workflow's Result if item
// is a *Workflow.
func (y *Yielder) Yield(item workitem.WorkItem) (any, error) {
	y.out <- Step{Kind: StepYield, Item: item}
	m := <-y.in
	return m.value, m.err
}

// YieldAll suspends until every item in items has returned (a fan-out). If
// any item errored, the first observed error is returned here and the
// successful results are discarded, per spec.md §4.3.
func (y *Yielder) YieldAll(items []workitem.WorkItem) ([]any, error) {
	y.out <- Step{Kind: StepYieldMany, Items: items}
	m := <-y.in
	if m.err != nil {
		return nil, m.err
	}
	vals, _ := m.value.([]any)
	return vals, nil
}

// Func is an author-written suspendable procedure. Its own (any, error)
// return value is the workflow's natural completion -- Go's multi-value
// return already distinguishes "finished with a value" from "finished
// with none" or "finished with an error", so unlike the Python original
// this needs no separate Return signal (see SPEC_FULL.md §11).
type Func func(y *Yielder) (any, error)

// Procedure drives one running instance of a Func on a dedicated
// goroutine, synchronized through unbuffered channels so the procedure
// goroutine and the driver goroutine alternate turns exactly at yield
// points. A workflow procedure never executes concurrently with itself or
// with any other workflow procedure, since only the driver ever holds the
// baton between Start/Resume/Throw calls.
type Procedure struct {
	yielder *Yielder
}

// NewProcedure launches fn on its own goroutine and returns a handle to
// drive it. The goroutine blocks at its first Yield/YieldAll (or produces
// StepDone immediately) until the caller calls Start.
func NewProcedure(fn Func) *Procedure {
	y := &Yielder{out: make(chan Step), in: make(chan resumeMsg)}
	p := &Procedure{yielder: y}
	go p.runBody(fn)
	return p
}

func (p *Procedure) runBody(fn Func) {
	defer func() {
		if r := recover(); r != nil {
			p.yielder.out <- Step{Kind: StepDone, Err: panicToError(r)}
		}
	}()
	result, err := fn(p.yielder)
	p.yielder.out <- Step{Kind: StepDone, Result: result, Err: err}
}

// Start blocks until the procedure's first suspension or completion.
func (p *Procedure) Start() Step {
	return <-p.yielder.out
}

// Resume injects value at the procedure's current suspension point and
// blocks until its next suspension or completion.
func (p *Procedure) Resume(value any) Step {
	p.yielder.in <- resumeMsg{value: value}
	return <-p.yielder.out
}

// Throw re-raises err at the procedure's current suspension point and
// blocks until its next suspension or completion.
func (p *Procedure) Throw(err error) Step {
	p.yielder.in <- resumeMsg{err: err}
	return <-p.yielder.out
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic in workflow procedure: %v", r)
}
