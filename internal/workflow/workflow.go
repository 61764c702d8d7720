package workflow

import (
	"fmt"
	"time"

	"github.com/dpxdt/coordinator/pkg/workitem"
)

// Workflow is a WorkItem whose handling is itself a suspendable Func that
// composes further work items via a Yielder. Grounded on
// original_source/dpxdt/client/workers.py's WorkflowItem: this replaces
// its stored args/kwargs and lazy run(*args, **kwargs) with Go's natural
// closures -- a Func is already bound to its arguments by whatever
// constructor built it.
type Workflow struct {
	workitem.Item

	Name string
	Fn   Func

	// Root marks a workflow submitted directly to a Coordinator, as
	// opposed to one yielded by another workflow. A completed Root
	// workflow is pushed to the coordinator's output queue instead of
	// being reinjected as a sub-item return.
	Root bool

	Done   bool
	Result any

	proc      *Procedure
	startedAt time.Time
}

// New wraps fn as a Workflow named name. name is diagnostic only; identity
// for pending-table and routing purposes is the *Workflow pointer itself.
func New(name string, fn Func) *Workflow {
	return &Workflow{Name: name, Fn: fn}
}

// NewRoot is New with Root set, for direct submission to a Coordinator via
// Coordinator.Submit.
func NewRoot(name string, fn Func) *Workflow {
	wf := New(name, fn)
	wf.Root = true
	return wf
}

// Started reports whether Start has been called yet. The coordinator uses
// this, rather than a separate item-kind tag, to tell a freshly-submitted
// workflow apart from one whose barrier just finished.
func (w *Workflow) Started() bool { return w.proc != nil }

// Start instantiates the workflow's procedure and returns its first step.
// It is a programmer error to call Start twice; callers (the coordinator)
// are expected to use Started to avoid that.
func (w *Workflow) Start() Step {
	w.startedAt = time.Now()
	w.proc = NewProcedure(w.Fn)
	return w.proc.Start()
}

// Elapsed reports how long this workflow has been running since Start.
func (w *Workflow) Elapsed() time.Duration {
	if w.startedAt.IsZero() {
		return 0
	}
	return time.Since(w.startedAt)
}

// Resume delivers value to the procedure's current suspension and returns
// its next step.
func (w *Workflow) Resume(value any) Step {
	return w.proc.Resume(value)
}

// Throw delivers err to the procedure's current suspension and returns its
// next step.
func (w *Workflow) Throw(err error) Step {
	return w.proc.Throw(err)
}

func (w *Workflow) String() string {
	return fmt.Sprintf("Workflow(%s)", w.Name)
}
