package workflow

import "github.com/dpxdt/coordinator/pkg/workitem"

// Barrier is the coordinator's bookkeeping for one outstanding yield: the
// set of sub-items a suspended workflow is currently awaiting, and enough
// state to know when every one of them has returned. Grounded on
// original_source/dpxdt/client/workers.py's Barrier (a list subclass with
// was_list/remaining/error), minus the list-subclassing trick since Go has
// no need for it.
type Barrier struct {
	Parent  *Workflow
	Items   []workitem.WorkItem
	WasList bool

	remaining int
	err       error
}

// NewBarrier builds a Barrier from a yield Step. Fire-and-forget items are
// included in Items (to preserve list position for Materialize) but never
// count toward remaining, since the coordinator never registers them in
// the pending table and so Finish is never called for them.
func NewBarrier(parent *Workflow, step Step) *Barrier {
	var items []workitem.WorkItem
	wasList := step.Kind == StepYieldMany
	switch {
	case wasList:
		items = step.Items
	case step.Item != nil:
		items = []workitem.WorkItem{step.Item}
	}

	b := &Barrier{Parent: parent, Items: items, WasList: wasList}
	for _, it := range items {
		if _, ff := IsFireAndForget(it); !ff {
			b.remaining++
		}
	}
	return b
}

// Finish marks one sub-item of the barrier as returned. The coordinator
// calls this exactly once per pending item, since it removes the item from
// the pending table before calling Finish.
func (b *Barrier) Finish(item workitem.WorkItem) {
	b.remaining--
	if err := item.Base().Check(); err != nil && b.err == nil {
		b.err = err
	}
}

// Complete reports whether every non-fire-and-forget sub-item of the
// barrier has returned.
func (b *Barrier) Complete() bool { return b.remaining <= 0 }

// Materialize produces the value to resume the parent procedure with. A
// single yield resolves to that one value (or nil for an empty yield); a
// fan-out yield resolves to a slice in the original order. If any sub-item
// errored, the first observed error is returned instead and the value is
// discarded, per spec.md §4.3.
func (b *Barrier) Materialize() (any, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.WasList {
		vals := make([]any, len(b.Items))
		for i, it := range b.Items {
			vals[i] = unwrap(it)
		}
		return vals, nil
	}
	if len(b.Items) == 0 {
		return nil, nil
	}
	return unwrap(b.Items[0]), nil
}

// unwrap resolves item to the value a waiting Yield/YieldAll should see: a
// fire-and-forget position always resolves to nil, a sub-workflow resolves
// to its Result, and any other WorkItem resolves to itself.
func unwrap(item workitem.WorkItem) any {
	if _, ff := IsFireAndForget(item); ff {
		return nil
	}
	if wf, ok := item.(*Workflow); ok {
		return wf.Result
	}
	return item
}
