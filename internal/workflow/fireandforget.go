package workflow

import "github.com/dpxdt/coordinator/pkg/workitem"

// fireAndForgetItem wraps a target WorkItem so the coordinator dispatches
// it without ever registering it in the pending table. Supplemented from
// original_source/dpxdt/client/workers.py, which left fire-and-forget
// dispatch as a literal TODO -- see SPEC_FULL.md §9.
type fireAndForgetItem struct {
	workitem.Item
	Target workitem.WorkItem
}

// FireAndForget marks item so a parent's Yield/YieldAll dispatches it
// without ever waiting on its completion. The corresponding position in
// the yield's result resolves to nil immediately.
func FireAndForget(item workitem.WorkItem) workitem.WorkItem {
	return &fireAndForgetItem{Target: item}
}

// IsFireAndForget reports whether item is a FireAndForget wrapper and, if
// so, returns the item it wraps.
func IsFireAndForget(item workitem.WorkItem) (target workitem.WorkItem, ok bool) {
	ff, ok := item.(*fireAndForgetItem)
	if !ok {
		return nil, false
	}
	return ff.Target, true
}
