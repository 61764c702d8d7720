package worker

import (
	"fmt"

	"github.com/dpxdt/coordinator/internal/queue"
)

// Group starts N identically-configured Workers draining the same input
// queue and pushing to the same output queue, for simple load-balanced
// throughput. This generalizes the teacher's Pool.Start(workerCount)
// fan-out of homogeneous workers; it does not change the "a Worker drains
// one input queue" contract, since every member of the group still drains
// exactly one queue — there are just several of them.
type Group struct {
	workers []*Worker
}

// NewGroup creates count Workers named "<name>-<i>" sharing input/output
// and handler.
func NewGroup(name string, count int, input, output *queue.Queue, handler Handler) *Group {
	g := &Group{workers: make([]*Worker, 0, count)}
	for i := 0; i < count; i++ {
		g.workers = append(g.workers, New(fmt.Sprintf("%s-%d", name, i), input, output, handler))
	}
	return g
}

// Start starts every worker in the group.
func (g *Group) Start() {
	for _, w := range g.workers {
		w.Start()
	}
}

// Stop requests termination of every worker in the group.
func (g *Group) Stop() {
	for _, w := range g.workers {
		w.Stop()
	}
}

// Join waits for every worker in the group to terminate.
func (g *Group) Join() {
	for _, w := range g.workers {
		w.Join()
	}
}

// Len reports how many workers are in the group.
func (g *Group) Len() int { return len(g.workers) }
