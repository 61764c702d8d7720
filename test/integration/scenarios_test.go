// Package integration exercises a real Coordinator with real Worker
// goroutines end to end, covering SPEC_FULL.md §10's scenarios S1-S6
// against the bundled demo handlers instead of unit-level fakes (see
// internal/coordinator/coordinator_test.go for the unit-level versions).
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/dpxdt/coordinator/internal/coordinator"
	"github.com/dpxdt/coordinator/internal/demo"
	"github.com/dpxdt/coordinator/internal/queue"
	"github.com/dpxdt/coordinator/internal/worker"
	"github.com/dpxdt/coordinator/internal/workflow"
	"github.com/dpxdt/coordinator/pkg/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	coord  *coordinator.Coordinator
	flaky  *queue.Queue
	trans  *queue.Queue
	flakyG *worker.Group
	transG *worker.Group
}

func newHarness(t *testing.T) *harness {
	c := coordinator.New(5*time.Millisecond, 64)

	flakyQ := queue.New(64)
	transQ := queue.New(64)
	c.Register(&demo.FlakyRequest{}, flakyQ)
	c.Register(&demo.TransformRequest{}, transQ)

	flakyG := worker.NewGroup("flaky", 3, flakyQ, c.Returns(), worker.HandlerFunc(demo.Flaky))
	transG := worker.NewGroup("transform", 3, transQ, c.Returns(), worker.HandlerFunc(demo.Transform))

	flakyG.Start()
	transG.Start()
	require.NoError(t, c.Start())

	t.Cleanup(func() {
		c.Stop()
		flakyG.Stop()
		transG.Stop()
		c.Join()
		flakyG.Join()
		transG.Join()
	})

	return &harness{coord: c, flaky: flakyQ, trans: transQ, flakyG: flakyG, transG: transG}
}

// S1: single yield, transform round-trips its input through the pipeline.
func TestS1SingleYieldRoundTrips(t *testing.T) {
	h := newHarness(t)

	root := workflow.NewRoot("s1", func(y *workflow.Yielder) (any, error) {
		v, err := y.Yield(&demo.TransformRequest{Input: "payload"})
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.NoError(t, err)
	tr := done.Result.(*demo.TransformRequest)
	assert.Equal(t, "transformed(payload)", tr.Result)
}

// S2: fan-out of many reliable items all resolve before the parent
// resumes, in original order.
func TestS2FanOutPreservesOrder(t *testing.T) {
	h := newHarness(t)

	inputs := []string{"a", "b", "c", "d", "e"}
	root := workflow.NewRoot("s2", func(y *workflow.Yielder) (any, error) {
		items := make([]workitem.WorkItem, len(inputs))
		for i, in := range inputs {
			items[i] = &demo.TransformRequest{Input: in}
		}
		vals, err := y.YieldAll(items)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = v.(*demo.TransformRequest).Result.(string)
		}
		return out, nil
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"transformed(a)", "transformed(b)", "transformed(c)", "transformed(d)", "transformed(e)",
	}, done.Result)
}

// S3: a sub-workflow nested under a root resolves to its own Result, and
// the root's final result reflects both levels.
func TestS3NestedSubWorkflow(t *testing.T) {
	h := newHarness(t)

	child := workflow.New("s3-child", func(y *workflow.Yielder) (any, error) {
		v, err := y.Yield(&demo.TransformRequest{Input: "nested"})
		if err != nil {
			return nil, err
		}
		return v.(*demo.TransformRequest).Result, nil
	})

	root := workflow.NewRoot("s3-root", func(y *workflow.Yielder) (any, error) {
		v, err := y.Yield(child)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "transformed(nested)", done.Result)
}

// S4: a guaranteed-to-fail item surfaces its error at the yield call site,
// and the workflow's Check() reports it.
func TestS4HandlerErrorPropagatesToRoot(t *testing.T) {
	h := newHarness(t)

	root := workflow.NewRoot("s4", func(y *workflow.Yielder) (any, error) {
		_, err := y.Yield(&demo.FlakyRequest{FailureRate: 100})
		return nil, err
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.Error(t, err)
	assert.Nil(t, done.Result)
}

// S5: a fan-out where exactly one item fails still waits for every
// sibling before surfacing the (first) error.
func TestS5OneFailureInFanOutStillWaitsForAll(t *testing.T) {
	h := newHarness(t)

	root := workflow.NewRoot("s5", func(y *workflow.Yielder) (any, error) {
		_, err := y.YieldAll([]workitem.WorkItem{
			&demo.FlakyRequest{FailureRate: 0},
			&demo.FlakyRequest{FailureRate: 100},
			&demo.FlakyRequest{FailureRate: 0},
		})
		return nil, err
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.Error(t, err)
	assert.Nil(t, done.Result)
}

// S6: a fire-and-forget yield never blocks the parent on its target's
// completion.
func TestS6FireAndForgetDoesNotBlock(t *testing.T) {
	h := newHarness(t)

	root := workflow.NewRoot("s6", func(y *workflow.Yielder) (any, error) {
		v, err := y.Yield(workflow.FireAndForget(&demo.FlakyRequest{FailureRate: 100}))
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	h.coord.Submit(root)

	done, err := h.coord.WaitUntilDone(context.Background())
	require.NoError(t, err)
	assert.Nil(t, done.Result)
}
