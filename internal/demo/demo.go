// Package demo provides the bundled fetch/transform/flaky handlers used by
// the CLI's run command and exercised end to end by test/integration.
// These stand in for the original source's screenshot-capture and
// perceptual-diff workers (see SPEC_FULL.md §9); the simulated delay and
// failure-rate pattern is grounded on the teacher's worker.execute.
package demo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dpxdt/coordinator/pkg/workitem"
)

// FetchRequest asks the fetch handler to retrieve a URL. The demo handler
// never makes a real network call; it simulates latency and an occasional
// failure the way the teacher's execute() does.
type FetchRequest struct {
	workitem.Item
	URL string
}

// TransformRequest asks the transform handler to reshape Input.
type TransformRequest struct {
	workitem.Item
	Input string
}

// FlakyRequest is deliberately unreliable, for exercising error-handling
// paths (S4 in SPEC_FULL.md §10) without needing a real external failure.
type FlakyRequest struct {
	workitem.Item
	FailureRate int // percent, 0-100
}

// Fetch handles FetchRequest: a simulated 0-200ms fetch that fails 5% of
// the time.
func Fetch(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
	req := item.(*FetchRequest)
	time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	if rand.Intn(100) < 5 {
		return nil, fmt.Errorf("fetch %s: simulated network failure", req.URL)
	}
	req.SetResult(fmt.Sprintf("<html>%s</html>", req.URL))
	return req, nil
}

// Transform handles TransformRequest: a deterministic, pure reshape with
// no simulated failure, representing the cheap in-process stage of a
// pipeline.
func Transform(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
	req := item.(*TransformRequest)
	req.SetResult(fmt.Sprintf("transformed(%s)", req.Input))
	return req, nil
}

// Flaky handles FlakyRequest: fails with probability FailureRate, else
// succeeds immediately. Useful for scenario tests that need a predictable
// failure rate rather than the Fetch handler's fixed 5%.
func Flaky(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
	req := item.(*FlakyRequest)
	if rand.Intn(100) < req.FailureRate {
		return nil, errors.New("flaky: simulated failure")
	}
	req.SetResult("ok")
	return req, nil
}
