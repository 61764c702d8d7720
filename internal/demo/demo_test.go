package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformIsDeterministic(t *testing.T) {
	req := &TransformRequest{Input: "hello"}
	next, err := Transform(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "transformed(hello)", next.Base().Result)
}

func TestFlakyAlwaysFailsAtFullRate(t *testing.T) {
	req := &FlakyRequest{FailureRate: 100}
	_, err := Flaky(context.Background(), req)
	assert.Error(t, err)
}

func TestFlakyNeverFailsAtZeroRate(t *testing.T) {
	req := &FlakyRequest{FailureRate: 0}
	next, err := Flaky(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", next.Base().Result)
}

func TestFetchSetsResultOnSuccess(t *testing.T) {
	// FailureRate on Fetch is fixed at 5%; run a handful of times and just
	// assert the handler never panics and, when it does succeed, the
	// result is populated.
	for i := 0; i < 20; i++ {
		req := &FetchRequest{URL: "https://example.com"}
		next, err := Fetch(context.Background(), req)
		if err != nil {
			continue
		}
		assert.NotEmpty(t, next.Base().Result)
	}
}
