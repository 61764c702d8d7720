package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dpxdt/coordinator/internal/queue"
	"github.com/dpxdt/coordinator/pkg/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoItem struct {
	workitem.Item
	Payload string
}

func TestWorkerEchoesResult(t *testing.T) {
	in := queue.New(4)
	out := queue.New(4)

	w := New("echo", in, out, HandlerFunc(func(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
		e := item.(*echoItem)
		e.SetResult(e.Payload)
		return e, nil
	}))
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	in.Push(&echoItem{Payload: "hi"})

	got, ok := out.Pop(time.Second)
	require.True(t, ok)
	e := got.(*echoItem)
	assert.Equal(t, "hi", e.Result)
	assert.Nil(t, e.Err)
}

func TestWorkerCapturesHandlerError(t *testing.T) {
	in := queue.New(4)
	out := queue.New(4)

	boom := errors.New("nope")
	w := New("boom", in, out, HandlerFunc(func(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
		return nil, boom
	}))
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	item := &echoItem{Payload: "x"}
	in.Push(item)

	got, ok := out.Pop(time.Second)
	require.True(t, ok)
	e := got.(*echoItem)
	require.NotNil(t, e.Err)
	assert.Equal(t, workitem.KindHandler, e.Err.Kind)
	assert.Equal(t, "nope", e.Err.Message)
}

func TestWorkerNilSuccessorDropsSilently(t *testing.T) {
	in := queue.New(4)
	out := queue.New(4)

	w := New("drop", in, out, HandlerFunc(func(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
		return nil, nil
	}))
	w.PollInterval = 10 * time.Millisecond
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	in.Push(&echoItem{Payload: "gone"})

	_, ok := out.Pop(50 * time.Millisecond)
	assert.False(t, ok)
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	in := queue.New(1)
	out := queue.New(1)
	w := New("idle", in, out, HandlerFunc(func(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
		return item, nil
	}))
	w.PollInterval = 5 * time.Millisecond
	w.Start()

	w.Stop()
	w.Stop() // must not panic or block
	w.Join()
}

func TestGroupStartsMultipleWorkers(t *testing.T) {
	in := queue.New(16)
	out := queue.New(16)

	g := NewGroup("echo", 4, in, out, HandlerFunc(func(_ context.Context, item workitem.WorkItem) (workitem.WorkItem, error) {
		time.Sleep(time.Millisecond)
		return item, nil
	}))
	require.Equal(t, 4, g.Len())
	g.Start()
	defer func() {
		g.Stop()
		g.Join()
	}()

	for i := 0; i < 10; i++ {
		in.Push(&echoItem{Payload: "x"})
	}
	for i := 0; i < 10; i++ {
		_, ok := out.Pop(time.Second)
		require.True(t, ok)
	}
}
