package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestQueue_Peek_NonEmpty_ReturnsFront(t *testing.T) {
	// GIVEN a queue with requests [A, B]
	rq := &RequestQueue{}
	a, b := &Agent{ID: 1}, &Agent{ID: 2}
	rq.Enqueue(ResourceRequest{Agent: a, Tick: 5})
	rq.Enqueue(ResourceRequest{Agent: b, Tick: 6})

	// WHEN Peek() is called
	got, ok := rq.Peek()

	// THEN it returns the front element without removing it
	require.True(t, ok)
	assert.Same(t, a, got.Agent)
	assert.Equal(t, 2, rq.Len())
}

func TestRequestQueue_Empty(t *testing.T) {
	rq := &RequestQueue{}

	_, ok := rq.Peek()
	assert.False(t, ok)
	_, ok = rq.Dequeue()
	assert.False(t, ok)
	assert.Equal(t, "[]", rq.String())
}

func TestRequestQueue_Dequeue_FIFO(t *testing.T) {
	// GIVEN three requests enqueued in order
	rq := &RequestQueue{}
	for i := 0; i < 3; i++ {
		rq.Enqueue(ResourceRequest{Agent: &Agent{ID: i}, Tick: int64(i)})
	}
	assert.Equal(t, "[agent:0@0 agent:1@1 agent:2@2]", rq.String())

	// WHEN all are dequeued
	var got []int
	for rq.Len() > 0 {
		r, ok := rq.Dequeue()
		require.True(t, ok)
		got = append(got, r.Agent.ID)
	}

	// THEN they come out in enqueue order
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestRequestQueue_Enqueue_NilAgentPanics(t *testing.T) {
	rq := &RequestQueue{}
	assert.Panics(t, func() { rq.Enqueue(ResourceRequest{}) })
}
