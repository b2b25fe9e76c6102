// Implements the RequestQueue, which holds agents waiting for a venue slot.
// Requests are enqueued when a venue is at capacity

package sim

import (
	"fmt"
	"strings"
)

// ResourceRequest is a pending claim on one venue slot.
type ResourceRequest struct {
	Agent *Agent
	Tick  int64 // enqueue tick
}

func (r ResourceRequest) String() string {
	return fmt.Sprintf("%s@%d", r.Agent.Name(), r.Tick)
}

// RequestQueue represents a FIFO queue of requests waiting for capacity.
// Requests are granted strictly in enqueue order.
type RequestQueue struct {
	queue []ResourceRequest
}

// Enqueue adds a request to the back of the queue.
func (rq *RequestQueue) Enqueue(r ResourceRequest) {
	if r.Agent == nil {
		panic("Enqueue: request agent must not be nil")
	}
	rq.queue = append(rq.queue, r)
}

func (rq *RequestQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range rq.queue {
		sb.WriteString(val.String())
		if i < len(rq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of requests in the queue.
func (rq *RequestQueue) Len() int {
	return len(rq.queue)
}

// Peek returns the request at the front of the queue without removing it.
// The second return value is false if the queue is empty.
func (rq *RequestQueue) Peek() (ResourceRequest, bool) {
	if len(rq.queue) == 0 {
		return ResourceRequest{}, false
	}
	return rq.queue[0], true
}

// Dequeue removes the request at the front of the queue.
func (rq *RequestQueue) Dequeue() (ResourceRequest, bool) {
	if len(rq.queue) == 0 {
		return ResourceRequest{}, false
	}
	head := rq.queue[0]
	rq.queue = rq.queue[1:]
	return head, true
}
