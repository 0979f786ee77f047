package render

import "sync"

// Scheduler hands work back to the UI loop that owns a Surface.
type Scheduler interface {
	// Post queues fn to run on the UI loop. Safe to call from any goroutine.
	Post(fn func())

	// RequestFrame queues fn to run right before the next presented frame.
	RequestFrame(fn func())
}

// FrameQueue is a Scheduler drained by the host loop. Posted tasks run
// when the host calls RunPosted; frame callbacks run when the host calls
// RunFrame, once per presented frame.
type FrameQueue struct {
	mu     sync.Mutex
	posted []func()
	frames []func()
	wake   chan struct{}
}

// NewFrameQueue creates an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{wake: make(chan struct{}, 1)}
}

// Post queues fn for the next RunPosted call.
func (q *FrameQueue) Post(fn func()) {
	q.mu.Lock()
	q.posted = append(q.posted, fn)
	q.mu.Unlock()
	q.signal()
}

// RequestFrame queues fn for the next RunFrame call.
func (q *FrameQueue) RequestFrame(fn func()) {
	q.mu.Lock()
	q.frames = append(q.frames, fn)
	q.mu.Unlock()
	q.signal()
}

// Wake is signalled whenever work is queued. Hosts that block on events
// (the terminal loop) select on it.
func (q *FrameQueue) Wake() <-chan struct{} {
	return q.wake
}

// RunPosted runs every task posted so far and returns how many ran.
func (q *FrameQueue) RunPosted() int {
	q.mu.Lock()
	tasks := q.posted
	q.posted = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

// RunFrame runs the frame callbacks requested before this call. Callbacks
// requested while running are kept for the following frame.
func (q *FrameQueue) RunFrame() int {
	q.mu.Lock()
	frames := q.frames
	q.frames = nil
	q.mu.Unlock()

	for _, fn := range frames {
		fn()
	}
	return len(frames)
}

// PendingFrames reports how many frame callbacks are waiting.
func (q *FrameQueue) PendingFrames() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

func (q *FrameQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
