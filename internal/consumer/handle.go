package consumer

import (
	"sync"
	"sync/atomic"
)

// workerResult is the worker goroutine's terminal payload: the owned
// consumer, plus the propagated handler/get error if the worker failed.
type workerResult struct {
	consumer *Consumer
	err      error
}

// Handle is the external control surface returned from Start: observe
// iterations, stop cooperatively, or join on completion.
type Handle struct {
	active     *atomic.Bool
	iterations *atomic.Uint64
	resultCh   chan workerResult

	mu        sync.Mutex
	delivered bool
}

// Started reports whether the worker's active flag is still true.
func (h *Handle) Started() bool {
	return h.active.Load()
}

// Stopped reports whether the worker's active flag has gone false.
func (h *Handle) Stopped() bool {
	return !h.active.Load()
}

// Iterations reports the shared iterations counter.
func (h *Handle) Iterations() uint64 {
	return h.iterations.Load()
}

// Stop atomically sets active=false, then blocks until the worker exits.
// Stopping an already-stopped handle is a no-op and does not panic or
// block: Stop swallows the ErrMissingHandler a redundant join would
// otherwise surface, since callers only need Stop to guarantee the worker
// has exited, not to retrieve its terminal result.
func (h *Handle) Stop() error {
	h.active.Store(false)
	_, err := h.join()
	if err == ErrMissingHandler {
		return nil
	}
	return err
}

// Wait joins the worker and returns its terminal result: the owned
// consumer, together with the propagated handler/get error if the worker
// failed (nil on clean exit). Wait
// consumes the handle — a second call, or a call after a prior Stop has
// already joined the worker, returns ErrMissingHandler.
func (h *Handle) Wait() (*Consumer, error) {
	return h.join()
}

func (h *Handle) join() (*Consumer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.delivered {
		return nil, ErrMissingHandler
	}
	r := <-h.resultCh
	h.delivered = true
	return r.consumer, r.err
}
