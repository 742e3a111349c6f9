package upload

import "context"

// Handle tracks a batch started with Go.
type Handle struct {
	done   chan struct{}
	report *Report
	err    error
	cancel context.CancelFunc
}

// Go starts the batch in the background and returns a Handle for
// tracking it. The batch runs through the same coordinator core as
// Submit; it stops early when ctx is cancelled or Handle.Cancel is
// called.
func (c *Coordinator) Go(ctx context.Context, items []Item) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer func() {
			cancel()
			close(h.done)
		}()
		h.report, h.err = c.Submit(ctx, items)
	}()

	return h
}

// Done returns a channel that is closed when the batch completes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Report blocks until the batch completes and returns its report.
func (h *Handle) Report() (*Report, error) {
	<-h.done
	return h.report, h.err
}

// Cancel stops the batch early. In-flight uploads finish; items not yet
// attempted are reported as cancelled.
func (h *Handle) Cancel() {
	h.cancel()
}
