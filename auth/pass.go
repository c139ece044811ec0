package auth

import (
	"context"

	"github.com/google/uuid"
)

// Pass is one supervised resolution attempt. Triggers with the same
// credential key share a Pass while it is in flight.
type Pass struct {
	ID uuid.UUID

	key    string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Status before this pass published Resolving. Only the run goroutine
	// touches it.
	prev *Status

	// Set once before done is closed.
	status Status
	err    error
}

func newPass(parent context.Context, key string) *Pass {
	ctx, cancel := context.WithCancel(parent)
	return &Pass{
		ID:     uuid.New(),
		key:    key,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// finishedPass returns a Pass that is already done with err.
func finishedPass(st Status, err error) *Pass {
	p := newPass(context.Background(), "")
	p.cancel()
	p.finish(st, err)
	return p
}

func (p *Pass) finish(st Status, err error) {
	p.status = st
	p.err = err
	p.cancel()
	close(p.done)
}

// Done is closed when the pass has finished or been cancelled.
func (p *Pass) Done() <-chan struct{} {
	return p.done
}

// Cancel stops the pass. A cancelled pass never publishes its result; if it
// had already published Resolving and nothing replaced it, the resolver
// settles back to the status it had before the pass.
func (p *Pass) Cancel() {
	p.cancel()
}

// Wait blocks until the pass finishes or ctx is done. It returns the status
// the pass published; a cancelled pass returns PassCancelledErr with the
// resolver status at the time it stopped.
func (p *Pass) Wait(ctx context.Context) (Status, error) {
	select {
	case <-p.done:
		return p.status, p.err
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (p *Pass) cancelled() bool {
	return p.ctx.Err() != nil
}
