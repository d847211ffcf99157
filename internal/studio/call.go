package studio

import "context"

// Call is the handle of a started operation.
type Call struct {
	done chan struct{}
	err  *OpError
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

func settledCall(err *OpError) *Call {
	c := newCall()
	c.finish(err)
	return c
}

func (c *Call) finish(err *OpError) {
	c.err = err
	close(c.done)
}

// Done is closed when the operation has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err returns the operation's failure once Done is closed.
func (c *Call) Err() error {
	select {
	case <-c.done:
	default:
		return nil
	}
	if c.err == nil {
		return nil
	}
	return c.err
}

// Wait blocks until the operation settles or ctx ends.
func (c *Call) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
