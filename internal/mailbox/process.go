package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrConcurrentDrain is returned when a second consumer tries to drain
	// a process that is already being drained.
	ErrConcurrentDrain = errors.New("process mailbox is already being drained")
	// ErrNotAccepted is returned when sending a method outside the contract.
	ErrNotAccepted = errors.New("method not accepted by process")
)

// Handler handles one message. An error stops the drain.
type Handler func(ctx context.Context, msg Message) error

// Process is a running instance of a process class: its contract and
// mailbox.
type Process struct {
	contract *Contract
	box      *Mailbox
	draining atomic.Bool
	handled  atomic.Uint64
}

// NewProcess creates a process with an empty mailbox.
func NewProcess(c *Contract) *Process {
	return &Process{contract: c, box: New()}
}

// Contract returns the process contract.
func (p *Process) Contract() *Contract { return p.contract }

// Mailbox exposes the process mailbox.
func (p *Process) Mailbox() *Mailbox { return p.box }

// Handled reports how many messages were delivered so far.
func (p *Process) Handled() uint64 { return p.handled.Load() }

// Send enqueues a call of method. Methods outside the contract are rejected.
func (p *Process) Send(method string, args ...any) (uint64, error) {
	if !p.contract.Accepts(method) {
		return 0, fmt.Errorf("%s.%s: %w", p.contract.Class, method, ErrNotAccepted)
	}
	return p.box.Push(method, args...)
}

// Close stops accepting messages.
func (p *Process) Close() { p.box.Close() }

// Drain delivers pending messages to h one at a time, in send order, until
// the mailbox is empty. It returns the number of delivered messages.
func (p *Process) Drain(ctx context.Context, h Handler) (int, error) {
	if !p.draining.CompareAndSwap(false, true) {
		return 0, ErrConcurrentDrain
	}
	defer p.draining.Store(false)
	return p.drain(ctx, h)
}

func (p *Process) drain(ctx context.Context, h Handler) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		msg, ok := p.box.Pop()
		if !ok {
			return n, nil
		}
		p.handled.Add(1)
		n++
		if err := h(ctx, msg); err != nil {
			return n, fmt.Errorf("%s.%s (message %d): %w", p.contract.Class, msg.Method, msg.Seq, err)
		}
	}
}

// Run drains the mailbox until it is closed and empty or ctx is done.
func (p *Process) Run(ctx context.Context, h Handler) error {
	if !p.draining.CompareAndSwap(false, true) {
		return ErrConcurrentDrain
	}
	defer p.draining.Store(false)
	for {
		if _, err := p.drain(ctx, h); err != nil {
			return err
		}
		if p.box.Closed() && p.box.Len() == 0 {
			return nil
		}
		if err := p.box.Wait(ctx); err != nil {
			return err
		}
	}
}
