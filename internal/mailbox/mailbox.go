package mailbox

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when sending to a closed mailbox.
var ErrClosed = errors.New("mailbox closed")

// Message is one pending async call.
type Message struct {
	Seq    uint64
	Method string
	Args   []any
}

// Mailbox is a FIFO with many senders and a single consumer.
type Mailbox struct {
	mu     sync.Mutex
	buf    []Message
	head   int
	seq    uint64
	closed bool
	notify chan struct{}
}

// New returns an empty open mailbox.
func New() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Push appends msg and returns its sequence number. Sequence numbers start at 1.
func (m *Mailbox) Push(method string, args ...any) (uint64, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrClosed
	}
	m.seq++
	seq := m.seq
	m.buf = append(m.buf, Message{Seq: seq, Method: method, Args: args})
	// notify is closed under mu, so the wakeup is sent under it too.
	select {
	case m.notify <- struct{}{}:
	default:
	}
	m.mu.Unlock()
	return seq, nil
}

// Pop removes the oldest message.
func (m *Mailbox) Pop() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buf)-m.head == 0 {
		return Message{}, false
	}
	msg := m.buf[m.head]
	m.buf[m.head] = Message{}
	m.head++
	if m.head >= len(m.buf) {
		m.buf = nil
		m.head = 0
	} else if m.head > 128 && m.head*2 >= len(m.buf) {
		m.buf = append([]Message(nil), m.buf[m.head:]...)
		m.head = 0
	}
	return msg, true
}

// Len reports the number of pending messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buf) - m.head
}

// Close stops accepting messages. Pending messages can still be popped.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.notify)
}

// Closed reports whether Close was called.
func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Wait blocks until a message may be available, the mailbox is closed or
// ctx is done.
func (m *Mailbox) Wait(ctx context.Context) error {
	if m.Len() > 0 {
		return nil
	}
	select {
	case <-m.notify:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
