package bus

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
)

// Bus wraps a NATS connection for request/reply style message handling.
// Inbound messages carry a reply subject; handlers answer through the
// ReplyFunc they are given.
type Bus struct {
	conn *nats.Conn
}

// ReplyFunc sends a JSON-encoded response back on the inbound message's
// reply subject.
type ReplyFunc func(v any) error

// Handler processes one inbound message. Implementations are invoked on
// their own goroutine so concurrently delivered messages never block one
// another.
type Handler func(data []byte, reply ReplyFunc)

// New creates a Bus connected to the provided NATS endpoint.
func New(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	return &Bus{conn: nc}, nil
}

// Close shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe creates a queue subscription on the given subject and invokes fn
// for each message. Replies go to the message's reply subject; messages
// without one are still processed, their replies discarded.
func (b *Bus) Subscribe(subject, queue string, fn Handler) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		reply := func(v any) error {
			if msg.Reply == "" {
				return nil
			}
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return msg.Respond(data)
		}

		go fn(msg.Data, reply)
	}

	sub, err := b.conn.QueueSubscribe(subject, queue, handler)
	if err != nil {
		return nil, err
	}

	return &subscription{sub: sub}, nil
}
