// Package notify carries port outcomes from many scan workers to a single consumer.
//
// Producers are reference counted. Once the consumer handle has been taken no new
// producers can be created, and the stream ends by itself when the last producer is
// released. There is no end-of-stream message.
package notify

import (
	"errors"
	"sync"
	"sync/atomic"

	"ipsniffer/port"
)

var (
	// ErrSealed is returned when a handle is requested after the consumer was taken.
	ErrSealed = errors.New("notification channel sealed")
	// ErrReleased is returned by Send on a producer that was already released.
	ErrReleased = errors.New("producer already released")
	// ErrConsumerClosed is returned by Send when the consumer stopped reading.
	ErrConsumerClosed = errors.New("notification consumer closed")
)

// Channel is a multi-producer, single-consumer conduit of port outcomes.
type Channel struct {
	ch   chan port.Outcome
	gone chan struct{}

	mu     sync.Mutex
	sealed bool
	live   sync.WaitGroup

	goneOnce sync.Once
}

// New creates a channel buffering up to size outcomes. A size of port.MaxPort
// means a full scan never blocks a sender.
func New(size int) *Channel {
	if size < 0 {
		size = 0
	}
	return &Channel{
		ch:   make(chan port.Outcome, size),
		gone: make(chan struct{}),
	}
}

// Producer hands out a new write handle. Each handle must be released exactly once.
func (c *Channel) Producer() (*Producer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return nil, ErrSealed
	}
	c.live.Add(1)
	return &Producer{c: c}, nil
}

// Consumer seals the channel and returns its only read handle. The stream closes
// once every producer created before this call has been released.
func (c *Channel) Consumer() (*Consumer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return nil, ErrSealed
	}
	c.sealed = true
	go func() {
		c.live.Wait()
		close(c.ch)
	}()
	return &Consumer{c: c}, nil
}

// Producer is a worker's write handle. It is not safe for concurrent use.
type Producer struct {
	c        *Channel
	released atomic.Bool
}

// Send delivers an outcome. Outcomes from one producer arrive in send order.
func (p *Producer) Send(o port.Outcome) error {
	if p.released.Load() {
		return ErrReleased
	}
	select {
	case <-p.c.gone:
		return ErrConsumerClosed
	default:
	}
	select {
	case p.c.ch <- o:
		return nil
	case <-p.c.gone:
		return ErrConsumerClosed
	}
}

// Release drops the handle. Calls after the first are no-ops.
func (p *Producer) Release() {
	if p.released.CompareAndSwap(false, true) {
		p.c.live.Done()
	}
}

// Consumer is the single read handle of a Channel.
type Consumer struct {
	c *Channel
}

// Receive blocks until an outcome is available. It returns false at end of stream,
// which is reached when all producers are released and the buffer is drained, or
// once Close has been called, including by another goroutine while Receive waits.
func (c *Consumer) Receive() (port.Outcome, bool) {
	select {
	case <-c.c.gone:
		return port.Outcome{}, false
	default:
	}
	select {
	case o, ok := <-c.c.ch:
		return o, ok
	case <-c.c.gone:
		return port.Outcome{}, false
	}
}

// Close abandons the stream. Pending and future sends fail with ErrConsumerClosed
// instead of blocking. Closing a fully drained stream has no effect on anyone.
func (c *Consumer) Close() {
	c.c.goneOnce.Do(func() { close(c.c.gone) })
}
