package executor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Sender delivers messages to an executor.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// ChannelSender sends to an in-process executor inbox.
type ChannelSender chan<- Message

func (s ChannelSender) Send(ctx context.Context, m Message) error {
	select {
	case s <- m:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send %s message: %w", m.Type, ctx.Err())
	}
}

// Client is the caller side of the executor protocol. It tags each start with
// a new, strictly increasing run id and ignores replies for older runs.
//
// Run ids are seeded from the wall clock so that a fresh client talking to a
// long-lived executor still issues ids above anything an earlier client used.
type Client struct {
	sender Sender

	mu      sync.Mutex
	last    uint64
	current uint64
}

func NewClient(sender Sender) *Client {
	return newClientAt(sender, uint64(time.Now().UnixNano()))
}

func newClientAt(sender Sender, seed uint64) *Client {
	return &Client{sender: sender, last: seed}
}

// Start requests a new run and returns its id. Any earlier run is superseded.
func (c *Client) Start(ctx context.Context, req Request) (uint64, error) {
	c.mu.Lock()
	c.last++
	c.current = c.last
	id := c.current
	c.mu.Unlock()

	if err := c.sender.Send(ctx, StartMessage(id, req)); err != nil {
		return 0, err
	}
	return id, nil
}

// Stop asks the executor to cancel the current run.
func (c *Client) Stop(ctx context.Context) error {
	id := c.CurrentRun()
	if id == 0 {
		return nil
	}
	return c.sender.Send(ctx, StopMessage(id))
}

// CurrentRun returns the id of the most recently started run, or 0.
func (c *Client) CurrentRun() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Current reports whether a reply belongs to the most recent run.
func (c *Client) Current(m Message) bool {
	return m.RunID != 0 && m.RunID == c.CurrentRun()
}

// Updates filters replies down to those of the current run. The returned
// channel closes when replies closes or ctx is done.
func (c *Client) Updates(ctx context.Context, replies <-chan Message) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-replies:
				if !ok {
					return
				}
				if !c.Current(m) {
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Await starts a run and blocks until its done message arrives, forwarding
// progress to onProgress when set.
func (c *Client) Await(ctx context.Context, replies <-chan Message, req Request, onProgress func(Message)) (Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := c.Updates(ctx, replies)
	id, err := c.Start(ctx, req)
	if err != nil {
		return Message{}, err
	}
	for m := range updates {
		if m.RunID != id {
			continue
		}
		switch m.Type {
		case TypeProgress:
			if onProgress != nil {
				onProgress(m)
			}
		case TypeDone:
			return m, nil
		}
	}
	if ctx.Err() != nil {
		return Message{}, fmt.Errorf("run %d interrupted: %w", id, ctx.Err())
	}
	return Message{}, fmt.Errorf("run %d: executor closed before completion", id)
}
