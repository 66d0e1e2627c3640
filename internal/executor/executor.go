package executor

import (
	"context"
	"log"

	"github.com/piwi3910/PitPlan/internal/engine"
)

// DefaultBuffer is the channel capacity used when none is given.
const DefaultBuffer = 16

// Executor runs optimizer requests on a single worker goroutine. At most one
// run is active; a newer start message cancels it. Stop messages for any run
// other than the active one are discarded. Results leave only through the
// outbox.
type Executor struct {
	inbox  chan Message
	outbox chan Message
	lastID uint64
}

func New(buffer int) *Executor {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Executor{
		inbox:  make(chan Message, buffer),
		outbox: make(chan Message, buffer),
	}
}

// Inbox is where callers send start and stop messages. Closing it shuts the
// executor down after the active run stops.
func (e *Executor) Inbox() chan<- Message {
	return e.inbox
}

// Outbox delivers progress and done messages. It is closed when Run returns.
func (e *Executor) Outbox() <-chan Message {
	return e.outbox
}

// Run processes messages until ctx is done or the inbox is closed.
func (e *Executor) Run(ctx context.Context) error {
	defer close(e.outbox)

	var pending *Message
	for {
		var msg Message
		if pending != nil {
			msg, pending = *pending, nil
		} else {
			var ok bool
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok = <-e.inbox:
				if !ok {
					return nil
				}
			}
		}

		switch msg.Type {
		case TypeStart:
			if !e.accept(msg) {
				continue
			}
			pending = e.execute(ctx, msg)
		case TypeStop:
			log.Printf("[EXEC] discarding stop for run %d: no active run", msg.RunID)
		default:
			log.Printf("[EXEC] ignoring %s message for run %d", msg.Type, msg.RunID)
		}
	}
}

// accept admits a start message when its run id is newer than any seen before.
func (e *Executor) accept(msg Message) bool {
	if msg.Request == nil {
		log.Printf("[EXEC] discarding start for run %d: missing request", msg.RunID)
		return false
	}
	if msg.RunID <= e.lastID {
		log.Printf("[EXEC] discarding stale start for run %d (last %d)", msg.RunID, e.lastID)
		return false
	}
	e.lastID = msg.RunID
	return true
}

// execute runs one request to completion or cancellation. Incoming messages
// are examined once per generation. A newer start message ends the run and
// is returned so the caller can execute it next.
func (e *Executor) execute(ctx context.Context, start Message) *Message {
	runID := start.RunID
	req := start.Request
	log.Printf("[EXEC] run %d started: %d regions, target %d @ %.3f",
		runID, len(req.Regions), req.TargetPointCount, req.TargetAverageGrade)

	var next *Message
	stopped := false

	shouldStop := func() bool {
		for !stopped {
			select {
			case m, ok := <-e.inbox:
				if !ok {
					stopped = true
					break
				}
				switch {
				case m.Type == TypeStop && m.RunID == runID:
					log.Printf("[EXEC] run %d stop requested", runID)
					stopped = true
				case m.Type == TypeStart && m.Request != nil && m.RunID > runID:
					log.Printf("[EXEC] run %d superseded by run %d", runID, m.RunID)
					next = &m
					stopped = true
				default:
					log.Printf("[EXEC] discarding %s for run %d during run %d", m.Type, m.RunID, runID)
				}
			default:
				return false
			}
		}
		return true
	}

	res := engine.GeneratePlan(ctx, req.Regions, req.TargetPointCount, req.TargetAverageGrade, engine.Options{
		Config: req.Config,
		Seed:   req.Seed,
		OnProgress: func(gen int, best engine.Candidate) {
			e.emit(ctx, ProgressMessage(runID, gen, best))
		},
		ShouldStop: shouldStop,
	})

	log.Printf("[EXEC] run %d finished: %s after %d generations", runID, res.Status, res.Generations)
	e.emit(ctx, DoneMessage(runID, res))
	return next
}

func (e *Executor) emit(ctx context.Context, m Message) {
	select {
	case e.outbox <- m:
	case <-ctx.Done():
	}
}
