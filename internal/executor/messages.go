// Package executor runs the plan optimizer behind a one-way message interface.
// Callers send start and stop messages; the executor answers with progress and
// done messages. Every message carries the run id it belongs to.
package executor

import (
	"encoding/json"
	"fmt"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/model"
)

// MessageType identifies the kind of message in the envelope.
type MessageType string

const (
	TypeStart    MessageType = "start"
	TypeStop     MessageType = "stop"
	TypeProgress MessageType = "progress"
	TypeDone     MessageType = "done"
)

// Request is the optimizer invocation carried by a start message.
type Request struct {
	Regions            []engine.OptimizerRegion `json:"regions"`
	TargetPointCount   int                      `json:"targetPointCount"`
	TargetAverageGrade float64                  `json:"targetAverageGrade"`
	Config             *model.GeneticConfig     `json:"config,omitempty"`
	Seed               *uint32                  `json:"seed,omitempty"`
}

// Message is the envelope exchanged between caller and executor.
type Message struct {
	Type  MessageType `json:"type"`
	RunID uint64      `json:"runId"`

	Request    *Request          `json:"request,omitempty"`
	Generation int               `json:"generation,omitempty"`
	Best       *engine.Candidate `json:"best,omitempty"`
	Result     *engine.Result    `json:"result,omitempty"`
}

func StartMessage(runID uint64, req Request) Message {
	return Message{Type: TypeStart, RunID: runID, Request: &req}
}

func StopMessage(runID uint64) Message {
	return Message{Type: TypeStop, RunID: runID}
}

func ProgressMessage(runID uint64, generation int, best engine.Candidate) Message {
	return Message{Type: TypeProgress, RunID: runID, Generation: generation, Best: &best}
}

func DoneMessage(runID uint64, result engine.Result) Message {
	return Message{Type: TypeDone, RunID: runID, Result: &result}
}

// Validate checks that the message carries the payload its type requires.
func (m Message) Validate() error {
	if m.RunID == 0 {
		return fmt.Errorf("%s message without run id", m.Type)
	}
	switch m.Type {
	case TypeStart:
		if m.Request == nil {
			return fmt.Errorf("start message %d without request", m.RunID)
		}
	case TypeStop:
	case TypeProgress:
		if m.Best == nil {
			return fmt.Errorf("progress message %d without candidate", m.RunID)
		}
	case TypeDone:
		if m.Result == nil {
			return fmt.Errorf("done message %d without result", m.RunID)
		}
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// Encode serializes a message to JSON.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses and validates a JSON message.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
