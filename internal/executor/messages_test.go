package executor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/model"
)

func testResult() engine.Result {
	return engine.Result{
		Candidate: engine.Candidate{
			Items:        []model.PlanItem{model.NewPlanItem("a", 45, 80)},
			TotalPoints:  80,
			AverageGrade: 1,
			Score:        0.25,
		},
		Status:      engine.StatusConverged,
		Completed:   true,
		Generations: 12,
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"start", StartMessage(1, testRequest()), false},
		{"stop", StopMessage(2), false},
		{"progress", ProgressMessage(3, 10, engine.Candidate{}), false},
		{"done", DoneMessage(4, engine.Result{}), false},
		{"missing run id", StopMessage(0), true},
		{"start without request", Message{Type: TypeStart, RunID: 1}, true},
		{"progress without candidate", Message{Type: TypeProgress, RunID: 1}, true},
		{"done without result", Message{Type: TypeDone, RunID: 1}, true},
		{"unknown type", Message{Type: "pause", RunID: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEncodeDecode_Start(t *testing.T) {
	req := testRequest()
	data, err := Encode(StartMessage(9, req))
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeStart, m.Type)
	assert.Equal(t, uint64(9), m.RunID)
	require.NotNil(t, m.Request)
	assert.Equal(t, req, *m.Request)
}

func TestEncodeDecode_DoneWithEmptyResult(t *testing.T) {
	res := engine.Result{
		Candidate: engine.Candidate{Items: []model.PlanItem{}, Score: math.Inf(1)},
		Status:    engine.StatusIdle,
		Completed: true,
	}
	data, err := Encode(DoneMessage(5, res))
	require.NoError(t, err)

	m, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, m.Result)
	assert.True(t, math.IsInf(m.Result.Score, 1))
	assert.Equal(t, engine.StatusIdle, m.Result.Status)
	assert.True(t, m.Result.Completed)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"stop"}`))
	assert.Error(t, err, "run id is required")

	_, err = Decode([]byte(`{"type":"start","runId":3}`))
	assert.Error(t, err, "start needs a request")

	m, err := Decode([]byte(`{"type":"stop","runId":3}`))
	require.NoError(t, err)
	assert.Equal(t, StopMessage(3), m)
}
