package engine

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/piwi3910/PitPlan/internal/model"
)

// JSON cannot carry infinities, so an unscored candidate travels with a null score.

type candidateJSON struct {
	Items        []model.PlanItem `json:"items"`
	TotalPoints  int              `json:"totalPoints"`
	AverageGrade float64          `json:"averageGrade"`
	Score        *float64         `json:"score"`
}

func (c Candidate) wire() candidateJSON {
	w := candidateJSON{
		Items:        c.Items,
		TotalPoints:  c.TotalPoints,
		AverageGrade: c.AverageGrade,
	}
	if w.Items == nil {
		w.Items = []model.PlanItem{}
	}
	if !math.IsInf(c.Score, 0) && !math.IsNaN(c.Score) {
		score := c.Score
		w.Score = &score
	}
	return w
}

func (w candidateJSON) candidate() Candidate {
	c := Candidate{
		Items:        w.Items,
		TotalPoints:  w.TotalPoints,
		AverageGrade: w.AverageGrade,
		Score:        math.Inf(1),
	}
	if c.Items == nil {
		c.Items = []model.PlanItem{}
	}
	if w.Score != nil {
		c.Score = *w.Score
	}
	return c
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.wire())
}

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var w candidateJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = w.candidate()
	return nil
}

type resultJSON struct {
	candidateJSON
	Status      Status `json:"status"`
	Completed   bool   `json:"completed"`
	Generations int    `json:"generations"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		candidateJSON: r.Candidate.wire(),
		Status:        r.Status,
		Completed:     r.Completed,
		Generations:   r.Generations,
	})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		Candidate:   w.candidateJSON.candidate(),
		Status:      w.Status,
		Completed:   w.Completed,
		Generations: w.Generations,
	}
	return nil
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for c := StatusIdle; c <= StatusCancelled; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown optimizer status %q", text)
}
