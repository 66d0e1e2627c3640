package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/piwi3910/PitPlan/internal/model"
)

// FileExtension is the extension used for saved projects.
const FileExtension = ".pitplan"

// SaveProject writes the project as indented JSON, stamping the current
// file format version.
func SaveProject(path string, p model.Project) error {
	p.Version = model.ProjectVersion
	if p.Regions == nil {
		p.Regions = []model.Region{}
	}
	if p.Plan == nil {
		p.Plan = []model.PlanItem{}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// LoadProject reads a project file. Plan items are decoded loosely: angles and
// quantities may be numbers or numeric strings, anything else reads as zero.
// Items and regions without a key are dropped.
func LoadProject(path string) (model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Project{}, fmt.Errorf("failed to read project file: %w", err)
	}
	return DecodeProject(data)
}

// projectFile mirrors model.Project with a permissive plan.
type projectFile struct {
	Version     int                        `json:"version"`
	Name        string                     `json:"name"`
	PointSource string                     `json:"pointSource"`
	Regions     []model.Region             `json:"regions"`
	Plan        []planItemFile             `json:"plan"`
	Feasibility *model.FeasibilitySettings `json:"feasibility"`
	Genetic     *model.GeneticConfig       `json:"genetic"`
	Targets     model.Targets              `json:"targets"`
}

type planItemFile struct {
	ID        looseString `json:"id"`
	RegionKey looseString `json:"regionKey"`
	Angle     looseNumber `json:"angle"`
	Quantity  looseNumber `json:"quantity"`
}

// looseNumber accepts a JSON number or a numeric string. Any other value,
// including a non-finite one, decodes as 0.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v float64
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v = parsed
	} else if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = looseNumber(v)
	return nil
}

// looseString accepts a JSON string or number; other values decode as "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = looseString(v)
		}
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = looseString(num.String())
	}
	return nil
}

// DecodeProject parses project JSON. A missing version is read as the
// current one; any other version is rejected.
func DecodeProject(data []byte) (model.Project, error) {
	var f projectFile
	if err := json.Unmarshal(data, &f); err != nil {
		return model.Project{}, fmt.Errorf("failed to parse project file: %w", err)
	}
	if f.Version == 0 {
		f.Version = model.ProjectVersion
	}
	if f.Version != model.ProjectVersion {
		return model.Project{}, fmt.Errorf("unsupported project version %d (expected %d)", f.Version, model.ProjectVersion)
	}

	p := model.NewProject()
	if f.Name != "" {
		p.Name = f.Name
	}
	p.PointSource = f.PointSource
	p.Targets = f.Targets
	if p.Targets.PointCount < 0 {
		p.Targets.PointCount = 0
	}
	if f.Feasibility != nil {
		p.Feasibility = f.Feasibility.Normalize()
	}
	if f.Genetic != nil {
		p.Genetic = f.Genetic.Clamp()
	}

	seen := make(map[string]bool, len(f.Regions))
	for _, r := range f.Regions {
		if r.Key == "" || seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		if r.MinZ > r.MaxZ {
			r.MinZ, r.MaxZ = r.MaxZ, r.MinZ
		}
		p.Regions = append(p.Regions, r)
	}

	for _, it := range f.Plan {
		if it.RegionKey == "" {
			continue
		}
		item := model.NewPlanItem(string(it.RegionKey), 0, quantityOf(float64(it.Quantity)))
		item.Angle = model.NormalizeAngle(float64(it.Angle))
		if it.ID != "" {
			item.ID = string(it.ID)
		}
		p.Plan = append(p.Plan, item)
	}
	return p, nil
}

func quantityOf(v float64) int {
	if v <= 0 {
		return 0
	}
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(v))
}
