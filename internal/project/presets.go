package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/PitPlan/internal/model"
)

// DefaultPresetsPath returns the default file path for custom optimizer presets.
func DefaultPresetsPath() string {
	return filepath.Join(DefaultConfigDir(), "presets.json")
}

// SavePresets saves custom presets to a JSON file. Built-in presets are skipped.
func SavePresets(path string, presets []model.OptimizerPreset) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(customPresets(presets), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// customPresets drops built-in and unnamed presets.
func customPresets(presets []model.OptimizerPreset) []model.OptimizerPreset {
	out := make([]model.OptimizerPreset, 0, len(presets))
	for _, p := range presets {
		if p.IsBuiltIn || p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// UpsertPreset adds p to the custom presets, replacing one with the same name.
// Built-in names are reserved.
func UpsertPreset(custom []model.OptimizerPreset, p model.OptimizerPreset) ([]model.OptimizerPreset, error) {
	if p.Name == "" {
		return nil, errors.New("preset has no name")
	}
	if model.FindPreset(model.BuiltInPresets(), p.Name) != nil {
		return nil, fmt.Errorf("preset %q is built in", p.Name)
	}
	p.IsBuiltIn = false
	p.Config = p.Config.Clamp()

	out := make([]model.OptimizerPreset, 0, len(custom)+1)
	replaced := false
	for _, c := range custom {
		if c.Name == p.Name {
			out = append(out, p)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, p)
	}
	return out, nil
}

// LoadPresets loads custom presets from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadPresets(path string) ([]model.OptimizerPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.OptimizerPreset{}, nil
		}
		return nil, err
	}

	var presets []model.OptimizerPreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return nil, err
	}

	out := presets[:0]
	for _, p := range presets {
		if p.Name == "" {
			continue
		}
		p.IsBuiltIn = false
		p.Config = p.Config.Clamp()
		out = append(out, p)
	}
	return out, nil
}

// AllPresets returns the built-in presets followed by the custom presets
// stored at path. A custom preset never shadows a built-in one.
func AllPresets(path string) ([]model.OptimizerPreset, error) {
	custom, err := LoadPresets(path)
	if err != nil {
		return nil, err
	}
	all := model.BuiltInPresets()
	for _, p := range custom {
		if model.FindPreset(all, p.Name) == nil {
			all = append(all, p)
		}
	}
	return all, nil
}

// ExportPreset exports a single preset to a JSON file (for sharing).
func ExportPreset(path string, preset model.OptimizerPreset) error {
	preset.IsBuiltIn = false
	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ImportPreset imports a single preset from a JSON file.
func ImportPreset(path string) (model.OptimizerPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.OptimizerPreset{}, err
	}

	var preset model.OptimizerPreset
	if err := json.Unmarshal(data, &preset); err != nil {
		return model.OptimizerPreset{}, err
	}

	preset.IsBuiltIn = false
	if preset.Name == "" {
		return model.OptimizerPreset{}, errors.New("imported preset has no name")
	}
	preset.Config = preset.Config.Clamp()
	return preset, nil
}
