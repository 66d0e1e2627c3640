package model

import "testing"

func TestBuiltInPresets(t *testing.T) {
	presets := BuiltInPresets()
	if len(presets) != 3 {
		t.Fatalf("expected 3 built-in presets, got %d", len(presets))
	}
	for _, p := range presets {
		if !p.IsBuiltIn {
			t.Errorf("preset %s should be built-in", p.Name)
		}
		if p.Config != p.Config.Clamp() {
			t.Errorf("preset %s is outside the allowed parameter ranges", p.Name)
		}
	}
}

func TestFindPreset(t *testing.T) {
	presets := BuiltInPresets()
	if p := FindPreset(presets, "Thorough"); p == nil || p.Config.PopulationSize != 200 {
		t.Errorf("FindPreset(Thorough) = %+v", p)
	}
	if p := FindPreset(presets, "Missing"); p != nil {
		t.Errorf("expected nil for unknown preset, got %+v", p)
	}
}

func TestAppConfig_GeneticFor(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DefaultGenetic.Generations = 77

	if got := cfg.GeneticFor(BuiltInPresets()); got.Generations != 77 {
		t.Errorf("unset preset should use DefaultGenetic, got %d generations", got.Generations)
	}

	cfg.DefaultPreset = "Quick"
	if got := cfg.GeneticFor(BuiltInPresets()); got.Generations != 60 {
		t.Errorf("Quick preset should give 60 generations, got %d", got.Generations)
	}

	cfg.DefaultPreset = "Gone"
	if got := cfg.GeneticFor(BuiltInPresets()); got.Generations != 77 {
		t.Errorf("unknown preset should fall back to DefaultGenetic, got %d", got.Generations)
	}
}
