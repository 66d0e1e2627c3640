package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/PitPlan/internal/model"
)

func TestSaveAndLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")

	deep := model.OptimizerPreset{Name: "Deep", Description: "long runs", Config: model.DefaultGeneticConfig()}
	deep.Config.Generations = 5000
	presets := append(model.BuiltInPresets(), deep)

	if err := SavePresets(path, presets); err != nil {
		t.Fatalf("SavePresets failed: %v", err)
	}

	loaded, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 custom preset, got %d", len(loaded))
	}
	if loaded[0].Name != "Deep" || loaded[0].Config.Generations != 5000 {
		t.Errorf("unexpected preset %+v", loaded[0])
	}
	if loaded[0].IsBuiltIn {
		t.Error("loaded preset should not be built-in")
	}
}

func TestLoadPresetsMissingFile(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if presets == nil || len(presets) != 0 {
		t.Errorf("expected empty slice, got %v", presets)
	}
}

func TestLoadPresetsClampsAndDropsUnnamed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	data := []byte(`[
		{"name":"Huge","is_built_in":true,"config":{"population_size":50000,"mutation_rate":3}},
		{"name":"","config":{}}
	]`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	presets, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("LoadPresets failed: %v", err)
	}
	if len(presets) != 1 {
		t.Fatalf("expected 1 preset, got %d", len(presets))
	}
	p := presets[0]
	if p.IsBuiltIn {
		t.Error("file presets must never be marked built-in")
	}
	if p.Config.PopulationSize != model.MaxPopulationSize {
		t.Errorf("expected population clamped to %d, got %d", model.MaxPopulationSize, p.Config.PopulationSize)
	}
	if p.Config.MutationRate != 1 {
		t.Errorf("expected mutation rate clamped to 1, got %f", p.Config.MutationRate)
	}
}

func TestLoadPresetsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	if err := os.WriteFile(path, []byte("[{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPresets(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestAllPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	custom := []model.OptimizerPreset{
		{Name: "Quick", Config: model.DefaultGeneticConfig()},
		{Name: "Mine", Config: model.DefaultGeneticConfig()},
	}
	if err := SavePresets(path, custom); err != nil {
		t.Fatalf("SavePresets failed: %v", err)
	}

	all, err := AllPresets(path)
	if err != nil {
		t.Fatalf("AllPresets failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 3 built-in presets plus 1 custom, got %d", len(all))
	}
	if q := model.FindPreset(all, "Quick"); q == nil || !q.IsBuiltIn {
		t.Error("built-in Quick preset should not be shadowed")
	}
	if m := model.FindPreset(all, "Mine"); m == nil {
		t.Error("custom preset missing")
	}
}

func TestExportImportPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.json")
	preset := model.BuiltInPresets()[2]

	if err := ExportPreset(path, preset); err != nil {
		t.Fatalf("ExportPreset failed: %v", err)
	}
	imported, err := ImportPreset(path)
	if err != nil {
		t.Fatalf("ImportPreset failed: %v", err)
	}
	if imported.Name != preset.Name || imported.Config != preset.Config {
		t.Errorf("imported preset %+v does not match %+v", imported, preset)
	}
	if imported.IsBuiltIn {
		t.Error("imported preset should not be built-in")
	}
}

func TestImportPresetNoName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anon.json")
	if err := os.WriteFile(path, []byte(`{"config":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportPreset(path); err == nil {
		t.Fatal("expected error for preset without a name")
	}
}

func TestUpsertPreset(t *testing.T) {
	a := model.OptimizerPreset{Name: "A", Config: model.DefaultGeneticConfig()}
	b := model.OptimizerPreset{Name: "B", Config: model.DefaultGeneticConfig()}

	got, err := UpsertPreset([]model.OptimizerPreset{a, b}, model.OptimizerPreset{Name: "A", Description: "updated", IsBuiltIn: true})
	if err != nil {
		t.Fatalf("UpsertPreset failed: %v", err)
	}
	if len(got) != 2 || got[0].Description != "updated" || got[0].IsBuiltIn {
		t.Errorf("expected A replaced in place as a custom preset, got %+v", got)
	}

	got, err = UpsertPreset(got, model.OptimizerPreset{Name: "C"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2].Name != "C" {
		t.Errorf("expected C appended, got %+v", got)
	}

	if _, err := UpsertPreset(got, model.OptimizerPreset{Name: "Quick"}); err == nil {
		t.Error("expected built-in names to be rejected")
	}
	if _, err := UpsertPreset(got, model.OptimizerPreset{}); err == nil {
		t.Error("expected unnamed presets to be rejected")
	}
}
