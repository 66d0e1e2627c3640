package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/PitPlan/internal/model"
)

// BackupVersion is the format version written into backups.
const BackupVersion = 1

// Backup bundles the application settings and the custom optimizer presets.
// Projects and point clouds are not part of a backup.
type Backup struct {
	Version   int                     `json:"version"`
	CreatedAt time.Time               `json:"created_at"`
	Config    model.AppConfig         `json:"config"`
	Presets   []model.OptimizerPreset `json:"presets"`
}

// WriteBackup stores config and the custom presets among presets at path.
func WriteBackup(path string, config model.AppConfig, presets []model.OptimizerPreset) error {
	backup := Backup{
		Version:   BackupVersion,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Config:    config,
		Presets:   customPresets(presets),
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// ReadBackup loads a backup and normalizes it the same way the settings and
// preset loaders do.
func ReadBackup(path string) (Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Backup{}, fmt.Errorf("failed to read backup: %w", err)
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return Backup{}, fmt.Errorf("failed to parse backup: %w", err)
	}
	switch {
	case b.Version == 0:
		return Backup{}, fmt.Errorf("invalid backup %s: missing version", path)
	case b.Version > BackupVersion:
		return Backup{}, fmt.Errorf("backup version %d is newer than supported version %d", b.Version, BackupVersion)
	}

	if b.Config.RecentProjects == nil {
		b.Config.RecentProjects = []string{}
	}
	b.Config.DefaultGenetic = b.Config.DefaultGenetic.Clamp()
	b.Presets = customPresets(b.Presets)
	for i := range b.Presets {
		b.Presets[i].Config = b.Presets[i].Config.Clamp()
	}
	return b, nil
}

// RestoreBackup applies a backup: the settings file is replaced and the
// backed-up presets are merged into the custom presets file.
func RestoreBackup(b Backup, configPath, presetsPath string) error {
	if err := SaveAppConfig(configPath, b.Config); err != nil {
		return fmt.Errorf("failed to restore settings: %w", err)
	}
	existing, err := LoadPresets(presetsPath)
	if err != nil {
		return fmt.Errorf("failed to load presets: %w", err)
	}
	merged := existing
	for _, p := range b.Presets {
		if merged, err = UpsertPreset(merged, p); err != nil {
			return err
		}
	}
	if err := SavePresets(presetsPath, merged); err != nil {
		return fmt.Errorf("failed to restore presets: %w", err)
	}
	return nil
}
