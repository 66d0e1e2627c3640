package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Defaults applied to new projects
	DefaultStandoffDistance float64       `json:"default_standoff_distance"`
	DefaultClearanceRadius  float64       `json:"default_clearance_radius"`
	DefaultGenetic          GeneticConfig `json:"default_genetic"`
	DefaultPreset           string        `json:"default_preset"` // name of an optimizer preset, empty = DefaultGenetic

	// Application preferences
	RecentProjects []string `json:"recent_projects"`
	ReportAuthor   string   `json:"report_author"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultFeasibilitySettings and DefaultGeneticConfig.
func DefaultAppConfig() AppConfig {
	feas := DefaultFeasibilitySettings()
	return AppConfig{
		DefaultStandoffDistance: feas.StandoffDistance,
		DefaultClearanceRadius:  feas.ClearanceRadius,
		DefaultGenetic:          DefaultGeneticConfig(),
		RecentProjects:          []string{},
	}
}

// ApplyToProject copies the default values from AppConfig into a project.
// This is used when creating a new project so it inherits the user's saved defaults.
func (c AppConfig) ApplyToProject(p *Project) {
	p.Feasibility = FeasibilitySettings{
		StandoffDistance: c.DefaultStandoffDistance,
		ClearanceRadius:  c.DefaultClearanceRadius,
	}.Normalize()
	p.Genetic = c.DefaultGenetic.Clamp()
}

// AddRecentProject moves path to the front of the recent list, keeping at most max entries.
func (c *AppConfig) AddRecentProject(path string, max int) {
	out := []string{path}
	for _, p := range c.RecentProjects {
		if p != path {
			out = append(out, p)
		}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	c.RecentProjects = out
}
