package model

// OptimizerPreset is a named set of genetic optimizer parameters.
type OptimizerPreset struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Config      GeneticConfig `json:"config"`
	IsBuiltIn   bool          `json:"is_built_in"`
}

// BuiltInPresets returns the presets shipped with the application.
func BuiltInPresets() []OptimizerPreset {
	quick := DefaultGeneticConfig()
	quick.PopulationSize = 30
	quick.Generations = 60
	quick.StallGenerations = 15

	thorough := DefaultGeneticConfig()
	thorough.PopulationSize = 200
	thorough.Generations = 1000
	thorough.StallGenerations = 150
	thorough.EliteCount = 4

	return []OptimizerPreset{
		{Name: "Quick", Description: "Small population, stops early", Config: quick, IsBuiltIn: true},
		{Name: "Balanced", Description: "Default parameters", Config: DefaultGeneticConfig(), IsBuiltIn: true},
		{Name: "Thorough", Description: "Large population and long search", Config: thorough, IsBuiltIn: true},
	}
}

// FindPreset returns the preset with the given name, or nil.
func FindPreset(presets []OptimizerPreset, name string) *OptimizerPreset {
	for i := range presets {
		if presets[i].Name == name {
			return &presets[i]
		}
	}
	return nil
}

// GeneticFor resolves the optimizer parameters named by DefaultPreset,
// falling back to DefaultGenetic when the preset is unknown or unset.
func (c AppConfig) GeneticFor(presets []OptimizerPreset) GeneticConfig {
	if c.DefaultPreset != "" {
		if p := FindPreset(presets, c.DefaultPreset); p != nil {
			return p.Config.Clamp()
		}
	}
	return c.DefaultGenetic.Clamp()
}
