package config

var Presets = map[string]*Config{
	"default": {
		Dim: 2, Epsilon: 1e-1, Tolerance: 1e-4, MaxIterations: 1000,
	},
	// Tighter equilibrium band; slower, for publication-grade force plots.
	"fine": {
		Dim: 2, Epsilon: 1e-2, Tolerance: 1e-6, MaxIterations: 5000,
	},
	// Loose band for quick interactive exploration of large structures.
	"coarse": {
		Dim: 2, Epsilon: 5e-1, Tolerance: 1e-3, MaxIterations: 300,
	},
	"spatial": {
		Dim: 3, Epsilon: 1e-1, Tolerance: 1e-4, MaxIterations: 2000,
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	out := *cfg
	return &out
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
