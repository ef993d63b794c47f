package workflow

// DefaultMaxIterations is the fixed cap shared by the per-loop counter and
// the global runaway guard. It bounds total per-run work independent of
// graph shape.
const DefaultMaxIterations = 1000

// EngineConfig holds the tunable engine settings.
type EngineConfig struct {
	// MaxIterations caps both any single loop's iteration count and the
	// total number of work-list frames per run.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// MetricsNamespace prefixes the Prometheus metric names.
	MetricsNamespace string `json:"metrics_namespace" yaml:"metrics_namespace"`
}

// DefaultEngineConfig returns the default engine settings.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations:    DefaultMaxIterations,
		MetricsNamespace: "skein",
	}
}

// normalize fills zero values with defaults.
func (c EngineConfig) normalize() EngineConfig {
	defaults := DefaultEngineConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = defaults.MetricsNamespace
	}
	return c
}
