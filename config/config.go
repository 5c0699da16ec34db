// Package config provides configuration loading and validation for
// evolution runs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig marks configuration errors. They are fatal and surface
// before any generation runs.
var ErrInvalidConfig = errors.New("invalid configuration")

// Actions is the number of network outputs: turn left, go straight, turn right.
const Actions = 3

// Config holds all run configuration parameters.
type Config struct {
	Seed      int64           `yaml:"seed"`
	Network   NetworkConfig   `yaml:"network"`
	Evolution EvolutionConfig `yaml:"evolution"`
	World     WorldConfig     `yaml:"world"`
	Energy    EnergyConfig    `yaml:"energy"`
	Reward    RewardConfig    `yaml:"reward"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// NetworkConfig holds brain shape parameters.
type NetworkConfig struct {
	Architecture []int   `yaml:"architecture"`
	Activation   string  `yaml:"activation"`
	InitScale    float64 `yaml:"init_scale"`
}

// EvolutionConfig holds genetic algorithm parameters.
type EvolutionConfig struct {
	Population     int     `yaml:"population"`
	Generations    int     `yaml:"generations"`
	TournamentSize int     `yaml:"tournament_size"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	MutationRate   float64 `yaml:"mutation_rate"`
	Workers        int     `yaml:"workers"`
	PlateauWindow  int     `yaml:"plateau_window"`
	PlateauEpsilon float64 `yaml:"plateau_epsilon"`
}

// WorldConfig holds grid parameters.
type WorldConfig struct {
	Width         int  `yaml:"width"`
	Height        int  `yaml:"height"`
	InitialLength int  `yaml:"initial_length"`
	GrowOnCapture bool `yaml:"grow_on_capture"`
	MaxTicks      int  `yaml:"max_ticks"`
}

// EnergyConfig holds the agent's energy budget.
type EnergyConfig struct {
	Initial int `yaml:"initial"`
	Refill  int `yaml:"refill"`
}

// RewardConfig holds the fitness shaping constants.
type RewardConfig struct {
	Approach     float64 `yaml:"approach"`
	Retreat      float64 `yaml:"retreat"`
	CaptureBonus float64 `yaml:"capture_bonus"`
	EnergyBonus  float64 `yaml:"energy_bonus"`
}

// SensorsConfig toggles the optional network inputs. The target delta
// (dx, dy) is always present.
type SensorsConfig struct {
	Walls bool `yaml:"walls"`
	Body  bool `yaml:"body"`
}

// TelemetryConfig holds output parameters.
type TelemetryConfig struct {
	HallOfFameSize int  `yaml:"hall_of_fame_size"`
	Plot           bool `yaml:"plot"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumInputs int // sensor count the first layer must match
	Cells     int // World.Width * World.Height
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// ComputeDerived calculates values derived from loaded config. Call it again
// after changing fields in code.
func (c *Config) ComputeDerived() {
	c.Derived.NumInputs = 2
	if c.Sensors.Walls {
		c.Derived.NumInputs += 4
	}
	if c.Sensors.Body {
		c.Derived.NumInputs += 4
	}
	c.Derived.Cells = c.World.Width * c.World.Height
}

// Validate reports every configuration error it finds. Derived values are
// recomputed first.
func (c *Config) Validate() error {
	c.ComputeDerived()

	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	arch := c.Network.Architecture
	if len(arch) < 2 {
		bad("network.architecture needs at least 2 layers, got %d", len(arch))
	} else {
		for i, w := range arch {
			if w <= 0 {
				bad("network.architecture[%d] = %d, must be positive", i, w)
			}
		}
		if arch[0] != c.Derived.NumInputs {
			bad("network.architecture input width %d does not match %d enabled sensor inputs", arch[0], c.Derived.NumInputs)
		}
		if arch[len(arch)-1] != Actions {
			bad("network.architecture output width %d, must be %d", arch[len(arch)-1], Actions)
		}
	}
	switch c.Network.Activation {
	case "", "sigmoid", "relu":
	default:
		bad("network.activation %q, want sigmoid or relu", c.Network.Activation)
	}
	if c.Network.InitScale <= 0 {
		bad("network.init_scale must be positive, got %v", c.Network.InitScale)
	}

	ev := c.Evolution
	if ev.Population < 2 {
		bad("evolution.population must be at least 2, got %d", ev.Population)
	}
	if ev.Population%2 != 0 {
		bad("evolution.population must be even, got %d", ev.Population)
	}
	if ev.TournamentSize < 1 {
		bad("evolution.tournament_size must be at least 1, got %d", ev.TournamentSize)
	}
	if ev.CrossoverRate < 0 || ev.CrossoverRate > 1 {
		bad("evolution.crossover_rate %v outside [0, 1]", ev.CrossoverRate)
	}
	if ev.MutationRate < 0 || ev.MutationRate > 1 {
		bad("evolution.mutation_rate %v outside [0, 1]", ev.MutationRate)
	}
	if ev.Generations < 0 || ev.Workers < 0 || ev.PlateauWindow < 0 {
		bad("evolution.generations, workers and plateau_window must not be negative")
	}

	w := c.World
	if w.Width <= 0 || w.Height <= 0 {
		bad("world size %dx%d, both dimensions must be positive", w.Width, w.Height)
	}
	if w.InitialLength < 1 {
		bad("world.initial_length must be at least 1, got %d", w.InitialLength)
	} else if w.Width > 0 && w.Height > 0 && w.InitialLength >= w.Width*w.Height {
		bad("world.initial_length %d leaves no free cell on a %dx%d grid", w.InitialLength, w.Width, w.Height)
	}
	if w.MaxTicks < 0 {
		bad("world.max_ticks must not be negative, got %d", w.MaxTicks)
	}
	if !w.GrowOnCapture && w.MaxTicks == 0 {
		bad("world.max_ticks must be set when grow_on_capture is off, or a game may never end")
	}

	if c.Energy.Initial <= 0 || c.Energy.Refill <= 0 {
		bad("energy.initial and energy.refill must be positive, got %d and %d", c.Energy.Initial, c.Energy.Refill)
	}
	if c.Telemetry.HallOfFameSize < 0 {
		bad("telemetry.hall_of_fame_size must not be negative, got %d", c.Telemetry.HallOfFameSize)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
