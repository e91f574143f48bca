package core

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var ErrInvalidConfig = errors.New("invalid config")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds every construction-time setting. None of it may change once the
// particle store and GPU resources have been created.
type Config struct {
	ParticleCount int `json:"particle_count"`

	// Seeding
	InitialBoxSize           float32 `json:"initial_box_size"`
	InitialMaxSpeedComponent float32 `json:"initial_max_speed_component"`
	MaxSeedMass              float32 `json:"max_seed_mass"`
	AnchorMass               float32 `json:"anchor_mass"`
	Seed                     int64   `json:"seed"`

	// Lens
	FovYDegrees float32 `json:"fov_y_degrees"`
	Near        float32 `json:"near"`
	Far         float32 `json:"far"`
	MinZoom     float32 `json:"min_zoom"`
	MaxZoom     float32 `json:"max_zoom"`

	// Kernel
	Gravity     float32 `json:"gravity"`
	Softening   float32 `json:"softening"`
	TimeStep    float32 `json:"time_step"`
	BoundRadius float32 `json:"bound_radius"`

	// Render style
	PointSize     float32 `json:"point_size"`
	AnchorSize    float32 `json:"anchor_size"`
	MassThreshold float32 `json:"mass_threshold"`
}

func DefaultConfig() Config {
	return Config{
		ParticleCount:            2500,
		InitialBoxSize:           2,
		InitialMaxSpeedComponent: 2,
		MaxSeedMass:              0.05,
		AnchorMass:               1000,
		FovYDegrees:              45,
		Near:                     0.1,
		Far:                      100.0,
		MinZoom:                  1,
		MaxZoom:                  20,
		Gravity:                  0.001,
		Softening:                0.1,
		TimeStep:                 0.005,
		BoundRadius:              50,
		PointSize:                0.02,
		AnchorSize:               0.12,
		MassThreshold:            1,
	}
}

// LoadConfig decodes a JSON file on top of DefaultConfig, so a file only needs
// the fields it overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ParticleCount < AnchorCount:
		return fmt.Errorf("%w: particle_count must be at least %d, got %d", ErrInvalidConfig, AnchorCount, c.ParticleCount)
	case c.InitialBoxSize <= 0:
		return fmt.Errorf("%w: initial_box_size must be positive", ErrInvalidConfig)
	case c.InitialMaxSpeedComponent < 0:
		return fmt.Errorf("%w: initial_max_speed_component must not be negative", ErrInvalidConfig)
	case c.MaxSeedMass <= 0:
		return fmt.Errorf("%w: max_seed_mass must be positive", ErrInvalidConfig)
	case c.AnchorMass <= 0:
		return fmt.Errorf("%w: anchor_mass must be positive", ErrInvalidConfig)
	case c.FovYDegrees <= 0 || c.FovYDegrees >= 180:
		return fmt.Errorf("%w: fov_y_degrees must be in (0, 180), got %v", ErrInvalidConfig, c.FovYDegrees)
	case c.Near <= 0 || c.Far <= c.Near:
		return fmt.Errorf("%w: need 0 < near < far, got near=%v far=%v", ErrInvalidConfig, c.Near, c.Far)
	case c.MinZoom <= 0 || c.MaxZoom < c.MinZoom:
		return fmt.Errorf("%w: need 0 < min_zoom <= max_zoom, got [%v, %v]", ErrInvalidConfig, c.MinZoom, c.MaxZoom)
	case c.Gravity <= 0:
		return fmt.Errorf("%w: gravity must be positive", ErrInvalidConfig)
	case c.Softening <= 0:
		return fmt.Errorf("%w: softening must be positive", ErrInvalidConfig)
	case c.TimeStep <= 0:
		return fmt.Errorf("%w: time_step must be positive", ErrInvalidConfig)
	case c.BoundRadius <= 0:
		return fmt.Errorf("%w: bound_radius must be positive", ErrInvalidConfig)
	case c.PointSize <= 0 || c.AnchorSize <= 0:
		return fmt.Errorf("%w: point sizes must be positive", ErrInvalidConfig)
	}
	return nil
}
