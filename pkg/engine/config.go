package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-flowviz/pkg/camera"
	"github.com/dd0wney/cluso-flowviz/pkg/interaction"
	"github.com/dd0wney/cluso-flowviz/pkg/render"
	"github.com/dd0wney/cluso-flowviz/pkg/validation"
	"github.com/dd0wney/cluso-flowviz/pkg/visualization"
)

// FocusConfig controls the initial focus on a named node
type FocusConfig struct {
	// SettleMs is how long the layout runs before the camera moves
	SettleMs   float64 `yaml:"settleMs"`
	Scale      float64 `yaml:"scale"`
	DurationMs float64 `yaml:"durationMs"`
}

// Validate checks the focus settings
func (c FocusConfig) Validate() error {
	return validation.NewConfigValidator("FocusConfig").
		NonNegativeFloat("SettleMs", c.SettleMs).
		PositiveFloat("Scale", c.Scale).
		NonNegativeFloat("DurationMs", c.DurationMs).
		Validate()
}

// Config gathers every tunable of an engine
type Config struct {
	Width       float64                   `yaml:"width"`
	Height      float64                   `yaml:"height"`
	Force       visualization.ForceConfig `yaml:"force"`
	Camera      camera.Config             `yaml:"camera"`
	Visual      render.VisualConfig       `yaml:"visual"`
	Interaction interaction.Config        `yaml:"interaction"`
	Focus       FocusConfig               `yaml:"focus"`
}

// DefaultConfig returns the reference configuration for a 960x600 viewport
func DefaultConfig() Config {
	return Config{
		Width:       960,
		Height:      600,
		Force:       visualization.DefaultForceConfig(),
		Camera:      camera.DefaultConfig(),
		Visual:      render.DefaultVisualConfig(),
		Interaction: interaction.DefaultConfig(),
		Focus: FocusConfig{
			SettleMs:   1500,
			Scale:      1.5,
			DurationMs: 750,
		},
	}
}

// Validate checks the viewport and every nested section
func (c Config) Validate() error {
	viewport := validation.NewConfigValidator("EngineConfig").
		PositiveFloat("Width", c.Width).
		Finite("Width", c.Width).
		PositiveFloat("Height", c.Height).
		Finite("Height", c.Height)
	return validation.ValidateAll(viewport, c.Force, c.Camera, c.Visual, c.Interaction, c.Focus)
}

// ParseConfig overlays YAML onto the defaults and validates the result.
// Unknown keys are rejected; empty input yields the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine config: %w", err)
	}
	return ParseConfig(data)
}
