package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
}

type ApplicationConfig struct {
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

type RendererConfig struct {
	// DebugLabels controls whether human-readable names are attached to
	// GPU resources. When false, label arguments are carried through the
	// call chain but never reach the driver.
	DebugLabels bool `toml:"debug_labels"`
	// MaxDescSets is the number of descriptor sets each compute kernel
	// allocates up front, one per concurrently recorded dispatch.
	MaxDescSets uint32 `toml:"max_desc_sets"`
	// ShaderOverrideDir, when set, is watched for recompiled .spv files
	// that replace the embedded kernel binaries on the next build.
	ShaderOverrideDir string `toml:"shader_override_dir"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Astra",
			LogLevel: "info",
		},
		Renderer: RendererConfig{
			DebugLabels: false,
			MaxDescSets: 3,
		},
	}
}

// Load reads a TOML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if cfg.Renderer.MaxDescSets < 1 {
		return nil, fmt.Errorf("config: renderer.max_desc_sets must be at least 1, got %d", cfg.Renderer.MaxDescSets)
	}

	return cfg, nil
}
