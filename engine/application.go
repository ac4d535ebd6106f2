package engine

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	// Directory the asset manager indexes. Created when missing.
	AssetsDir string `toml:"assets_dir"`
	// Number of workers importing files.
	Workers int `toml:"workers"`
	// Capacity of the job queue.
	QueueSize int `toml:"queue_size"`
	// One of debug, info, warn, error, fatal.
	LogLevel string `toml:"log_level"`
	// Upper bound of live entities, zero for none.
	MaxEntities int `toml:"max_entities"`
	// Re-import files when they change on disk.
	WatchAssets bool `toml:"watch_assets"`
	// Options applied to every scene node before it is loaded.
	Scene SceneConfig `toml:"scene"`
}

type SceneConfig struct {
	// Path of a toml file with scene options, relative to the working directory.
	OptionsFile string `toml:"options_file"`
}

func DefaultConfig() *Config {
	return &Config{
		AssetsDir: "assets",
		Workers:   runtime.NumCPU(),
		QueueSize: 256,
		LogLevel:  "info",
	}
}

// ParseConfig reads a toml configuration. Missing keys keep their default.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("engine config: negative queue_size %d", cfg.QueueSize)
	}
	return cfg, nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}
