// Package config handles import configuration loading and management.
package config

// Config holds all import settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig controls how documents are decoded.
type ImportConfig struct {
	Workers      int  `yaml:"workers"`       // Primitives extracted in parallel, 0 = one per CPU
	LoadImages   bool `yaml:"load_images"`   // Resolve image payloads
	SkipOptional bool `yaml:"skip_optional"` // Keep only positions and indices
}

// OutputConfig holds paths written by the extract command.
type OutputConfig struct {
	ImageDir string `yaml:"image_dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			Workers:      0,
			LoadImages:   true,
			SkipOptional: false,
		},
		Output: OutputConfig{
			ImageDir: "images",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
