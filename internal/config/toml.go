// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Op        *string `toml:"op"`
	Level     *string `toml:"level"`
	Mode      *string `toml:"mode"`
	Questions *int    `toml:"questions"`
	Duration  *string `toml:"duration"`
	TimeLimit *string `toml:"time-limit"`
	NoLimit   *bool   `toml:"no-limit"`
	Plain     *bool   `toml:"plain"`
	NoSave    *bool   `toml:"no-save"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	File   *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Practice.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (p PracticeConfig) validate() error {
	for name, value := range map[string]*string{"duration": p.Duration, "time-limit": p.TimeLimit} {
		if value == nil {
			continue
		}
		if _, err := ParseDuration(*value); err != nil {
			return fmt.Errorf("invalid %s in config: %w", name, err)
		}
	}
	return nil
}

// ParseDuration accepts Go durations ("90s", "1m30s") or bare seconds ("90").
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if secs, aerr := strconv.Atoi(s); aerr == nil {
		d, err = time.Duration(secs)*time.Second, nil
	}
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}
	return d, nil
}
