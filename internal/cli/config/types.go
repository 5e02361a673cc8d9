// Package config provides configuration management for the starp CLI.
package config

import "time"

// Config holds all CLI configuration options.
type Config struct {
	Output    string         `koanf:"output"`
	Script    string         `koanf:"script"`
	LibDir    string         `koanf:"lib_dir"`
	Data      string         `koanf:"data"`
	Vars      map[string]any `koanf:"vars"`
	Seed      *int64         `koanf:"seed"`
	Debug     bool           `koanf:"debug"`
	Verbose   bool           `koanf:"verbose"`
	LogFormat string         `koanf:"log_format"`
	Color     string         `koanf:"color"`
	Format    string         `koanf:"format"`
	Jobs      int            `koanf:"jobs"`
	Debounce  time.Duration  `koanf:"debounce"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultLibDir    = "lib"
	DefaultLogFormat = "text"
	DefaultColor     = "auto"
	DefaultFormat    = "auto"
	DefaultDebounce  = 100 * time.Millisecond
	EnvPrefix        = "STARP_"
)

// ConfigFileNames are looked up in the working directory, in order.
var ConfigFileNames = []string{"starp.yaml", "starp.yml"}
