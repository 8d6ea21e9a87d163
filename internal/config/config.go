// Package config loads the decode pipeline's configuration: expansion depth,
// the decoder-mode token handed back to the translator, and the decode
// cache's storage directory. Defaults are set first, then overridden from
// file/env/flags via viper.
package config

import (
	"github.com/spf13/viper"

	"github.com/binlift/bin2ir/internal/symtree"
)

// Config is the decode pipeline's configuration.
type Config struct {
	// ExpansionDepth holds the configured symbolic-tree expansion depth. The
	// pipeline does not read it: the stack pass builds its trees with
	// symtree's default depth bound.
	ExpansionDepth int

	// Mode is the opaque decoder-mode token round-tripped to the translator,
	// e.g. an instruction-set sub-mode name.
	Mode string

	// CacheDir is where the decode cache (internal/decodecache) persists its
	// pebble-backed KV store.
	CacheDir string

	// LogLevel names the go-ethereum/log verbosity (crit/error/warn/info/debug/trace).
	LogLevel string
}

// Load builds a Config from defaults, then overrides from viper (file, env,
// flags already bound by cmd/bin2ir).
func Load(cfgFile string) (*Config, error) {
	cfg := &Config{
		ExpansionDepth: symtree.DefaultMaxDepth,
		Mode:           "default",
		CacheDir:       ".bin2ir-cache",
		LogLevel:       "info",
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if viper.IsSet("expansion_depth") {
		cfg.ExpansionDepth = viper.GetInt("expansion_depth")
	}
	if viper.IsSet("mode") {
		cfg.Mode = viper.GetString("mode")
	}
	if viper.IsSet("cache_dir") {
		cfg.CacheDir = viper.GetString("cache_dir")
	}
	if viper.IsSet("log_level") {
		cfg.LogLevel = viper.GetString("log_level")
	}

	if cfg.ExpansionDepth <= 0 {
		cfg.ExpansionDepth = symtree.DefaultMaxDepth
	}

	return cfg, nil
}
