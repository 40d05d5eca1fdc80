// Package config loads jstackviz settings from a TOML file.
//
// Everything here is presentation-layer configuration: the core analysis
// functions take their parameters explicitly and never read ambient state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the CLI and server defaults. Flags override file values.
type Config struct {
	// Engine is the default Graphviz layout engine.
	Engine string `toml:"engine"`

	// IncludeIsolated includes threads that hold or await locks even when
	// they sit on no blocked-on edge.
	IncludeIsolated bool `toml:"include_isolated"`

	Highlight Highlight `toml:"highlight"`
	Cache     CacheConf `toml:"cache"`
	Server    Server    `toml:"server"`
}

// Highlight configures how deadlocked threads are marked in the graph.
type Highlight struct {
	Fill string `toml:"fill"` // node fill color
	Font string `toml:"font"` // contrasting text color
}

// CacheConf configures artifact caching.
type CacheConf struct {
	Dir      string `toml:"dir"`       // file cache directory (default: user cache dir)
	TTLHours int    `toml:"ttl_hours"` // entry lifetime, 0 = package default
}

// TTL returns the configured cache TTL as a duration.
func (c CacheConf) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 0
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// Server configures the serve command.
type Server struct {
	Addr      string `toml:"addr"`       // listen address
	RedisAddr string `toml:"redis_addr"` // redis cache backend, empty = file cache
	MongoURI  string `toml:"mongo_uri"`  // report history store, empty = disabled
	MongoDB   string `toml:"mongo_db"`   // database name
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: "dot",
		Highlight: Highlight{
			Fill: "red",
			Font: "white",
		},
		Server: Server{
			Addr:    ":8080",
			MongoDB: "jstackviz",
		},
	}
}

// Load reads the config file at path. An empty path loads DefaultPath(), and
// a missing file at the default location is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the default config file location
// ($XDG_CONFIG_HOME/jstackviz/config.toml), or "" if no user config
// directory is available.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jstackviz", "config.toml")
}

// CacheDir returns the configured cache directory, falling back to the user
// cache directory.
func (c Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".jstackviz-cache"
	}
	return filepath.Join(dir, "jstackviz")
}
