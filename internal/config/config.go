package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the server-level settings. Game tuning is compiled into the
// rule sets; only operational knobs live here.
type Config struct {
	ListenAddr    string
	LogLevel      string
	AllowedOrigin string
	ShutdownGrace time.Duration
}

// Default returns the settings used when no file or environment override is
// present.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		AllowedOrigin: "*",
		ShutdownGrace: 10 * time.Second,
	}
}

// Load reads the [server] section of an ini file, then applies environment
// overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		file, err := ini.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		sec := file.Section("server")
		cfg.ListenAddr = sec.Key("listen_addr").MustString(cfg.ListenAddr)
		cfg.LogLevel = sec.Key("log_level").MustString(cfg.LogLevel)
		cfg.AllowedOrigin = sec.Key("allowed_origin").MustString(cfg.AllowedOrigin)
		grace := sec.Key("shutdown_grace_seconds").MustInt(int(cfg.ShutdownGrace / time.Second))
		cfg.ShutdownGrace = time.Duration(grace) * time.Second
	}

	if v := os.Getenv("GAMBLEAPP_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GAMBLEAPP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GAMBLEAPP_ALLOWED_ORIGIN"); v != "" {
		cfg.AllowedOrigin = v
	}
	return cfg, nil
}
