package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// envVar binds one P21_* variable to a config field. set reports whether
// the raw value parsed; unparseable values leave the field alone.
type envVar struct {
	name string
	set  func(cfg *LocalConfig, raw string) bool
}

func text(field func(*LocalConfig) *string) func(*LocalConfig, string) bool {
	return func(cfg *LocalConfig, raw string) bool {
		*field(cfg) = raw
		return true
	}
}

func number(field func(*LocalConfig) *int) func(*LocalConfig, string) bool {
	return func(cfg *LocalConfig, raw string) bool {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return false
		}
		*field(cfg) = n
		return true
	}
}

func toggle(field func(*LocalConfig) *bool) func(*LocalConfig, string) bool {
	return func(cfg *LocalConfig, raw string) bool {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return false
		}
		*field(cfg) = b
		return true
	}
}

func list(field func(*LocalConfig) *[]string) func(*LocalConfig, string) bool {
	return func(cfg *LocalConfig, raw string) bool {
		var items []string
		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return false
		}
		*field(cfg) = items
		return true
	}
}

var envVars = []envVar{
	{"P21_PORT", number(func(c *LocalConfig) *int { return &c.Daemon.Port })},
	{"P21_BIND", text(func(c *LocalConfig) *string { return &c.Daemon.Bind })},
	{"P21_LOG_LEVEL", text(func(c *LocalConfig) *string { return &c.Daemon.LogLevel })},
	{"P21_ALLOWED_ORIGINS", list(func(c *LocalConfig) *[]string { return &c.Daemon.AllowedOrigins })},

	{"P21_STORAGE_BACKEND", text(func(c *LocalConfig) *string { return &c.Storage.Backend })},
	{"P21_STORAGE_PATH", text(func(c *LocalConfig) *string { return &c.Storage.Path })},

	{"P21_REMOTE_KIND", text(func(c *LocalConfig) *string { return &c.Remote.Kind })},
	{"P21_REMOTE_URL", text(func(c *LocalConfig) *string { return &c.Remote.URL })},
	{"P21_REMOTE_API_KEY", text(func(c *LocalConfig) *string { return &c.Remote.APIKey })},
	{"P21_REMOTE_TOKEN", text(func(c *LocalConfig) *string { return &c.Remote.Token })},
	{"P21_REMOTE_TIMEOUT", number(func(c *LocalConfig) *int { return &c.Remote.TimeoutSeconds })},

	{"P21_USER_ID", text(func(c *LocalConfig) *string { return &c.Sync.UserID })},
	{"P21_AUTO_PUSH", toggle(func(c *LocalConfig) *bool { return &c.Sync.AutoPush })},

	{"P21_QUEUE_ENABLED", toggle(func(c *LocalConfig) *bool { return &c.Queue.Enabled })},
	{"P21_QUEUE_URL", text(func(c *LocalConfig) *string { return &c.Queue.URL })},

	{"P21_WORKOUT_CATALOG", text(func(c *LocalConfig) *string { return &c.Workout.CatalogPath })},
	{"P21_LOCALE", text(func(c *LocalConfig) *string { return &c.Locale })},
}

// applyEnv overrides cfg with the P21_* variables that are set and returns
// the names of those it could not parse.
func applyEnv(cfg *LocalConfig) (ignored []string) {
	for _, v := range envVars {
		raw, ok := os.LookupEnv(v.name)
		if !ok || raw == "" {
			continue
		}
		if !v.set(cfg, raw) {
			ignored = append(ignored, v.name)
		}
	}
	return ignored
}
