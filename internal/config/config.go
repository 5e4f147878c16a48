// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/alfred-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete alfred configuration.
type Config struct {
	Version string `toml:"version"`

	Backend BackendConfig `toml:"backend"`
	Stream  StreamConfig  `toml:"stream"`
	Agent   AgentConfig   `toml:"agent"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
	UI      UIConfig      `toml:"ui"`
}

// BackendConfig locates the assistant backend.
type BackendConfig struct {
	URL               string  `toml:"url"`
	TimeoutSecs       int     `toml:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Timeout returns the per-request timeout for REST calls.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// StreamConfig controls response streaming.
type StreamConfig struct {
	Temperature float64 `toml:"temperature"`
	PaceMS      int     `toml:"pace_ms"`
	// CreateChatFirst creates the chat before streaming. When false the
	// backend creates it and reports the id in its start event.
	CreateChatFirst bool `toml:"create_chat_first"`
	// MaxLineKB bounds a single line of the event stream.
	MaxLineKB int `toml:"max_line_kb"`
}

// PaceInterval returns the delay between rendered fragments.
func (s StreamConfig) PaceInterval() time.Duration {
	return time.Duration(s.PaceMS) * time.Millisecond
}

// MaxLineSize returns the event stream line limit in bytes.
func (s StreamConfig) MaxLineSize() int {
	return s.MaxLineKB * 1024
}

// AgentConfig selects the model answering prompts.
type AgentConfig struct {
	Model string `toml:"model"`
}

// StorageConfig holds local file locations. Empty paths resolve under
// ConfigDir.
type StorageConfig struct {
	SessionFile  string `toml:"session_file"`
	CacheDB      string `toml:"cache_db"`
	CacheEnabled bool   `toml:"cache_enabled"`
}

// LogConfig configures the debug log.
type LogConfig struct {
	// File receives log output; empty discards it.
	File string `toml:"file"`
}

// UIConfig contains user interface settings.
type UIConfig struct {
	Theme        string `toml:"theme"`
	Markdown     bool   `toml:"markdown"`
	SidebarWidth int    `toml:"sidebar_width"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			URL:               "http://localhost:8000",
			TimeoutSecs:       30,
			RequestsPerSecond: 10,
		},
		Stream: StreamConfig{
			Temperature:     0.3,
			PaceMS:          15,
			CreateChatFirst: true,
			MaxLineKB:       1024,
		},
		Agent: AgentConfig{
			Model: "llama3.2",
		},
		Storage: StorageConfig{
			CacheEnabled: true,
		},
		UI: UIConfig{
			Theme:        "auto",
			Markdown:     true,
			SidebarWidth: 28,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// DirEnv overrides the configuration directory.
const DirEnv = "ALFRED_HOME"

// ConfigDir returns the alfred configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".alfred"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// SessionFilePath resolves the session identifier file.
func (c *Config) SessionFilePath() (string, error) {
	return c.resolve(c.Storage.SessionFile, "session")
}

// CacheDBPath resolves the history cache database.
func (c *Config) CacheDBPath() (string, error) {
	return c.resolve(c.Storage.CacheDB, "history.db")
}

func (c *Config) resolve(path, fallback string) (string, error) {
	if path != "" {
		return expandHome(path), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fallback), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads the configuration file, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Keys missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes path over the defaults without environment overrides or
// validation. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	fillDefaults(cfg)
	return cfg, nil
}

// fillDefaults restores defaults for values the file explicitly zeroed
// where zero is never meaningful.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaults.Backend.URL
	}
	if cfg.Backend.TimeoutSecs == 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Stream.PaceMS == 0 {
		cfg.Stream.PaceMS = defaults.Stream.PaceMS
	}
	if cfg.Stream.MaxLineKB == 0 {
		cfg.Stream.MaxLineKB = defaults.Stream.MaxLineKB
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = defaults.Agent.Model
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.SidebarWidth == 0 {
		cfg.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
}

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to path atomically with 0600
// permissions.
func SaveTo(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# alfred configuration file\n")
	buf.WriteString("# Environment variables ALFRED_* override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Backend.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Backend.URL),
		})
	}
	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Backend.TimeoutSecs),
		})
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.requests_per_second",
			Message: "must not be negative (0 disables the limit)",
		})
	}

	if c.Stream.Temperature < 0 || c.Stream.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "stream.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Stream.Temperature),
		})
	}
	if c.Stream.PaceMS < 1 || c.Stream.PaceMS > 1000 {
		errs = append(errs, ValidationError{
			Field:   "stream.pace_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Stream.PaceMS),
		})
	}
	if c.Stream.MaxLineKB < 16 || c.Stream.MaxLineKB > 65536 {
		errs = append(errs, ValidationError{
			Field:   "stream.max_line_kb",
			Message: fmt.Sprintf("must be between 16 and 65536, got %d", c.Stream.MaxLineKB),
		})
	}

	if strings.TrimSpace(c.Agent.Model) == "" {
		errs = append(errs, ValidationError{Field: "agent.model", Message: "must not be empty"})
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be between 12 and 80, got %d", c.UI.SidebarWidth),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - ALFRED_API_BASE: overrides backend.url
//   - ALFRED_MODEL: overrides agent.model
//   - ALFRED_PACE_MS: overrides stream.pace_ms
//   - ALFRED_LOG_FILE: overrides log.file
//   - ALFRED_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("ALFRED_API_BASE"); base != "" {
		c.Backend.URL = base
	}
	if model := os.Getenv("ALFRED_MODEL"); model != "" {
		c.Agent.Model = model
	}
	if pace := os.Getenv("ALFRED_PACE_MS"); pace != "" {
		if ms, err := strconv.Atoi(pace); err == nil {
			c.Stream.PaceMS = ms
		}
	}
	if file := os.Getenv("ALFRED_LOG_FILE"); file != "" {
		c.Log.File = file
	}
	if theme := os.Getenv("ALFRED_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its TOML key, e.g. "stream.pace_ms".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a configuration value from its string form. The result is not
// validated; call Validate before saving.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	return setFieldValue(field, value)
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	var keys []string
	walkKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func walkKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("toml")
		if name == "" || name == "-" {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			walkKeys(f.Type, prefix+name+".", keys)
			continue
		}
		*keys = append(*keys, prefix+name)
	}
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()

	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("key %s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("key '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("toml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue parses value into field according to its kind.
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return buf.String()
}
