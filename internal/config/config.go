package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pranayama-assistant/pranayama/internal/session"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Breathing  BreathingConfig  `yaml:"breathing"`
	Audio      AudioConfig      `yaml:"audio"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Server     ServerConfig     `yaml:"server"`
	UI         UIConfig         `yaml:"ui"`
}

type BreathingConfig struct {
	PaceSeconds          int `yaml:"pace_seconds"`
	PracticeLimitMinutes int `yaml:"practice_limit_minutes"`
}

type AudioConfig struct {
	Volume  float64 `yaml:"volume"`
	Backend string  `yaml:"backend"` // auto, command, bell, none
}

type MonitoringConfig struct {
	Camera             bool          `yaml:"camera"`
	CameraDevice       string        `yaml:"camera_device"` // glob, empty for the platform default
	CameraTimeout      time.Duration `yaml:"camera_timeout"`
	ModelPaths         []string      `yaml:"model_paths"`
	ModelTimeout       time.Duration `yaml:"model_timeout"`
	DetectorURL        string        `yaml:"detector_url"`
	DetectorToken      string        `yaml:"detector_token"`
	DetectorTimeout    time.Duration `yaml:"detector_timeout"`
	Mock               bool          `yaml:"mock"`
	MockPattern        string        `yaml:"mock_pattern"`
	MockInterval       time.Duration `yaml:"mock_interval"`
	PostureSensitivity int           `yaml:"posture_sensitivity"` // 1-10
}

type ServerConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Listen            string        `yaml:"listen"`
	Token             string        `yaml:"token"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	MaxConnections    int           `yaml:"max_connections"`
	BroadcastThrottle time.Duration `yaml:"broadcast_throttle"`
}

type UIConfig struct {
	PersistSettings bool   `yaml:"persist_settings"`
	LogFile         string `yaml:"log_file"`
}

// Range limits for user-adjustable settings.
const (
	MinPace  = 2
	MaxPace  = 12
	MaxLimit = 120
)

var ErrInvalid = errors.New("invalid config")

func defaultConfig() *Config {
	return &Config{
		Breathing: BreathingConfig{
			PaceSeconds: session.DefaultPace,
		},
		Audio: AudioConfig{
			Volume:  session.DefaultVolume,
			Backend: "auto",
		},
		Monitoring: MonitoringConfig{
			Camera:             true,
			CameraTimeout:      2 * time.Second,
			ModelTimeout:       3 * time.Second,
			DetectorTimeout:    3 * time.Second,
			MockPattern:        "steady",
			MockInterval:       2 * time.Second,
			PostureSensitivity: 5,
		},
		Server: ServerConfig{
			Listen:            "127.0.0.1:8765",
			MaxConnections:    16,
			BroadcastThrottle: 250 * time.Millisecond,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

// DefaultPath returns $XDG_CONFIG_HOME/pranayama/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "pranayama", "config.yaml")
}

// DefaultLogPath returns $XDG_STATE_HOME/pranayama/pranayama.log, falling
// back to ~/.local/state.
func DefaultLogPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "pranayama.log")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "pranayama", "pranayama.log")
}

func (c *Config) Validate() error {
	if err := ValidateSettings(c.Settings()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch {
	case c.Monitoring.PostureSensitivity < 1 || c.Monitoring.PostureSensitivity > 10:
		return fmt.Errorf("%w: monitoring.posture_sensitivity must be 1-10, got %d", ErrInvalid, c.Monitoring.PostureSensitivity)
	case c.Server.Enabled && c.Server.Listen == "":
		return fmt.Errorf("%w: server.listen is required when the server is enabled", ErrInvalid)
	}
	switch c.Audio.Backend {
	case "auto", "command", "bell", "none":
	default:
		return fmt.Errorf("%w: audio.backend must be auto, command, bell or none, got %q", ErrInvalid, c.Audio.Backend)
	}
	return nil
}

// ValidateSettings checks s against the ranges a config file accepts. Every
// settings change that may be saved goes through it, so a saved file always
// loads again. Errors wrap session.ErrInvalidSettings.
func ValidateSettings(s session.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	switch {
	case s.PaceSeconds < MinPace || s.PaceSeconds > MaxPace:
		return fmt.Errorf("%w: pace must be %d-%d, got %d", session.ErrInvalidSettings, MinPace, MaxPace, s.PaceSeconds)
	case s.PracticeLimitMinutes > MaxLimit:
		return fmt.Errorf("%w: practice limit must be at most %d, got %d", session.ErrInvalidSettings, MaxLimit, s.PracticeLimitMinutes)
	}
	return nil
}

// Settings extracts the session settings.
func (c *Config) Settings() session.Settings {
	return session.Settings{
		PaceSeconds:          c.Breathing.PaceSeconds,
		Volume:               c.Audio.Volume,
		PracticeLimitMinutes: c.Breathing.PracticeLimitMinutes,
	}
}

// SetSettings copies s back into the config.
func (c *Config) SetSettings(s session.Settings) {
	c.Breathing.PaceSeconds = s.PaceSeconds
	c.Audio.Volume = s.Volume
	c.Breathing.PracticeLimitMinutes = s.PracticeLimitMinutes
}

// ApplyEnv overrides fields from PRANAYAMA_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("PRANAYAMA_PACE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRANAYAMA_PACE: %w", err)
		}
		c.Breathing.PaceSeconds = n
	}
	if v, ok := os.LookupEnv("PRANAYAMA_VOLUME"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PRANAYAMA_VOLUME: %w", err)
		}
		c.Audio.Volume = f
	}
	if v, ok := os.LookupEnv("PRANAYAMA_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRANAYAMA_LIMIT: %w", err)
		}
		c.Breathing.PracticeLimitMinutes = n
	}
	if v, ok := os.LookupEnv("PRANAYAMA_LISTEN"); ok && v != "" {
		c.Server.Listen = v
		c.Server.Enabled = true
	}
	if v, ok := os.LookupEnv("PRANAYAMA_TOKEN"); ok {
		c.Server.Token = v
	}
	if v, ok := os.LookupEnv("PRANAYAMA_DETECTOR_URL"); ok {
		c.Monitoring.DetectorURL = v
	}
	return nil
}

// Save writes the config as YAML to a temp file in the same directory and
// renames it over path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// GenerateToken returns a random 128-bit hex token for the HTTP server.
func GenerateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Diff lists the user-visible differences between two configs, one line per
// changed field. Secrets are not printed.
func Diff(old, new *Config) []string {
	var changes []string
	add := func(name string, a, b any) {
		if fmt.Sprint(a) != fmt.Sprint(b) {
			changes = append(changes, fmt.Sprintf("%s: %v → %v", name, a, b))
		}
	}
	add("breathing.pace_seconds", old.Breathing.PaceSeconds, new.Breathing.PaceSeconds)
	add("breathing.practice_limit_minutes", old.Breathing.PracticeLimitMinutes, new.Breathing.PracticeLimitMinutes)
	add("audio.volume", old.Audio.Volume, new.Audio.Volume)
	add("audio.backend", old.Audio.Backend, new.Audio.Backend)
	add("monitoring.camera", old.Monitoring.Camera, new.Monitoring.Camera)
	add("monitoring.detector_url", old.Monitoring.DetectorURL, new.Monitoring.DetectorURL)
	add("monitoring.mock", old.Monitoring.Mock, new.Monitoring.Mock)
	add("monitoring.posture_sensitivity", old.Monitoring.PostureSensitivity, new.Monitoring.PostureSensitivity)
	add("server.enabled", old.Server.Enabled, new.Server.Enabled)
	add("server.listen", old.Server.Listen, new.Server.Listen)
	if old.Server.Token != new.Server.Token {
		changes = append(changes, "server.token: changed")
	}
	add("ui.persist_settings", old.UI.PersistSettings, new.UI.PersistSettings)
	return changes
}
