// Package config provides YAML-based configuration loading for the kiosk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level kiosk configuration, loaded from config.yaml.
type Config struct {
	Identity  IdentityConfig  `yaml:"identity"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Camera    CameraConfig    `yaml:"camera"`
	Timers    TimersConfig    `yaml:"timers"`
	Keys      KeysConfig      `yaml:"keys"`
	Log       LogConfig       `yaml:"log"`
	Directory DirectoryConfig `yaml:"directory"`
	UI        UIConfig        `yaml:"ui"`
}

// IdentityConfig points at the student directory service.
type IdentityConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AnalysisConfig holds the image-analysis service settings.
type AnalysisConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	APIVersion   string        `yaml:"api_version"`
	Model        string        `yaml:"model"`
	MaxTokens    int           `yaml:"max_tokens"`
	SystemPrompt string        `yaml:"system_prompt"`
	Instruction  string        `yaml:"instruction"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CameraConfig selects and configures the capture resource. CaptureTimeout
// bounds how long a capture waits for the camera to open and deliver its
// first frame.
type CameraConfig struct {
	Driver         string        `yaml:"driver"` // "ffmpeg" or "still"
	Device         string        `yaml:"device"`
	Command        []string      `yaml:"command"` // overrides the default ffmpeg invocation
	StillPath      string        `yaml:"still_path"`
	StopGrace      time.Duration `yaml:"stop_grace"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
}

// TimersConfig holds the session timer durations.
type TimersConfig struct {
	Transition time.Duration `yaml:"transition"`
	Reset      time.Duration `yaml:"reset"`
}

// KeysConfig maps kiosk actions to key names as reported by Bubble Tea.
type KeysConfig struct {
	Advance   []string `yaml:"advance"`
	Reanalyze []string `yaml:"reanalyze"`
	Reset     []string `yaml:"reset"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DirectoryConfig configures the bundled student directory service.
type DirectoryConfig struct {
	Port       int    `yaml:"port"`
	DBPath     string `yaml:"db_path"`
	APIKey     string `yaml:"api_key"`
	CORSOrigin string `yaml:"cors_origin"` // empty allows any origin
}

// UIConfig holds presentation text.
type UIConfig struct {
	Title        string `yaml:"title"`
	WelcomeText  string `yaml:"welcome_text"`
	WelcomeText2 string `yaml:"welcome_text_2"`
	ThanksText   string `yaml:"thanks_text"`
	Debug        bool   `yaml:"debug"`
}

// Drivers accepted in camera.driver.
const (
	DriverFFmpeg = "ffmpeg"
	DriverStill  = "still"
)

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// projectConfigPath returns the project-level config path (.kiosk/config.yaml in cwd)
func projectConfigPath() string {
	return filepath.Join(".kiosk", "config.yaml")
}

// globalConfigPath returns the global config file path (~/.kiosk/config.yaml)
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".kiosk", "config.yaml"), nil
}

// Load reads the config at path. An empty path checks the project config first,
// then the global one, and falls back to defaults when neither exists.
func Load(path string) (*Config, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		return Parse(data)
	}

	candidates := []string{projectConfigPath()}
	if global, err := globalConfigPath(); err == nil {
		candidates = append(candidates, global)
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			return Parse(data)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
	}

	return Parse(nil)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets and endpoints come from the environment.
func (c *Config) applyEnv() {
	c.Analysis.APIKey = envStr("ANTHROPIC_API_KEY", c.Analysis.APIKey)
	c.Analysis.BaseURL = envStr("KIOSK_ANALYSIS_URL", c.Analysis.BaseURL)
	c.Identity.BaseURL = envStr("KIOSK_IDENTITY_URL", c.Identity.BaseURL)
	c.Directory.APIKey = envStr("KIOSK_DIRECTORY_API_KEY", c.Directory.APIKey)
	c.Log.Level = envStr("LOG_LEVEL", c.Log.Level)
}

// applyDefaults fills in every unset value.
func (c *Config) applyDefaults() {
	if c.Identity.BaseURL == "" {
		c.Identity.BaseURL = "http://localhost:3131"
	}
	c.Identity.BaseURL = strings.TrimRight(c.Identity.BaseURL, "/")
	if c.Identity.Timeout == 0 {
		c.Identity.Timeout = 10 * time.Second
	}

	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = "https://api.anthropic.com"
	}
	c.Analysis.BaseURL = strings.TrimRight(c.Analysis.BaseURL, "/")
	if c.Analysis.APIVersion == "" {
		c.Analysis.APIVersion = "2023-06-01"
	}
	if c.Analysis.Model == "" {
		c.Analysis.Model = "claude-3-5-sonnet-20241022"
	}
	if c.Analysis.MaxTokens == 0 {
		c.Analysis.MaxTokens = 8192
	}
	if c.Analysis.SystemPrompt == "" {
		c.Analysis.SystemPrompt = "Türkçe anlat. Markdown formatında cevap ver."
	}
	if c.Analysis.Instruction == "" {
		c.Analysis.Instruction = "Analiz et"
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 90 * time.Second
	}

	if c.Camera.Driver == "" {
		c.Camera.Driver = DriverFFmpeg
	}
	if c.Camera.Device == "" {
		c.Camera.Device = "/dev/video0"
	}
	if c.Camera.StopGrace == 0 {
		c.Camera.StopGrace = 2 * time.Second
	}
	if c.Camera.CaptureTimeout == 0 {
		c.Camera.CaptureTimeout = 3 * time.Second
	}

	if c.Timers.Transition == 0 {
		c.Timers.Transition = 500 * time.Millisecond
	}
	if c.Timers.Reset == 0 {
		c.Timers.Reset = 3 * time.Second
	}

	if len(c.Keys.Advance) == 0 {
		c.Keys.Advance = []string{"g", "G"}
	}
	if len(c.Keys.Reanalyze) == 0 {
		c.Keys.Reanalyze = []string{"j", "J"}
	}
	if len(c.Keys.Reset) == 0 {
		c.Keys.Reset = []string{"ctrl+r"}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "kiosk.log"
	}

	if c.Directory.Port == 0 {
		c.Directory.Port = 3131
	}
	if c.Directory.DBPath == "" {
		c.Directory.DBPath = filepath.Join("data", "directory.db")
	}

	if c.UI.Title == "" {
		c.UI.Title = "AI Görüntü Analizi"
	}
	if c.UI.WelcomeText == "" {
		c.UI.WelcomeText = "Hoş geldiniz"
	}
	if c.UI.WelcomeText2 == "" {
		c.UI.WelcomeText2 = "Fotoğrafınızı yapay zekâya yorumlatın"
	}
	if c.UI.ThanksText == "" {
		c.UI.ThanksText = "Teşekkürler!"
	}
}

// validate checks that all values are usable, reporting every problem at once.
func (c *Config) validate() error {
	var errs []string
	if c.Identity.Timeout < 0 {
		errs = append(errs, "identity.timeout must be positive")
	}
	if c.Analysis.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("analysis.max_tokens must be positive, got %d", c.Analysis.MaxTokens))
	}
	if c.Analysis.Timeout < 0 {
		errs = append(errs, "analysis.timeout must be positive")
	}
	switch c.Camera.Driver {
	case DriverFFmpeg:
	case DriverStill:
		if c.Camera.StillPath == "" {
			errs = append(errs, "camera.still_path is required for the still driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("camera.driver must be %q or %q, got %q", DriverFFmpeg, DriverStill, c.Camera.Driver))
	}
	if c.Timers.Transition < 0 || c.Timers.Reset < 0 {
		errs = append(errs, "timers must not be negative")
	}
	if c.Camera.CaptureTimeout < 0 {
		errs = append(errs, "camera.capture_timeout must not be negative")
	}
	if overlap := overlappingKeys(c.Keys); overlap != "" {
		errs = append(errs, fmt.Sprintf("keys: %q is bound to more than one action", overlap))
	}
	for _, k := range append(append([]string{}, c.Keys.Advance...), c.Keys.Reanalyze...) {
		if len(k) == 1 && k[0] >= '0' && k[0] <= '9' {
			errs = append(errs, fmt.Sprintf("keys: digit %q cannot be an action key", k))
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if c.Directory.Port < 1 || c.Directory.Port > 65535 {
		errs = append(errs, fmt.Sprintf("directory.port must be between 1 and 65535, got %d", c.Directory.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func overlappingKeys(k KeysConfig) string {
	seen := make(map[string]bool)
	for _, group := range [][]string{k.Advance, k.Reanalyze, k.Reset} {
		local := make(map[string]bool)
		for _, key := range group {
			if local[key] {
				continue
			}
			local[key] = true
			if seen[key] {
				return key
			}
			seen[key] = true
		}
	}
	return ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
