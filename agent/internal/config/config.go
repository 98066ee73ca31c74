package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCaptureInterval   = 60 * time.Second
	DefaultRetryScanInterval = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultBaseBackoff       = 1 * time.Second
	DefaultMaxBackoff        = 60 * time.Second
)

// Config holds the agent-side configuration parsed from the `agent:` section
// of config.yaml. The `collector:` key in the same file is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// CollectorEndpoint is the full capture upload URL, e.g.
	// "https://collector.example.com/api/v1/captures". Empty means
	// captures buffer on disk and no uploads happen.
	CollectorEndpoint string `yaml:"collector_endpoint"`

	// AuthTokenEnv is the name of the environment variable holding the
	// token sent verbatim in the Authorization header of every upload.
	AuthTokenEnv string `yaml:"auth_token_env"`

	// DeleteAfterUpload removes an artifact from disk once the collector
	// acknowledges it. Defaults to true.
	DeleteAfterUpload bool `yaml:"delete_after_upload"`

	// CaptureInterval is the period between capture ticks.
	CaptureInterval time.Duration `yaml:"capture_interval"`

	// RetryScanInterval is the period between retry queue scans.
	RetryScanInterval time.Duration `yaml:"retry_scan_interval"`

	// MaxRetries is the number of recoverable-failure retries allowed per
	// artifact after its initial attempt, before it is abandoned.
	MaxRetries int `yaml:"max_retries"`

	// BaseBackoff and MaxBackoff bound the exponential delay between
	// retries of the same artifact.
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`

	// StorageDir is where captures are buffered on disk.
	// Default: <user-config-dir>/glimpse/screenshots.
	StorageDir string `yaml:"storage_dir"`

	// IdentityFile is the JSON profile written by the onboarding flow,
	// read at capture time for the accountEmail/subjectName fields.
	// Default: <user-config-dir>/glimpse/profile.json.
	IdentityFile string `yaml:"identity_file"`

	// MaxArtifactAge, when positive, enables a periodic purge of buffered
	// captures older than this age. Zero disables purging, which matches
	// the delete-after-upload happy path where the buffer stays small.
	MaxArtifactAge time.Duration `yaml:"max_artifact_age"`
}

// Token returns the collector auth token resolved from the environment.
// Returns empty string if AuthTokenEnv is unset or the variable is not found.
func (a AgentConfig) Token() string {
	if a.AuthTokenEnv == "" {
		return ""
	}
	return os.Getenv(a.AuthTokenEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agent config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("agent config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	data := defaultDataDir()
	return &Config{
		Agent: AgentConfig{
			DeleteAfterUpload: true,
			CaptureInterval:   DefaultCaptureInterval,
			RetryScanInterval: DefaultRetryScanInterval,
			MaxRetries:        DefaultMaxRetries,
			BaseBackoff:       DefaultBaseBackoff,
			MaxBackoff:        DefaultMaxBackoff,
			StorageDir:        filepath.Join(data, "screenshots"),
			IdentityFile:      filepath.Join(data, "profile.json"),
		},
	}
}

// defaultDataDir returns the per-user directory the agent keeps its data in.
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		// No resolvable home. Keep data next to the working directory.
		return "glimpse"
	}
	return filepath.Join(base, "glimpse")
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.CollectorEndpoint != "" {
		u, err := url.Parse(a.CollectorEndpoint)
		if err != nil {
			return fmt.Errorf("agent.collector_endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("agent.collector_endpoint: scheme %q: want http or https", u.Scheme)
		}
	}
	if a.CaptureInterval <= 0 {
		return fmt.Errorf("agent.capture_interval must be positive")
	}
	if a.RetryScanInterval <= 0 {
		return fmt.Errorf("agent.retry_scan_interval must be positive")
	}
	if a.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries must not be negative")
	}
	if a.BaseBackoff <= 0 {
		return fmt.Errorf("agent.base_backoff must be positive")
	}
	if a.MaxBackoff < a.BaseBackoff {
		return fmt.Errorf("agent.max_backoff must be >= base_backoff")
	}
	if a.MaxArtifactAge < 0 {
		return fmt.Errorf("agent.max_artifact_age must not be negative")
	}
	if a.StorageDir == "" {
		return fmt.Errorf("agent.storage_dir must not be empty")
	}
	return nil
}
