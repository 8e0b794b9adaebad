package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site         SiteConfig         `yaml:"site"`
	Output       OutputConfig       `yaml:"output"`
	Requirements RequirementsConfig `yaml:"requirements"`
	Emoji        EmojiConfig        `yaml:"emoji"`
	Matrix       MatrixConfig       `yaml:"matrix"`
	Deploy       DeployConfig       `yaml:"deploy"`
	Daemon       *DaemonConfig      `yaml:"daemon,omitempty"`
	Events       *EventsConfig      `yaml:"events,omitempty"`
}

// SiteConfig describes the documentation site to generate.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	DocsDir     string `yaml:"docs_dir"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// RequirementsConfig locates the requirement manifests and the version index
// used when compiling lock files.
type RequirementsConfig struct {
	Dir   string `yaml:"dir"`
	Index string `yaml:"index,omitempty"` // YAML file: package -> available versions
}

// EmojiConfig locates the custom emoji mapping and its asset files.
type EmojiConfig struct {
	Mapping   string `yaml:"mapping"`
	AssetsDir string `yaml:"assets_dir,omitempty"`
}

// MatrixConfig locates the CI matrix definition and run-time bounds.
type MatrixConfig struct {
	File        string `yaml:"file"`
	MaxParallel int    `yaml:"max_parallel,omitempty"`
}

// DeployConfig describes the pages deployment target.
type DeployConfig struct {
	Repository string       `yaml:"repository"` // owner/name of the pages repository
	Branch     string       `yaml:"branch"`     // branch the site is pushed to
	Remote     string       `yaml:"remote,omitempty"`
	Workflow   string       `yaml:"workflow"` // workflow file dispatched after push
	Ref        string       `yaml:"ref,omitempty"`
	APIURL     string       `yaml:"api_url,omitempty"`
	AuthorName string       `yaml:"author_name,omitempty"`
	AuthorMail string       `yaml:"author_email,omitempty"`
	Retry      *RetryConfig `yaml:"retry,omitempty"`
}

// RetryBackoffMode selects the backoff growth curve for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// RetryConfig holds raw retry settings; zero values fall back to defaults.
// Durations are strings in time.ParseDuration format ("2s", "1m").
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    string           `yaml:"initial,omitempty"`
	Max        string           `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries"`
}

// InitialDuration parses the initial delay; zero when unset or invalid.
func (rc *RetryConfig) InitialDuration() time.Duration {
	d, _ := time.ParseDuration(rc.Initial)
	return d
}

// MaxDuration parses the delay cap; zero when unset or invalid.
func (rc *RetryConfig) MaxDuration() time.Duration {
	d, _ := time.ParseDuration(rc.Max)
	return d
}

// DaemonConfig configures scheduled mode. Interval is a string in
// time.ParseDuration format ("30m", "1h").
type DaemonConfig struct {
	Interval    string `yaml:"interval,omitempty"`
	ListenAddr  string `yaml:"listen_addr,omitempty"`
	MetricsPath string `yaml:"metrics_path,omitempty"`
	HistoryDB   string `yaml:"history_db,omitempty"`
}

// IntervalDuration parses the run interval. Load validates the format, so
// this only falls back for a hand-built config.
func (d *DaemonConfig) IntervalDuration() time.Duration {
	dur, err := time.ParseDuration(d.Interval)
	if err != nil || dur <= 0 {
		return time.Hour
	}
	return dur
}

// EventsConfig configures NATS run-lifecycle publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; missing files are fine.
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Documentation"
	}
	if c.Site.DocsDir == "" {
		c.Site.DocsDir = "./docs"
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = "/"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "./public"
	}
	if c.Requirements.Dir == "" {
		c.Requirements.Dir = "./dev-requirements"
	}
	if c.Matrix.File == "" {
		c.Matrix.File = "ci.yaml"
	}
	if c.Matrix.MaxParallel <= 0 {
		c.Matrix.MaxParallel = 4
	}
	if c.Deploy.Branch == "" {
		c.Deploy.Branch = "docs"
	}
	if c.Deploy.Ref == "" {
		c.Deploy.Ref = c.Deploy.Branch
	}
	if c.Deploy.AuthorName == "" {
		c.Deploy.AuthorName = "docship"
	}
	if c.Deploy.AuthorMail == "" {
		c.Deploy.AuthorMail = "docship@localhost"
	}
	if c.Daemon != nil {
		if c.Daemon.Interval == "" {
			c.Daemon.Interval = "1h"
		}
		if c.Daemon.ListenAddr == "" {
			c.Daemon.ListenAddr = ":9180"
		}
		if c.Daemon.MetricsPath == "" {
			c.Daemon.MetricsPath = "/metrics"
		}
		if c.Daemon.HistoryDB == "" {
			c.Daemon.HistoryDB = "docship-history.db"
		}
	}
	if c.Events != nil {
		if c.Events.URL == "" {
			c.Events.URL = "nats://127.0.0.1:4222"
		}
		if c.Events.Subject == "" {
			c.Events.Subject = "docship.runs"
		}
	}
}

// Validate checks cross-field invariants that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Deploy.Repository != "" {
		if err := validateRepository(c.Deploy.Repository); err != nil {
			return err
		}
	}
	if c.Deploy.Retry != nil {
		if c.Deploy.Retry.MaxRetries < 0 {
			return fmt.Errorf("deploy.retry.max_retries cannot be negative")
		}
		if c.Deploy.Retry.Initial != "" {
			if _, err := time.ParseDuration(c.Deploy.Retry.Initial); err != nil {
				return fmt.Errorf("invalid deploy.retry.initial: %w", err)
			}
		}
		if c.Deploy.Retry.Max != "" {
			if _, err := time.ParseDuration(c.Deploy.Retry.Max); err != nil {
				return fmt.Errorf("invalid deploy.retry.max: %w", err)
			}
		}
	}
	if c.Daemon != nil {
		dur, err := time.ParseDuration(c.Daemon.Interval)
		if err != nil {
			return fmt.Errorf("invalid daemon.interval: %w", err)
		}
		if dur <= 0 {
			return fmt.Errorf("daemon.interval must be positive")
		}
	}
	return nil
}

func validateRepository(repo string) error {
	slash := 0
	for _, r := range repo {
		if r == '/' {
			slash++
		}
	}
	if slash != 1 || repo[0] == '/' || repo[len(repo)-1] == '/' {
		return fmt.Errorf("deploy.repository must be in owner/name form, got %q", repo)
	}
	return nil
}
