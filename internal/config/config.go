package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/junian/homebrew-dotnet/internal/logger"
)

// Artifacts names the installer files reconciled for each tracked architecture.
type Artifacts struct {
	// Primary is the file whose digest goes into the first (arm) hash slot.
	Primary string `yaml:"primary"`
	// Secondary is the file whose digest goes into the second (intel) hash slot.
	Secondary string `yaml:"secondary"`
}

// Config holds the reconciler settings.
type Config struct {
	// FeedBaseURL is the root of the per-channel release metadata documents.
	FeedBaseURL string `yaml:"feed_base_url"`
	// CasksDir is the directory holding the cask files.
	CasksDir string `yaml:"casks_dir"`
	// CaskPattern maps a channel to a cask filename; it has exactly one %s.
	CaskPattern string `yaml:"cask_pattern"`
	// Channels lists the tracked channels in processing order.
	Channels []string `yaml:"channels"`
	// Artifacts names the installer file per architecture.
	Artifacts Artifacts `yaml:"artifacts"`
	// FeedTimeout bounds a single metadata request.
	FeedTimeout time.Duration `yaml:"feed_timeout"`
	// DownloadTimeout bounds a single artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// Workers is the number of channels processed at once.
	Workers int `yaml:"workers"`
	// DigestCache is an optional path of a YAML file caching digests by URL.
	DigestCache string `yaml:"digest_cache,omitempty"`
	// RedisURL is an optional Redis URL used as digest cache instead of a file.
	RedisURL string `yaml:"redis_url,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// UserAgent is sent with every HTTP request.
	UserAgent string `yaml:"user_agent,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for the settings.
	DefaultConfigFilename = "update-casks.yaml"

	// DefaultFeedBaseURL is the official .NET release metadata root.
	DefaultFeedBaseURL = "https://builds.dotnet.microsoft.com/dotnet/release-metadata"

	// DefaultCasksDir is where cask files live relative to the working directory.
	DefaultCasksDir = "Casks"

	// DefaultCaskPattern produces dotnet-sdk@8.0.rb for channel 8.0.
	DefaultCaskPattern = "dotnet-sdk@%s.rb"

	// DefaultPrimaryArtifact is the macOS arm64 SDK installer.
	DefaultPrimaryArtifact = "dotnet-sdk-osx-arm64.pkg"

	// DefaultSecondaryArtifact is the macOS x64 SDK installer.
	DefaultSecondaryArtifact = "dotnet-sdk-osx-x64.pkg"

	// DefaultFeedTimeout bounds a metadata request.
	DefaultFeedTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds an artifact download.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultWorkers keeps processing sequential and logs channel-ordered.
	DefaultWorkers = 1

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission for files written by Save.
	DefaultFilePermissions = 0o644

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "UPDATE_CASKS_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errArtifactRequired is returned when an artifact filename is empty.
	errArtifactRequired = errors.New("artifact filenames must be provided")
	// errArtifactsEqual is returned when both architectures name the same file.
	errArtifactsEqual = errors.New("primary and secondary artifacts must differ")
	// errBadPattern is returned when the cask pattern has no single %s verb.
	errBadPattern = errors.New("cask pattern must contain exactly one %s")
	// errBadLogLevel is returned for unknown log levels.
	errBadLogLevel = errors.New("unknown log level")
	// errBadWorkers is returned for a negative worker count.
	errBadWorkers = errors.New("workers must be positive")
)

// DefaultChannels returns the channels tracked out of the box, newest first.
func DefaultChannels() []string {
	return []string{"10.0", "9.0", "8.0"}
}

// Default returns a configuration populated with defaults.
func Default() *Config {
	cfg := new(Config)
	_ = Validate(cfg) //nolint:errcheck // Defaults always validate.

	return cfg
}

// Load reads configuration from path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err = applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the settings.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	setDefaults(cfg)

	if _, err := url.ParseRequestURI(cfg.FeedBaseURL); err != nil {
		return fmt.Errorf("invalid feed base URL: %w", err)
	}

	if strings.Count(cfg.CaskPattern, "%s") != 1 || strings.Count(cfg.CaskPattern, "%") != 1 {
		return fmt.Errorf("%q: %w", cfg.CaskPattern, errBadPattern)
	}

	if strings.TrimSpace(cfg.Artifacts.Primary) == "" || strings.TrimSpace(cfg.Artifacts.Secondary) == "" {
		return errArtifactRequired
	}

	if cfg.Artifacts.Primary == cfg.Artifacts.Secondary {
		return fmt.Errorf("%s: %w", cfg.Artifacts.Primary, errArtifactsEqual)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("%d: %w", cfg.Workers, errBadWorkers)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errBadLogLevel)
	}

	if cfg.RedisURL != "" {
		if _, err := url.Parse(cfg.RedisURL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
	}

	return nil
}

// CaskPath returns the cask file location for channel.
func (c *Config) CaskPath(channel string) string {
	return filepath.Join(c.CasksDir, fmt.Sprintf(c.CaskPattern, channel))
}

func setDefaults(cfg *Config) {
	if cfg.FeedBaseURL == "" {
		cfg.FeedBaseURL = DefaultFeedBaseURL
	}

	if cfg.CasksDir == "" {
		cfg.CasksDir = DefaultCasksDir
	}

	if cfg.CaskPattern == "" {
		cfg.CaskPattern = DefaultCaskPattern
	}

	if len(cfg.Channels) == 0 {
		cfg.Channels = DefaultChannels()
	}

	if cfg.Artifacts.Primary == "" && cfg.Artifacts.Secondary == "" {
		cfg.Artifacts = Artifacts{
			Primary:   DefaultPrimaryArtifact,
			Secondary: DefaultSecondaryArtifact,
		}
	}

	if cfg.FeedTimeout <= 0 {
		cfg.FeedTimeout = DefaultFeedTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// applyEnv loads .env from the working directory when present and copies
// UPDATE_CASKS_* variables over the file values.
func applyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	overrides := map[string]*string{
		"FEED_BASE_URL": &cfg.FeedBaseURL,
		"CASKS_DIR":     &cfg.CasksDir,
		"REDIS_URL":     &cfg.RedisURL,
		"DIGEST_CACHE":  &cfg.DigestCache,
		"LOG_LEVEL":     &cfg.LogLevel,
	}

	for name, field := range overrides {
		if value, ok := os.LookupEnv(EnvPrefix + name); ok {
			*field = value
		}
	}

	return nil
}
