package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/junian/homebrew-dotnet/internal/cask"
	"github.com/junian/homebrew-dotnet/internal/config"
	"github.com/junian/homebrew-dotnet/internal/digest"
	"github.com/junian/homebrew-dotnet/internal/feed"
	"github.com/junian/homebrew-dotnet/internal/lock"
	"github.com/junian/homebrew-dotnet/internal/logger"
	"github.com/junian/homebrew-dotnet/internal/reconcile"
	"github.com/junian/homebrew-dotnet/internal/report"
	"github.com/junian/homebrew-dotnet/internal/repository/cache"
	"github.com/junian/homebrew-dotnet/internal/version"
)

var (
	// ErrChannelsFailed is returned in strict mode when a channel failed.
	ErrChannelsFailed = errors.New("one or more channels failed")

	errNoChannels  = errors.New("no channels to reconcile")
	errBadLogLevel = errors.New("unknown log level")
	errNoCasksDir  = errors.New("casks dir does not exist")
)

// Options are inputs accepted by the updater entry point. Zero values keep
// the settings from the configuration file.
type Options struct {
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// CasksDir overrides the configured casks directory.
	CasksDir string
	// Channels overrides the configured channel list.
	Channels []string
	// All discovers channels from the cask files instead.
	All bool
	// CheckOnly reports stale channels without downloading or writing.
	CheckOnly bool
	// Strict turns any failed channel into an error.
	Strict bool
	// LogLevel overrides the configured log level.
	LogLevel string
	// Workers overrides the configured worker count.
	Workers int
	// Output receives the summary table; nil means stdout.
	Output io.Writer
}

// Run executes one reconciliation pass and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) (*reconcile.Report, error) {
	if opts == nil {
		opts = new(Options)
	}

	runID := uuid.NewString()
	ctx = logger.WithKV(logger.WithName(ctx, "update-casks"), "run_id", runID)

	cfg, err := settings(opts)
	if err != nil {
		return nil, err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	fsys := afero.NewOsFs()

	if ok, statErr := afero.DirExists(fsys, cfg.CasksDir); statErr != nil || !ok {
		return nil, fmt.Errorf("%s: %w", cfg.CasksDir, errNoCasksDir)
	}

	channels, err := selectChannels(fsys, opts, cfg)
	if err != nil {
		return nil, err
	}

	// Check-only runs never write, so they do not compete for the marker.
	if !opts.CheckOnly {
		marker, lockErr := lock.Acquire(ctx, cfg.CasksDir)
		if lockErr != nil {
			return nil, lockErr
		}

		defer marker.Release(ctx)
	}

	extra, closeCache, err := digestCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	defer closeCache()

	engine, err := reconcile.New(
		cask.NewStore(),
		feed.NewClient(
			feed.WithBaseURL(cfg.FeedBaseURL),
			feed.WithUserAgent(cfg.UserAgent),
			feed.WithTimeout(cfg.FeedTimeout),
		),
		digest.NewDownloader(
			digest.WithUserAgent(cfg.UserAgent),
			digest.WithTimeout(cfg.DownloadTimeout),
		),
		reconcile.Options{
			Channels:          channels,
			CaskPath:          cfg.CaskPath,
			PrimaryArtifact:   cfg.Artifacts.Primary,
			SecondaryArtifact: cfg.Artifacts.Secondary,
			Workers:           cfg.Workers,
			CheckOnly:         opts.CheckOnly,
		},
		extra...,
	)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Reconciling casks",
		"casks_dir", cfg.CasksDir, "channels", strings.Join(engine.Channels(), ","),
		"workers", cfg.Workers, "check_only", opts.CheckOnly)

	result := engine.Run(ctx, runID)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	if err = report.Render(out, result); err != nil {
		logger.WarnKV(ctx, "Unable to render summary", "error", err)
	}

	if failed := result.Failed(); opts.Strict && len(failed) > 0 {
		return result, fmt.Errorf("%w: %d of %d", ErrChannelsFailed, len(failed), len(result.Outcomes))
	}

	return result, nil
}

// settings loads the configuration and applies the command-line overrides.
func settings(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.CasksDir != "" {
		cfg.CasksDir = opts.CasksDir
	}

	if len(opts.Channels) > 0 {
		cfg.Channels = opts.Channels
	}

	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}

	if opts.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(opts.LogLevel); !ok {
			return nil, fmt.Errorf("%w: %q", errBadLogLevel, opts.LogLevel)
		}

		cfg.LogLevel = opts.LogLevel
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	return cfg, nil
}

func selectChannels(fsys afero.Fs, opts *Options, cfg *config.Config) ([]string, error) {
	channels := cfg.Channels

	if opts.All {
		discovered, err := cask.Discover(fsys, cfg.CasksDir, cfg.CaskPattern)
		if err != nil {
			return nil, err
		}

		channels = discovered
	}

	if len(channels) == 0 {
		return nil, errNoChannels
	}

	return channels, nil
}

// digestCache opens the configured cache. Redis wins over a file path.
func digestCache(ctx context.Context, cfg *config.Config) ([]reconcile.Option, func(), error) {
	switch {
	case cfg.RedisURL != "":
		repo, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}

		closeRepo := func() {
			if closeErr := repo.Close(); closeErr != nil {
				logger.WarnKV(ctx, "Unable to close digest cache", "error", closeErr)
			}
		}

		return []reconcile.Option{reconcile.WithDigestCache(repo)}, closeRepo, nil
	case cfg.DigestCache != "":
		return []reconcile.Option{reconcile.WithDigestCache(cache.NewFileRepository(cfg.DigestCache))}, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
