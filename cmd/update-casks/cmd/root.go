package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junian/homebrew-dotnet/internal/config"
	"github.com/junian/homebrew-dotnet/internal/service/updater"
	"github.com/junian/homebrew-dotnet/internal/version"
)

var (
	// options collects the flags shared by every sub-command.
	options updater.Options

	// rootCmd reconciles the casks with the release feed.
	rootCmd = &cobra.Command{
		Use:   "update-casks [channel...]",
		Short: "Update .NET SDK casks to the latest release of each channel",
		Long: "Compare every tracked cask with the .NET release metadata, download the macOS installers " +
			"of newer releases, and rewrite the version and sha256 stanzas in place.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, false)
		},
	}

	// checkCmd reports stale casks without touching them.
	checkCmd = &cobra.Command{
		Use:          "check [channel...]",
		Short:        "Report which casks are behind the release feed",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, true)
		},
	}

	dryRun bool

	errAllWithChannels = errors.New("--all cannot be combined with explicit channels")
)

func run(cmd *cobra.Command, args []string, checkOnly bool) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := options
	opts.CheckOnly = checkOnly || dryRun
	opts.Output = cmd.OutOrStdout()

	if len(args) > 0 {
		if opts.All {
			return errAllWithChannels
		}

		opts.Channels = args
	}

	_, err := updater.Run(ctx, &opts)

	return err
}

// Execute runs the update-casks CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(checkCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&options.ConfigPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&options.CasksDir, "casks-dir", "d", "", "directory holding the cask files")
	flags.BoolVarP(&options.All, "all", "a", false, "reconcile every cask found in the casks directory")
	flags.BoolVar(&options.Strict, "strict", false, "exit with status 1 when any channel fails")
	flags.StringVarP(&options.LogLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	flags.IntVarP(&options.Workers, "workers", "w", 0, "number of channels processed at once")

	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only report stale casks")
}
