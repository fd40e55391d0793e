package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"github.com/junian/homebrew-dotnet/internal/cask"
	"github.com/junian/homebrew-dotnet/internal/digest"
	"github.com/junian/homebrew-dotnet/internal/feed"
	"github.com/junian/homebrew-dotnet/internal/logger"
)

type (
	// Manifests reads and rewrites cask files.
	Manifests interface {
		Read(path string) (cask.Record, error)
		Write(path string, rec cask.Record) error
	}

	// Feed fetches a channel's release metadata.
	Feed interface {
		Fetch(ctx context.Context, channel string) (*feed.Metadata, error)
	}

	// Hasher downloads an artifact and returns its hex SHA-256 digest.
	Hasher interface {
		DownloadAndHash(ctx context.Context, url string) (string, error)
	}

	// DigestCache remembers digests by artifact URL.
	DigestCache interface {
		Get(ctx context.Context, url string) (string, error)
		Put(ctx context.Context, url, digest string) error
	}

	// Options is the static input of an Engine.
	Options struct {
		// Channels are processed in this order; duplicates are dropped.
		Channels []string
		// CaskPath maps a channel to its cask file.
		CaskPath func(channel string) string
		// PrimaryArtifact is the installer hashed into the arm slot.
		PrimaryArtifact string
		// SecondaryArtifact is the installer hashed into the intel slot.
		SecondaryArtifact string
		// Workers bounds how many channels run at once; 1 is sequential.
		Workers int
		// CheckOnly stops stale channels before any download or write.
		CheckOnly bool
	}

	// Option configures optional Engine collaborators.
	Option func(*Engine)

	// Engine reconciles casks against the release feed.
	Engine struct {
		manifests Manifests
		feed      Feed
		hasher    Hasher
		cache     DigestCache
		opts      Options
		now       func() time.Time
	}
)

var errMissingOption = errors.New("missing engine option")

// WithDigestCache lets the engine reuse digests computed by earlier runs.
func WithDigestCache(c DigestCache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New validates opts and wires the collaborators into an Engine.
func New(manifests Manifests, source Feed, hasher Hasher, opts Options, extra ...Option) (*Engine, error) {
	switch {
	case manifests == nil || source == nil || hasher == nil:
		return nil, fmt.Errorf("%w: collaborators must not be nil", errMissingOption)
	case opts.CaskPath == nil:
		return nil, fmt.Errorf("%w: cask path", errMissingOption)
	case opts.PrimaryArtifact == "" || opts.SecondaryArtifact == "":
		return nil, fmt.Errorf("%w: artifact filenames", errMissingOption)
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	opts.Channels = dedupe(opts.Channels)

	e := &Engine{
		manifests: manifests,
		feed:      source,
		hasher:    hasher,
		opts:      opts,
		now:       time.Now,
	}

	for _, opt := range extra {
		opt(e)
	}

	return e, nil
}

// Channels returns the channels the engine processes, in order.
func (e *Engine) Channels() []string {
	return slices.Clone(e.opts.Channels)
}

// Run reconciles every channel and returns their outcomes in channel order.
// It never fails as a whole; per-channel errors are inside the report.
func (e *Engine) Run(ctx context.Context, runID string) *Report {
	report := &Report{
		RunID:    runID,
		Started:  e.now(),
		Outcomes: make([]Outcome, len(e.opts.Channels)),
	}

	var g errgroup.Group

	g.SetLimit(e.opts.Workers)

	for i, channel := range e.opts.Channels {
		g.Go(func() error {
			report.Outcomes[i] = e.Reconcile(ctx, channel)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // Workers never return errors.

	report.Finished = e.now()

	return report
}

// Reconcile runs the state machine for one channel.
func (e *Engine) Reconcile(ctx context.Context, channel string) Outcome {
	ctx = logger.WithKV(ctx, "channel", channel)

	run := &channelRun{
		engine: e,
		out: Outcome{
			Channel: channel,
			Path:    e.opts.CaskPath(channel),
			State:   Idle,
		},
	}

	started := e.now()
	run.execute(ctx)
	run.out.Duration = e.now().Sub(started)

	run.log(ctx)

	return run.out
}

// channelRun holds the mutable state of one channel's reconciliation.
type channelRun struct {
	engine *Engine
	out    Outcome
	meta   *feed.Metadata
	files  [2]feed.File
	next   cask.Record
}

func (r *channelRun) execute(ctx context.Context) {
	steps := []struct {
		state State
		run   func(context.Context) (bool, error)
	}{
		{Checking, r.check},
		{Resolving, r.resolve},
		{Hashing, r.hash},
		{Updating, r.update},
		{Verifying, r.verify},
	}

	for _, step := range steps {
		r.out.State = step.state

		stop, err := step.run(ctx)
		if err != nil {
			r.fail(err)
			return
		}

		if stop {
			return
		}
	}

	r.out.State = Done
}

func (r *channelRun) fail(err error) {
	r.out.FailedAt = r.out.State
	r.out.State = Failed
	r.out.Err = err
}

// check loads both sides and decides whether the channel is stale. It stops
// the pipeline with UpToDate, Skipped or (in check-only mode) Stale.
func (r *channelRun) check(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, fmt.Errorf("run cancelled: %w", err)
	}

	current, err := r.engine.manifests.Read(r.out.Path)
	if err != nil {
		return true, err
	}

	r.out.Previous = current
	r.out.Current = current

	logger.DebugKV(ctx, "Current cask",
		"version", current.Version, "sha256_arm", current.SHA256Arm, "sha256_intel", current.SHA256Intel)

	meta, err := r.engine.feed.Fetch(ctx, r.out.Channel)
	if err != nil {
		r.out.State = Skipped
		r.out.Err = err

		return true, nil
	}

	r.meta = meta

	if !meta.HasLatest() {
		logger.WarnKV(ctx, "Release metadata names no latest SDK")

		r.out.State = UpToDate

		return true, nil
	}

	r.out.Latest = meta.LatestSDK

	if current.Version == meta.LatestSDK {
		r.out.State = UpToDate
		return true, nil
	}

	warnSharpEdges(ctx, current.Version, meta)

	if r.engine.opts.CheckOnly {
		r.out.State = Stale
		return true, nil
	}

	return false, nil
}

// resolve finds the installer entry for both architectures. A cask that
// could not take all three fields fails here, before any download.
func (r *channelRun) resolve(ctx context.Context) (bool, error) {
	switch {
	case !r.out.Previous.HasVersion():
		return true, fmt.Errorf("%s: %w", r.out.Path, ErrNoVersionStanza)
	case !r.out.Previous.HasHashes():
		return true, fmt.Errorf("%s: %w", r.out.Path, ErrNoHashStanza)
	}

	for i, name := range []string{r.engine.opts.PrimaryArtifact, r.engine.opts.SecondaryArtifact} {
		file, err := feed.Resolve(r.meta, name)
		if err != nil {
			return true, err
		}

		r.files[i] = file
		logger.DebugKV(ctx, "Resolved artifact", "name", file.Name, "url", file.URL)
	}

	return false, nil
}

// hash digests both installers concurrently; the first failure cancels the other.
func (r *channelRun) hash(ctx context.Context) (bool, error) {
	var (
		digests [2]string
		g, gctx = errgroup.WithContext(ctx)
	)

	for i, file := range r.files {
		g.Go(func() error {
			sum, err := r.engine.digestOf(gctx, file)
			if err != nil {
				return fmt.Errorf("hash %s: %w", file.Name, err)
			}

			digests[i] = sum

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return true, err
	}

	r.next = cask.Record{
		Version:     r.meta.LatestSDK,
		SHA256Arm:   digests[0],
		SHA256Intel: digests[1],
	}

	return false, nil
}

// update writes version and both digests in a single rewrite.
func (r *channelRun) update(ctx context.Context) (bool, error) {
	if err := r.engine.manifests.Write(r.out.Path, r.next); err != nil {
		return true, err
	}

	logger.DebugKV(ctx, "Cask rewritten", "path", r.out.Path)

	return false, nil
}

// verify re-reads the cask and compares it to what was written.
func (r *channelRun) verify(context.Context) (bool, error) {
	persisted, err := r.engine.manifests.Read(r.out.Path)
	if err != nil {
		return true, fmt.Errorf("re-read cask: %w", err)
	}

	r.out.Current = persisted

	for _, field := range []struct{ name, want, got string }{
		{"version", r.next.Version, persisted.Version},
		{"sha256 arm", r.next.SHA256Arm, persisted.SHA256Arm},
		{"sha256 intel", r.next.SHA256Intel, persisted.SHA256Intel},
	} {
		if field.want != field.got {
			return true, &MismatchError{Field: field.name, Want: field.want, Got: field.got}
		}
	}

	return false, nil
}

// digestOf returns the digest of file, from the cache when possible.
func (e *Engine) digestOf(ctx context.Context, file feed.File) (string, error) {
	if e.cache != nil {
		if sum, err := e.cache.Get(ctx, file.URL); err == nil && digest.IsDigest(sum) {
			logger.DebugKV(ctx, "Digest cache hit", "url", file.URL)
			return sum, nil
		}
	}

	logger.InfoKV(ctx, "Calculating SHA-256", "url", file.URL)

	sum, err := e.hasher.DownloadAndHash(ctx, file.URL)
	if err != nil {
		return "", err
	}

	if !digest.IsDigest(sum) {
		return "", fmt.Errorf("%q: %w", sum, errInvalidDigest)
	}

	if e.cache != nil {
		if err = e.cache.Put(ctx, file.URL, sum); err != nil {
			logger.WarnKV(ctx, "Unable to cache digest", "url", file.URL, "error", err)
		}
	}

	return sum, nil
}

// log emits one line per channel: terse on success, detailed on failure.
func (r *channelRun) log(ctx context.Context) {
	out := r.out

	switch out.State {
	case UpToDate:
		logger.InfoKV(ctx, "No new release", "version", out.Current.Version)
	case Skipped:
		logger.WarnKV(ctx, "Release feed unavailable, try again later", "error", out.Err)
	case Stale:
		logger.InfoKV(ctx, "New release available", "current", out.Previous.Version, "latest", out.Latest)
	case Done:
		logger.InfoKV(ctx, "Cask updated",
			"from", out.Previous.Version, "to", out.Current.Version,
			"sha256_arm", out.Current.SHA256Arm, "sha256_intel", out.Current.SHA256Intel,
			"took", out.Duration)
	case Failed:
		logger.ErrorKV(ctx, "Channel failed", "step", out.FailedAt, "path", out.Path, "error", out.Err)
	}
}

// warnSharpEdges logs feed states that are trusted but suspicious.
func warnSharpEdges(ctx context.Context, local string, meta *feed.Metadata) {
	if !meta.PointerMatchesNewest() {
		logger.WarnKV(ctx, "Newest release entry does not carry the latest SDK; trusting latest-sdk",
			"latest_sdk", meta.LatestSDK)
	}

	vl, vr := "v"+local, "v"+meta.LatestSDK
	if semver.IsValid(vl) && semver.IsValid(vr) && semver.Compare(vr, vl) < 0 {
		logger.WarnKV(ctx, "Feed latest is older than the cask version; trusting the feed",
			"cask", local, "latest", meta.LatestSDK)
	}
}

func dedupe(channels []string) []string {
	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))

	for _, ch := range channels {
		if _, ok := seen[ch]; ok || ch == "" {
			continue
		}

		seen[ch] = struct{}{}
		out = append(out, ch)
	}

	return out
}
