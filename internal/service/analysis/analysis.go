// Package analysis wires configuration, artifact discovery, the quarantine
// cache and the unused-method scheduler into one entry point shared by the
// CLI and the MCP server.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/deadapi/internal/cache"
	"github.com/panbanda/deadapi/internal/locator"
	"github.com/panbanda/deadapi/internal/metrics"
	"github.com/panbanda/deadapi/pkg/analyzer"
	"github.com/panbanda/deadapi/pkg/analyzer/unused"
	"github.com/panbanda/deadapi/pkg/archive"
	"github.com/panbanda/deadapi/pkg/config"
	"github.com/panbanda/deadapi/pkg/models"
)

// Service orchestrates unused-method analysis runs.
type Service struct {
	config *config.Config
	cache  *cache.Cache
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache sets the quarantine cache. Without one, abandoned artifacts
// are not remembered across runs.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.cache == nil {
		s.cache, _ = cache.New("", 0, false)
	}
	return s
}

// Config returns the configuration the service runs with.
func (s *Service) Config() *config.Config {
	return s.config
}

// Cache returns the quarantine cache.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// UnusedOptions configures one run. Zero values fall back to the
// configuration.
type UnusedOptions struct {
	Core            string
	PluginDir       string
	Workers         int
	IncludePrefixes []string
	DeleteCorrupt   bool
	OnPhase         func(unused.Phase)
	OnProgress      analyzer.ProgressFunc
}

// Corpus is a located, quarantine-filtered set of artifacts.
type Corpus struct {
	analyzer.Corpus
	// Skipped lists plugin paths left out because they are quarantined.
	Skipped []string
}

// BuildCorpus locates the core and plugins and opens them as artifacts.
// The core is indexed through its scope (the core jar inside the war)
// unless it is itself a jar.
func (s *Service) BuildCorpus(core, pluginDir string) (*Corpus, error) {
	cfg := s.config
	if core == "" {
		core = cfg.Core.Path
	}
	if pluginDir == "" {
		pluginDir = cfg.Plugins.Dir
	}

	located, err := locator.Locate(core, pluginDir,
		locator.WithPatterns(cfg.Plugins.Patterns...),
		locator.WithIgnore(cfg.Plugins.Ignore...))
	if err != nil {
		return nil, err
	}
	for _, name := range located.Ignored {
		s.logger.Debug("ignoring plugin", "artifact", name)
	}

	opts := archive.Options{
		TemplateExtensions: cfg.Analysis.TemplateExtensions,
		Skip:               cfg.Analysis.SkipEntries,
	}
	out := &Corpus{}
	if out.Core, err = archive.NewFile(located.Core, opts); err != nil {
		return nil, err
	}
	if cfg.Core.IndexScope != "" && !strings.EqualFold(filepath.Ext(located.Core), ".jar") {
		scoped := opts
		scoped.Scope = cfg.Core.IndexScope
		if out.Index, err = archive.NewFile(located.Core, scoped); err != nil {
			return nil, err
		}
	}

	for _, path := range located.Plugins {
		if entry, ok := s.cache.IsQuarantined(path); ok {
			s.logger.Info("skipping quarantined artifact", "artifact", filepath.Base(path), "reason", entry.Reason)
			metrics.ArtifactsTotal.WithLabelValues(metrics.StatusSkipped).Inc()
			out.Skipped = append(out.Skipped, path)
			continue
		}
		art, err := archive.NewFile(path, opts)
		if err != nil {
			return nil, err
		}
		out.Plugins = append(out.Plugins, art)
	}
	return out, nil
}

// Scheduler builds a scheduler from the configuration.
func (s *Service) Scheduler(opts UnusedOptions) (*unused.Scheduler, error) {
	cfg := s.config
	stdlib, err := unused.LoadStdlibTable(cfg.Analysis.StdlibCacheSize, s.logger)
	if err != nil {
		return nil, fmt.Errorf("load standard library table: %w", err)
	}

	workers := cfg.Analysis.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	deleteCorrupt := opts.DeleteCorrupt || cfg.Analysis.DeleteCorrupt

	schedOpts := []unused.Option{
		unused.WithWorkers(workers),
		unused.WithStdlib(stdlib),
		unused.WithLogger(s.logger),
		unused.WithFilters(unused.NewFilters(unused.FilterOptions{
			ExtraIgnoredNames: cfg.Candidates.IgnoreNames,
			BundleSuffixes:    cfg.Candidates.BundleSuffixes,
			SkipPrivate:       cfg.Candidates.SkipPrivate,
		})),
		unused.WithOnFailure(func(art archive.Artifact, cause error) bool {
			return s.discard(art, cause, deleteCorrupt)
		}),
	}
	if opts.OnPhase != nil {
		schedOpts = append(schedOpts, unused.WithOnPhase(opts.OnPhase))
	}
	return unused.NewScheduler(schedOpts...), nil
}

// discard keeps an abandoned artifact out of later runs. Only container
// read failures qualify; panics and cancellation leave the file alone.
func (s *Service) discard(art archive.Artifact, cause error, deleteFile bool) bool {
	f, ok := art.(*archive.File)
	if !ok || !errors.Is(cause, archive.ErrCorrupt) {
		return false
	}
	if deleteFile {
		if err := os.Remove(f.Path); err != nil {
			s.logger.Warn("could not delete corrupt artifact", "artifact", f.Path, "error", err)
			return false
		}
		s.logger.Info("deleted corrupt artifact", "artifact", f.Path)
		return true
	}
	if !s.cache.Enabled() {
		return false
	}
	if err := s.cache.Quarantine(f.Path, cause.Error()); err != nil {
		s.logger.Warn("could not quarantine artifact", "artifact", f.Path, "error", err)
		return false
	}
	return true
}

// FindUnused runs a full analysis and returns the filtered report.
func (s *Service) FindUnused(ctx context.Context, opts UnusedOptions) (*models.UnusedReport, error) {
	corpus, err := s.BuildCorpus(opts.Core, opts.PluginDir)
	if err != nil {
		return nil, err
	}
	sched, err := s.Scheduler(opts)
	if err != nil {
		return nil, err
	}
	defer sched.Close()

	if opts.OnProgress != nil {
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(opts.OnProgress))
	}
	res, err := sched.Analyze(ctx, corpus.Corpus)
	if err != nil {
		return nil, err
	}

	prefixes := s.config.Report.IncludePrefixes
	if len(opts.IncludePrefixes) > 0 {
		prefixes = opts.IncludePrefixes
	}
	report := res.Report(prefixes)
	report.TopN = s.config.Report.TopPackages
	for _, path := range corpus.Skipped {
		report.AddFailure(models.ArtifactFailure{
			Artifact:    filepath.Base(path),
			Error:       "skipped: quarantined by an earlier run",
			Quarantined: true,
		})
	}
	return report, nil
}
