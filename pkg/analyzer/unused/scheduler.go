package unused

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/panbanda/deadapi/internal/fileproc"
	"github.com/panbanda/deadapi/internal/metrics"
	"github.com/panbanda/deadapi/pkg/analyzer"
	"github.com/panbanda/deadapi/pkg/archive"
	"github.com/panbanda/deadapi/pkg/models"
)

// Phase is a step of an analysis run.
type Phase int

const (
	PhaseIndexing Phase = iota
	PhaseAnalyzing
	PhaseReporting
)

func (p Phase) String() string {
	switch p {
	case PhaseIndexing:
		return "indexing"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseReporting:
		return "reporting"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// FailureFunc is called once per abandoned artifact, after every task has
// joined. It reports whether the artifact was quarantined.
type FailureFunc func(art archive.Artifact, err error) bool

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Unused    []models.MethodKey
	Seeded    int
	Failures  []models.ArtifactFailure
	Analyzed  int
	Anomalies []Anomaly
	Duration  time.Duration
}

// Report builds the presentation model, keeping only methods whose class
// falls under one of prefixes (all when empty).
func (r *Result) Report(prefixes []string) *models.UnusedReport {
	rep := models.NewUnusedReport(r.RunID)
	for _, k := range r.Unused {
		if models.MatchesPrefixes(k, prefixes) {
			rep.AddMethod(k)
		}
	}
	for _, f := range r.Failures {
		rep.AddFailure(f)
	}
	rep.Summary.CandidatesSeeded = r.Seeded
	rep.Summary.ArtifactsAnalyzed = r.Analyzed
	rep.Summary.HierarchyAnomalies = len(r.Anomalies)
	rep.Summary.Duration = r.Duration
	return rep
}

// Scheduler runs an analysis over a corpus: the core is indexed once, then
// every artifact is analyzed concurrently against the shared candidate set.
type Scheduler struct {
	workers   int
	filters   *Filters
	stdlib    *StdlibTable
	logger    *slog.Logger
	onPhase   func(Phase)
	onFailure FailureFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers bounds the number of artifacts analyzed at once. Zero or less
// means one per available processor.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		s.workers = n
	}
}

// WithFilters sets the candidate filters.
func WithFilters(f *Filters) Option {
	return func(s *Scheduler) {
		s.filters = f
	}
}

// WithStdlib sets the standard-library exclusion table. Without one, no
// inherited-contract exclusion is done.
func WithStdlib(t *StdlibTable) Option {
	return func(s *Scheduler) {
		s.stdlib = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithOnPhase registers a hook called on entry to each phase.
func WithOnPhase(fn func(Phase)) Option {
	return func(s *Scheduler) {
		s.onPhase = fn
	}
}

// WithOnFailure registers a hook for abandoned artifacts.
func WithOnFailure(fn FailureFunc) Option {
	return func(s *Scheduler) {
		s.onFailure = fn
	}
}

// NewScheduler creates a scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		filters: NewFilters(FilterOptions{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ analyzer.CorpusAnalyzer[*Result] = (*Scheduler)(nil)

// Close implements analyzer.CorpusAnalyzer.
func (s *Scheduler) Close() {}

type task struct {
	art  archive.Artifact
	core bool
}

func (t task) name() string {
	return t.art.Name()
}

// Analyze runs indexing, then analysis of the core and every plugin, then
// builds the result once all tasks have finished or been abandoned. Only a
// failure to index the core, or cancellation, fails the run.
func (s *Scheduler) Analyze(ctx context.Context, corpus analyzer.Corpus) (*Result, error) {
	if corpus.Core == nil {
		return nil, fmt.Errorf("no core artifact")
	}
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", res.RunID)

	s.enter(PhaseIndexing)
	began := time.Now()
	idx, err := NewIndexer(s.filters, s.stdlib, logger).Index(ctx, corpus.IndexSource())
	metrics.ObservePhase(PhaseIndexing.String(), time.Since(began))
	if err != nil {
		return nil, fmt.Errorf("index core: %w", err)
	}
	res.Seeded = idx.Candidates.Seeded()
	metrics.CandidatesSeeded.Set(float64(res.Seeded))
	res.Anomalies = idx.Hierarchy.Anomalies()
	for _, a := range res.Anomalies {
		logger.Warn("cyclic class ancestry", "classes", strings.Join(a.Classes, ", "))
	}

	s.enter(PhaseAnalyzing)
	began = time.Now()
	tasks := make([]task, 0, corpus.Size())
	tasks = append(tasks, task{art: corpus.Core, core: true})
	for _, p := range corpus.Plugins {
		tasks = append(tasks, task{art: p})
	}
	byName := make(map[string]archive.Artifact, len(tasks))
	for _, t := range tasks {
		if _, dup := byName[t.name()]; !dup {
			byName[t.name()] = t.art
		}
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(tasks))
	}

	usage := NewAnalyzer(idx, logger)
	var analyzed atomic.Int32
	errs := fileproc.ForEachN(ctx, tasks, s.workers, task.name,
		func(ctx context.Context, t task) error {
			artBegan := time.Now()
			stats, err := usage.AnalyzeArtifact(ctx, t.art, t.core)
			metrics.ArtifactDuration.Observe(time.Since(artBegan).Seconds())
			if err != nil {
				return err
			}
			analyzed.Add(1)
			logger.Debug("analyzed artifact",
				"artifact", t.name(),
				"classes", stats.Classes,
				"templates", stats.Templates,
				"call_sites", stats.CallSites,
				"removed_by_call", stats.RemovedByCall,
				"removed_by_text", stats.RemovedByText,
				"decode_errors", stats.DecodeErrors)
			return nil
		},
		func(name string, err error) {
			status := metrics.StatusAnalyzed
			if err != nil {
				status = metrics.StatusFailed
			}
			metrics.ArtifactsTotal.WithLabelValues(status).Inc()
			if tracker == nil {
				return
			}
			if err != nil {
				tracker.Fail(name)
			} else {
				tracker.Tick(name)
			}
		})
	metrics.ObservePhase(PhaseAnalyzing.String(), time.Since(began))
	res.Analyzed = int(analyzed.Load())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if errs != nil {
		for _, pe := range errs.Errors {
			logger.Error("abandoned artifact", "artifact", pe.Path, "error", pe.Err)
			f := models.ArtifactFailure{Artifact: pe.Path, Error: pe.Err.Error()}
			if s.onFailure != nil {
				f.Quarantined = s.onFailure(byName[pe.Path], pe.Err)
			}
			res.Failures = append(res.Failures, f)
		}
		slices.SortFunc(res.Failures, func(a, b models.ArtifactFailure) int {
			return strings.Compare(a.Artifact, b.Artifact)
		})
	}

	s.enter(PhaseReporting)
	began = time.Now()
	res.Unused = idx.Candidates.Snapshot()
	metrics.CandidatesRemaining.Set(float64(len(res.Unused)))
	metrics.ObservePhase(PhaseReporting.String(), time.Since(began))
	res.Duration = time.Since(start)

	logger.Info("analysis complete",
		"seeded", res.Seeded,
		"unused", len(res.Unused),
		"analyzed", res.Analyzed,
		"failed", len(res.Failures),
		"duration", res.Duration)
	return res, nil
}

func (s *Scheduler) enter(p Phase) {
	s.logger.Debug("entering phase", "phase", p.String())
	if s.onPhase != nil {
		s.onPhase(p)
	}
}
