package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/deadapi/internal/cache"
	"github.com/panbanda/deadapi/internal/metrics"
	"github.com/panbanda/deadapi/internal/progress"
	"github.com/panbanda/deadapi/internal/service/analysis"
	"github.com/panbanda/deadapi/pkg/analyzer/unused"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:    "analyze",
		Aliases: []string{"a"},
		Usage:   "Report core methods that no artifact in the corpus uses",
		Description: `Indexes the core jar inside the core war, then analyzes the whole war and
every plugin in the plugin directory concurrently. Plugins that cannot be
read are abandoned, reported, and quarantined so later runs skip them
until the file changes.

Examples:
  deadapi analyze --core jenkins.war --plugins plugins/
  deadapi analyze --include-prefix hudson/model/ -f markdown -o unused.md`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "core",
				Usage: "Path to the core war or jar (default: core.path)",
			},
			&cli.StringFlag{
				Name:    "plugins",
				Aliases: []string{"p"},
				Usage:   "Directory holding plugin archives (default: plugins.dir)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Artifacts analyzed at once (default: one per CPU)",
			},
			&cli.StringSliceFlag{
				Name:  "include-prefix",
				Usage: "Only report classes under this internal-name prefix (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "delete-corrupt",
				Usage: "Delete unreadable plugin archives instead of quarantining them",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Neither consult nor update the quarantine cache",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw progress bars",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}

	qc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled && !c.Bool("no-cache"))
	if err != nil {
		return err
	}
	svc := analysis.New(
		analysis.WithConfig(cfg),
		analysis.WithCache(qc),
		analysis.WithLogger(slog.Default()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, slog.Default()); err != nil {
				slog.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	opts := analysis.UnusedOptions{
		Core:            c.String("core"),
		PluginDir:       c.String("plugins"),
		Workers:         c.Int("workers"),
		IncludePrefixes: c.StringSlice("include-prefix"),
		DeleteCorrupt:   c.Bool("delete-corrupt"),
	}

	var bars *runProgress
	if !c.Bool("no-progress") {
		bars = &runProgress{}
		opts.OnPhase = bars.phase
		opts.OnProgress = bars.report
	}

	report, err := svc.FindUnused(ctx, opts)
	if err != nil {
		if bars != nil {
			bars.fail(err)
		}
		return err
	}
	if bars != nil {
		bars.finish(len(report.Failures))
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report)
}

// runProgress shows a spinner while the core is indexed and a bar while
// artifacts are analyzed.
type runProgress struct {
	mu      sync.Mutex
	spinner *progress.Tracker
	bar     *progress.Tracker
}

func (p *runProgress) phase(ph unused.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ph {
	case unused.PhaseIndexing:
		p.spinner = progress.NewSpinner("Indexing core...")
	case unused.PhaseAnalyzing:
		if p.spinner != nil {
			p.spinner.FinishSuccess()
			p.spinner = nil
		}
	}
}

func (p *runProgress) report(current, total int, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progress.NewTracker("Analyzing", total)
	}
	p.bar.Report(current, total, name)
}

func (p *runProgress) finish(failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.FinishSuccess()
	}
	if p.bar != nil {
		p.bar.FinishWithFailures(failed)
	}
}

func (p *runProgress) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.spinner != nil {
		p.spinner.FinishError(err)
		p.spinner = nil
	}
	if p.bar != nil {
		p.bar.FinishError(err)
	}
}
