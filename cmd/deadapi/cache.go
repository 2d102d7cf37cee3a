package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/deadapi/internal/cache"
	"github.com/panbanda/deadapi/internal/output"
	"github.com/panbanda/deadapi/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or reset the quarantine of unreadable artifacts",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show quarantine statistics",
				Action: runCacheStats,
			},
			{
				Name:   "list",
				Usage:  "List quarantined artifacts",
				Action: runCacheList,
			},
			{
				Name:      "release",
				Usage:     "Remove artifacts from the quarantine",
				ArgsUsage: "<artifact...>",
				Action:    runCacheRelease,
			},
			{
				Name:   "clear",
				Usage:  "Remove every quarantine entry",
				Action: runCacheClear,
			},
		},
	}
}

func openCache(c *cli.Context) (*config.Config, *cache.Cache, error) {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, nil, fmt.Errorf("cache is disabled in the configuration")
	}
	qc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
	if err != nil {
		return nil, nil, err
	}
	return cfg, qc, nil
}

func runCacheStats(c *cli.Context) error {
	cfg, qc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := qc.GetStats()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := [][]string{
		{"Entries", fmt.Sprintf("%d", stats.Entries)},
		{"Expired", fmt.Sprintf("%d", stats.Expired)},
		{"Size", fmt.Sprintf("%d bytes", stats.TotalSize)},
		{"Oldest", stats.OldestAge.Round(time.Second).String()},
		{"Newest", stats.NewestAge.Round(time.Second).String()},
	}
	return formatter.Output(output.NewTable("Quarantine Cache", []string{"Metric", "Value"}, rows, nil, stats))
}

func runCacheList(c *cli.Context) error {
	cfg, qc, err := openCache(c)
	if err != nil {
		return err
	}
	entries, err := qc.List()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []cache.Entry{}
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{filepath.Base(e.Artifact), e.Timestamp.Format(time.DateTime), e.Reason}
	}
	report := &output.Report{
		Title: "Quarantined Artifacts",
		Parts: []output.Renderable{
			output.Note(fmt.Sprintf("%d artifact(s) skipped by analysis until they change.", len(entries))),
			output.NewTable("", []string{"Artifact", "Since", "Reason"}, rows, nil, entries),
		},
		Data: entries,
	}
	return formatter.Output(report)
}

func runCacheRelease(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no artifact given")
	}
	_, qc, err := openCache(c)
	if err != nil {
		return err
	}
	for _, path := range c.Args().Slice() {
		if err := qc.Release(path); err != nil {
			return fmt.Errorf("release %s: %w", path, err)
		}
		color.Green("Released %s", path)
	}
	return nil
}

func runCacheClear(c *cli.Context) error {
	_, qc, err := openCache(c)
	if err != nil {
		return err
	}
	if err := qc.Clear(); err != nil {
		return err
	}
	color.Green("Quarantine cleared")
	return nil
}
