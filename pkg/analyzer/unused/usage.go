package unused

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/deadapi/internal/metrics"
	"github.com/panbanda/deadapi/pkg/archive"
	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/models"
)

// ArtifactStats summarizes one artifact's analysis.
type ArtifactStats struct {
	Classes       int
	Templates     int
	DecodeErrors  int
	CallSites     int
	RemovedByCall int
	RemovedByText int
}

// Analyzer removes candidates for which an artifact provides evidence of
// use. It shares the core hierarchy read-only and the candidate set
// remove-only; every call works on its own local hierarchy.
type Analyzer struct {
	core       *Hierarchy
	candidates *CandidateSet
	logger     *slog.Logger
}

// NewAnalyzer creates an analyzer over an index.
func NewAnalyzer(idx *Index, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{core: idx.Hierarchy, candidates: idx.Candidates, logger: logger}
}

// AnalyzeArtifact runs the local indexing pass (plugins only), the
// call-site pass and the template pass over one artifact. A container read
// failure abandons the artifact; removals already made stay made.
func (a *Analyzer) AnalyzeArtifact(ctx context.Context, art archive.Artifact, core bool) (ArtifactStats, error) {
	var stats ArtifactStats
	local := NewHierarchy(a.core)

	if !core {
		err := a.scan(ctx, art, func(e *archive.Entry) {
			if e.Kind != archive.KindClass {
				return
			}
			if cls, err := classfile.Decode(e.Data); err == nil {
				local.RegisterClass(cls)
			}
		})
		if err != nil {
			return stats, err
		}
	}

	var texts [][]byte
	seenText := make(map[uint64]struct{})
	seenCall := make(map[classfile.MethodRef]struct{})
	err := a.scan(ctx, art, func(e *archive.Entry) {
		switch e.Kind {
		case archive.KindTemplate:
			stats.Templates++
			sum := xxhash.Sum64(e.Data)
			if _, dup := seenText[sum]; dup {
				return
			}
			seenText[sum] = struct{}{}
			texts = append(texts, e.Data)
		case archive.KindClass:
			cls, err := classfile.Decode(e.Data)
			if err != nil {
				stats.DecodeErrors++
				metrics.DecodeErrorsTotal.Inc()
				a.logger.Debug("skipping undecodable class", "artifact", art.Name(), "entry", e.Name, "error", err)
				return
			}
			stats.Classes++
			for ref := range cls.Calls() {
				stats.CallSites++
				if !resolvable(ref.Owner) {
					continue
				}
				if _, dup := seenCall[ref]; dup {
					continue
				}
				seenCall[ref] = struct{}{}
				targets := local.ResolvePolymorphicTargets(ref.Owner, ref.Name, ref.Descriptor)
				stats.RemovedByCall += a.candidates.RemoveAll(targets)
			}
			if err := cls.CallsErr(); err != nil {
				stats.DecodeErrors++
				metrics.DecodeErrorsTotal.Inc()
				a.logger.Warn("call sites after an undecodable instruction were skipped", "artifact", art.Name(), "entry", e.Name, "error", err)
			}
		}
	})
	if err != nil {
		return stats, err
	}

	stats.RemovedByText = a.scanTemplates(texts)

	metrics.CandidatesRemovedTotal.WithLabelValues("call").Add(float64(stats.RemovedByCall))
	metrics.CandidatesRemovedTotal.WithLabelValues("template").Add(float64(stats.RemovedByText))
	return stats, nil
}

// resolvable excludes standard-library owners and array pseudo-classes.
func resolvable(owner string) bool {
	return !IsStandardLibraryClass(owner) && !strings.HasPrefix(owner, "[")
}

// scan makes one pass over the artifact's entries.
func (a *Analyzer) scan(ctx context.Context, art archive.Artifact, fn func(*archive.Entry)) error {
	r, err := art.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", art.Name(), err)
		}
		fn(e)
	}
}

// scanTemplates removes every remaining candidate whose bare method name
// occurs anywhere in one of the texts. Matching is plain substring
// containment, so "bar" is found in "barely".
func (a *Analyzer) scanTemplates(texts [][]byte) int {
	if len(texts) == 0 {
		return 0
	}
	byName := make(map[string][]models.MethodKey)
	for _, k := range a.candidates.Snapshot() {
		byName[k.Name] = append(byName[k.Name], k)
	}

	removed := 0
	for name, keys := range byName {
		needle := []byte(name)
		for _, text := range texts {
			if bytes.Contains(text, needle) {
				removed += a.candidates.RemoveAll(keys)
				break
			}
		}
	}
	return removed
}
