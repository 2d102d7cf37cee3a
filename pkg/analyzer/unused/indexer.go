package unused

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/panbanda/deadapi/internal/metrics"
	"github.com/panbanda/deadapi/pkg/archive"
	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/models"
)

// Index is the result of indexing the core artifact.
type Index struct {
	Candidates   *CandidateSet
	Hierarchy    *Hierarchy
	Classes      int
	DecodeErrors int
}

// Indexer builds the candidate set and the core hierarchy.
type Indexer struct {
	filters *Filters
	stdlib  *StdlibTable
	logger  *slog.Logger
}

// NewIndexer creates an indexer.
func NewIndexer(filters *Filters, stdlib *StdlibTable, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{filters: filters, stdlib: stdlib, logger: logger}
}

// Index reads every class of the core artifact once: each is registered in
// the root hierarchy and its owned package, and its eligible methods that
// do not merely override a standard-library contract become candidates.
// Entries that fail to decode are skipped; a container read failure aborts
// indexing.
func (ix *Indexer) Index(ctx context.Context, core archive.Artifact) (*Index, error) {
	r, err := core.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h := NewHierarchy(nil)
	b := NewCandidateBuilder()
	idx := &Index{Hierarchy: h}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", core.Name(), err)
		}
		if e.Kind != archive.KindClass {
			continue
		}

		cls, err := classfile.Decode(e.Data)
		if err != nil {
			idx.DecodeErrors++
			metrics.DecodeErrorsTotal.Inc()
			ix.logger.Debug("skipping undecodable class", "artifact", core.Name(), "entry", e.Name, "error", err)
			continue
		}
		idx.Classes++
		h.RegisterClass(cls)
		h.RegisterOwnedPackage(cls.Name)
		b.Add(ix.candidatesOf(cls)...)
	}

	idx.Candidates = b.Freeze()
	ix.logger.Info("indexed core",
		"artifact", core.Name(),
		"classes", idx.Classes,
		"candidates", idx.Candidates.Len(),
		"owned_packages", len(h.owned))
	return idx, nil
}

func (ix *Indexer) candidatesOf(cls *classfile.Class) []models.MethodKey {
	if !ix.filters.ClassEligible(cls) {
		return nil
	}
	var keys []models.MethodKey
	for _, m := range cls.Methods {
		if ix.filters.methodEligible(m) {
			keys = append(keys, models.MethodKey{Class: cls.Name, Name: m.Name, Descriptor: m.Descriptor})
		}
	}
	if ix.stdlib != nil {
		keys = ix.stdlib.ExcludeInherited(cls, keys)
	}
	return keys
}
