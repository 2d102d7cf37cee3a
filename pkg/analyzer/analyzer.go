// Package analyzer holds the types shared by corpus analyzers.
package analyzer

import (
	"context"

	"github.com/panbanda/deadapi/pkg/archive"
)

// Corpus is the set of artifacts one analysis run reads.
type Corpus struct {
	// Index is read once to seed candidates and the core hierarchy. When
	// nil, Core is used.
	Index archive.Artifact
	// Core is the host platform artifact. It is analyzed for usage like
	// any plugin.
	Core    archive.Artifact
	Plugins []archive.Artifact
}

// IndexSource returns the artifact candidates are seeded from.
func (c Corpus) IndexSource() archive.Artifact {
	if c.Index != nil {
		return c.Index
	}
	return c.Core
}

// Size returns the number of artifacts analyzed for usage.
func (c Corpus) Size() int {
	if c.Core == nil {
		return len(c.Plugins)
	}
	return len(c.Plugins) + 1
}

// CorpusAnalyzer is implemented by analyzers that consume a whole corpus.
type CorpusAnalyzer[T any] interface {
	// Analyze runs the analysis. The context carries cancellation and an
	// optional progress Tracker.
	Analyze(ctx context.Context, corpus Corpus) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
