package models

import (
	"slices"
	"strings"
	"time"
)

// UnusedMethod is one core method with no observed use in the corpus.
type UnusedMethod struct {
	Class      string `json:"class" toon:"class"`
	Name       string `json:"name" toon:"name"`
	Descriptor string `json:"descriptor" toon:"descriptor"`
	Signature  string `json:"signature" toon:"signature"`
}

// ArtifactFailure records an artifact whose analysis was abandoned.
type ArtifactFailure struct {
	Artifact    string `json:"artifact" toon:"artifact"`
	Error       string `json:"error" toon:"error"`
	Quarantined bool   `json:"quarantined,omitempty" toon:"quarantined,omitempty"`
}

// UnusedSummary provides aggregate statistics for a run.
type UnusedSummary struct {
	RunID              string         `json:"run_id" toon:"run_id"`
	CandidatesSeeded   int            `json:"candidates_seeded" toon:"candidates_seeded"`
	TotalUnused        int            `json:"total_unused" toon:"total_unused"`
	ArtifactsAnalyzed  int            `json:"artifacts_analyzed" toon:"artifacts_analyzed"`
	ArtifactsFailed    int            `json:"artifacts_failed" toon:"artifacts_failed"`
	HierarchyAnomalies int            `json:"hierarchy_anomalies" toon:"hierarchy_anomalies"`
	Duration           time.Duration  `json:"duration_ns" toon:"duration_ns"`
	ByPackage          map[string]int `json:"by_package" toon:"by_package"`
}

// UnusedReport is the outcome of an unused-method analysis.
type UnusedReport struct {
	Methods  []UnusedMethod    `json:"methods" toon:"methods"`
	Failures []ArtifactFailure `json:"failures,omitempty" toon:"failures,omitempty"`
	Summary  UnusedSummary     `json:"summary" toon:"summary"`

	// TopN bounds the package breakdown in text and markdown renderings.
	TopN int `json:"-" toon:"-"`
}

// NewUnusedReport creates an empty report for the given run.
func NewUnusedReport(runID string) *UnusedReport {
	return &UnusedReport{
		Methods: []UnusedMethod{},
		Summary: UnusedSummary{
			RunID:     runID,
			ByPackage: make(map[string]int),
		},
	}
}

// AddMethod appends an unused method and updates the summary.
func (r *UnusedReport) AddMethod(k MethodKey) {
	r.Methods = append(r.Methods, UnusedMethod{
		Class:      k.Class,
		Name:       k.Name,
		Descriptor: k.Descriptor,
		Signature:  FormatSignature(k),
	})
	r.Summary.TotalUnused++
	r.Summary.ByPackage[dotted(k.Package())]++
}

// AddFailure records an abandoned artifact.
func (r *UnusedReport) AddFailure(f ArtifactFailure) {
	r.Failures = append(r.Failures, f)
	r.Summary.ArtifactsFailed++
}

// MatchesPrefixes reports whether the key's class falls under one of the
// internal-name prefixes. An empty prefix list matches everything.
func MatchesPrefixes(k MethodKey, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return strings.HasPrefix(k.Class, p)
	})
}

// TopPackages returns up to n packages ordered by unused count, then name.
func (s *UnusedSummary) TopPackages(n int) []string {
	pkgs := make([]string, 0, len(s.ByPackage))
	for p := range s.ByPackage {
		pkgs = append(pkgs, p)
	}
	slices.SortFunc(pkgs, func(a, b string) int {
		if s.ByPackage[a] != s.ByPackage[b] {
			return s.ByPackage[b] - s.ByPackage[a]
		}
		return strings.Compare(a, b)
	})
	if n > 0 && len(pkgs) > n {
		pkgs = pkgs[:n]
	}
	return pkgs
}
