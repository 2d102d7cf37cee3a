package unused

import (
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/deadapi/pkg/models"
)

// CandidateBuilder collects candidates while the core artifact is indexed.
// It has a single owner and is consumed by Freeze.
type CandidateBuilder struct {
	ids    map[models.MethodKey]uint32
	keys   []models.MethodKey
	frozen bool
}

// NewCandidateBuilder creates an empty builder.
func NewCandidateBuilder() *CandidateBuilder {
	return &CandidateBuilder{ids: make(map[models.MethodKey]uint32)}
}

// Add records keys as candidates. Duplicates are ignored.
func (b *CandidateBuilder) Add(keys ...models.MethodKey) {
	if b.frozen {
		panic("unused: CandidateBuilder.Add after Freeze")
	}
	for _, k := range keys {
		if _, ok := b.ids[k]; ok {
			continue
		}
		b.ids[k] = uint32(len(b.keys))
		b.keys = append(b.keys, k)
	}
}

// Len returns the number of collected candidates.
func (b *CandidateBuilder) Len() int {
	return len(b.keys)
}

// Freeze hands the collected candidates to a CandidateSet. The builder
// must not be used afterwards.
func (b *CandidateBuilder) Freeze() *CandidateSet {
	if b.frozen {
		panic("unused: CandidateBuilder.Freeze called twice")
	}
	b.frozen = true
	live := roaring.New()
	live.AddRange(0, uint64(len(b.keys)))
	s := &CandidateSet{
		ids:    b.ids,
		keys:   b.keys,
		live:   live,
		seeded: len(b.keys),
	}
	b.ids, b.keys = nil, nil
	return s
}

// CandidateSet is the shrink-only set of methods not yet proven used. It
// has no way to add members; removal is safe from any number of goroutines
// and idempotent.
type CandidateSet struct {
	// ids and keys are immutable after Freeze.
	ids    map[models.MethodKey]uint32
	keys   []models.MethodKey
	seeded int

	mu   sync.RWMutex
	live *roaring.Bitmap
}

// RemoveAll removes keys from the set and returns how many were present.
func (s *CandidateSet) RemoveAll(keys []models.MethodKey) int {
	if len(keys) == 0 {
		return 0
	}
	ids := make([]uint32, 0, len(keys))
	for _, k := range keys {
		if id, ok := s.ids[k]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, id := range ids {
		if s.live.CheckedRemove(id) {
			removed++
		}
	}
	return removed
}

// Contains reports whether k is still a candidate.
func (s *CandidateSet) Contains(k models.MethodKey) bool {
	id, ok := s.ids[k]
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.Contains(id)
}

// Len returns the number of remaining candidates.
func (s *CandidateSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.live.GetCardinality())
}

// Seeded returns the number of candidates the set started with.
func (s *CandidateSet) Seeded() int {
	return s.seeded
}

// Snapshot returns the remaining candidates, sorted. It is only a
// consistent view once no removals are in flight.
func (s *CandidateSet) Snapshot() []models.MethodKey {
	s.mu.RLock()
	out := make([]models.MethodKey, 0, s.live.GetCardinality())
	it := s.live.Iterator()
	for it.HasNext() {
		out = append(out, s.keys[it.Next()])
	}
	s.mu.RUnlock()

	slices.SortFunc(out, models.MethodKey.Compare)
	return out
}
