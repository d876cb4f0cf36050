package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
)

// HistoryMatcher turns prior confirmed mappings into weighted candidates.
// Precedents from the caller's own firm are preferred; the global pool is
// consulted only when the firm has never mapped this source text.
type HistoryMatcher struct {
	historyRepo  portsrepo.HistoryReader
	halfLifeDays float64
}

// NewHistoryMatcher creates a matcher with the given recency half-life.
func NewHistoryMatcher(repo portsrepo.HistoryReader, halfLifeDays int) *HistoryMatcher {
	if halfLifeDays <= 0 {
		halfLifeDays = 365
	}
	return &HistoryMatcher{historyRepo: repo, halfLifeDays: float64(halfLifeDays)}
}

// Candidates looks up precedents for one normalized source text and scores
// each distinct historical target.
//
// Each precedent carries a recency weight of 0.5^(age/halfLife). A target's
// score is its share of the total weight, damped by n/(n+1) so a single
// lucky confirmation never scores like an established consensus.
func (m *HistoryMatcher) Candidates(ctx context.Context, firmID string, normalizedSource string, now time.Time) ([]domain.MappingCandidate, error) {
	if normalizedSource == "" {
		return nil, nil
	}

	precedents, err := m.historyRepo.FindPrecedents(ctx, firmID, normalizedSource)
	if err != nil {
		return nil, fmt.Errorf("failed to load firm precedents: %w", err)
	}
	if len(precedents) == 0 {
		precedents, err = m.historyRepo.FindPrecedentsGlobal(ctx, normalizedSource)
		if err != nil {
			return nil, fmt.Errorf("failed to load global precedents: %w", err)
		}
	}
	if len(precedents) == 0 {
		return nil, nil
	}

	type targetStat struct {
		weight float64
		count  int
	}
	stats := make(map[string]*targetStat)
	var totalWeight float64

	for _, p := range precedents {
		age := now.Sub(p.ConfirmedAt).Hours() / 24
		if age < 0 {
			age = 0
		}
		w := math.Pow(0.5, age/m.halfLifeDays)
		totalWeight += w

		st, ok := stats[p.AccountCode]
		if !ok {
			st = &targetStat{}
			stats[p.AccountCode] = st
		}
		st.weight += w
		st.count++
	}
	if totalWeight == 0 {
		return nil, nil
	}

	candidates := make([]domain.MappingCandidate, 0, len(stats))
	for code, st := range stats {
		share := st.weight / totalWeight
		damping := float64(st.count) / float64(st.count+1)
		candidates = append(candidates, domain.MappingCandidate{
			AccountCode: code,
			Score:       clamp01(share * damping),
			Source:      domain.SourceHistory,
			Evidence:    fmt.Sprintf("%d prior confirmation(s)", st.count),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].AccountCode < candidates[j].AccountCode
	})
	return candidates, nil
}
