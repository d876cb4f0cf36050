package services

import (
	"sort"
	"strings"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// CandidateRanker folds the rule, history and ML candidates for one line
// into a single ranked suggestion. Ranking is a pure function of its inputs:
// the same candidates always yield the same ordered result.
type CandidateRanker struct {
	ruleWeight       float64
	historyWeight    float64
	mlWeight         float64
	convergenceBonus float64
	alternativesCap  int
}

// NewCandidateRanker creates a ranker. With the default equal weights of 1.0
// a multi-source target scores at least as high as any of its single-source
// contributions, which keeps evidence convergence monotone.
func NewCandidateRanker(ruleWeight, historyWeight, mlWeight, convergenceBonus float64, alternativesCap int) *CandidateRanker {
	return &CandidateRanker{
		ruleWeight:       ruleWeight,
		historyWeight:    historyWeight,
		mlWeight:         mlWeight,
		convergenceBonus: convergenceBonus,
		alternativesCap:  alternativesCap,
	}
}

// merged accumulates per-target evidence while folding candidates.
type merged struct {
	accountCode string
	bestBySrc   map[domain.CandidateSource]domain.MappingCandidate
	combined    float64
}

// Rank merges candidates by target account and orders the targets by
// combined score. Targets not resolvable to a mappable account in the
// taxonomy are ignored. Returns nil when nothing rankable remains, leaving
// the line unmapped rather than guessing with zero confidence.
func (r *CandidateRanker) Rank(tax *domain.Taxonomy, candidates []domain.MappingCandidate) *domain.RankedSuggestion {
	groups := make(map[string]*merged)
	for _, c := range candidates {
		if !tax.IsMappable(c.AccountCode) {
			continue
		}
		g, ok := groups[c.AccountCode]
		if !ok {
			g = &merged{
				accountCode: c.AccountCode,
				bestBySrc:   make(map[domain.CandidateSource]domain.MappingCandidate, 3),
			}
			groups[c.AccountCode] = g
		}
		if best, ok := g.bestBySrc[c.Source]; !ok || c.Score > best.Score {
			g.bestBySrc[c.Source] = c
		}
	}
	if len(groups) == 0 {
		return nil
	}

	list := make([]*merged, 0, len(groups))
	for _, g := range groups {
		g.combined = r.combinedScore(g)
		list = append(list, g)
	}

	// Total order: combined desc, then strongest source (rule beats history
	// beats ml), then account code asc. Codes are unique per group, so the
	// order is fully deterministic.
	sort.Slice(list, func(i, j int) bool {
		if list[i].combined != list[j].combined {
			return list[i].combined > list[j].combined
		}
		pi, pj := bestPrecedence(list[i]), bestPrecedence(list[j])
		if pi != pj {
			return pi < pj
		}
		return list[i].accountCode < list[j].accountCode
	})

	ranked := make([]domain.RankedCandidate, 0, len(list))
	for _, g := range list {
		ranked = append(ranked, r.toRankedCandidate(tax, g))
	}

	out := &domain.RankedSuggestion{Top: ranked[0]}
	rest := ranked[1:]
	if len(rest) > r.alternativesCap {
		rest = rest[:r.alternativesCap]
	}
	out.Alternatives = rest
	return out
}

// combinedScore is the weighted sum of the best score from each contributing
// source, plus the convergence bonus when two or more independent sources
// agree, clamped to [0,1].
func (r *CandidateRanker) combinedScore(g *merged) float64 {
	var score float64
	if c, ok := g.bestBySrc[domain.SourceRule]; ok {
		score += r.ruleWeight * c.Score
	}
	if c, ok := g.bestBySrc[domain.SourceHistory]; ok {
		score += r.historyWeight * c.Score
	}
	if c, ok := g.bestBySrc[domain.SourceML]; ok {
		score += r.mlWeight * c.Score
	}
	if len(g.bestBySrc) >= 2 {
		score += r.convergenceBonus
	}
	return clamp01(score)
}

// bestPrecedence returns the precedence of the strongest source backing the
// target. Lower is stronger.
func bestPrecedence(g *merged) int {
	best := int(^uint(0) >> 1)
	for src := range g.bestBySrc {
		if p := src.Precedence(); p < best {
			best = p
		}
	}
	return best
}

// toRankedCandidate flattens a merged group: sources in precedence order,
// provenance taken from the contributing rule/ML candidates, evidence joined.
func (r *CandidateRanker) toRankedCandidate(tax *domain.Taxonomy, g *merged) domain.RankedCandidate {
	account, _ := tax.Resolve(g.accountCode)

	rc := domain.RankedCandidate{
		AccountCode: g.accountCode,
		AccountName: account.Name,
		Score:       g.combined,
		Bucket:      domain.BucketForScore(g.combined),
	}

	var evidence []string
	for _, src := range []domain.CandidateSource{domain.SourceRule, domain.SourceHistory, domain.SourceML} {
		c, ok := g.bestBySrc[src]
		if !ok {
			continue
		}
		rc.Sources = append(rc.Sources, src)
		if c.Evidence != "" {
			evidence = append(evidence, c.Evidence)
		}
		switch src {
		case domain.SourceRule:
			rc.RuleID = c.RuleID
		case domain.SourceML:
			rc.ModelVersion = c.ModelVersion
		}
	}
	rc.Evidence = strings.Join(evidence, "; ")
	return rc
}
