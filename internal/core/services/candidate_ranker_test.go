package services_test

import (
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rankerTaxonomy is a small canonical chart: 1000 is a non-leaf parent, 1110,
// 1120 and 1200 are mappable leaves, 1300 is an inactive leaf.
func rankerTaxonomy() *domain.Taxonomy {
	return domain.NewTaxonomy([]domain.Account{
		{AccountID: "a1", Code: "1000", Name: "Assets", AccountType: domain.Asset, Level: 1, IsLeaf: false, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a2", Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a3", Code: "1120", Name: "Petty Cash", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a4", Code: "1200", Name: "Accounts Receivable", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a5", Code: "1300", Name: "Legacy Inventory", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: false},
	})
}

func defaultRanker() *services.CandidateRanker {
	return services.NewCandidateRanker(1.0, 1.0, 1.0, 0.05, 3)
}

func TestCandidateRanker_NilWhenNothingMappable(t *testing.T) {
	ranker := defaultRanker()
	tax := rankerTaxonomy()

	assert.Nil(t, ranker.Rank(tax, nil))
	assert.Nil(t, ranker.Rank(tax, []domain.MappingCandidate{
		{AccountCode: "9999", Score: 0.9, Source: domain.SourceRule}, // unknown code
		{AccountCode: "1000", Score: 0.9, Source: domain.SourceRule}, // non-leaf
		{AccountCode: "1300", Score: 0.9, Source: domain.SourceML},   // inactive leaf
	}))
}

func TestCandidateRanker_SingleSourceKeepsScore(t *testing.T) {
	ranker := defaultRanker()
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1110", Score: 0.8, Source: domain.SourceRule, RuleID: "r1", Evidence: `matched rule "cash"`},
	})

	require.NotNil(t, ranked)
	assert.Equal(t, "1110", ranked.Top.AccountCode)
	assert.Equal(t, "Operating Cash", ranked.Top.AccountName)
	assert.InDelta(t, 0.8, ranked.Top.Score, 1e-9)
	assert.Equal(t, domain.BucketHigh, ranked.Top.Bucket)
	assert.Equal(t, []domain.CandidateSource{domain.SourceRule}, ranked.Top.Sources)
	assert.Equal(t, "r1", ranked.Top.RuleID)
	assert.Empty(t, ranked.Alternatives)
}

func TestCandidateRanker_ConvergenceOutranksStrongerSingleSource(t *testing.T) {
	ranker := defaultRanker()
	// Two weaker sources agreeing on 1110 must beat the single strong ML
	// vote for 1200: 0.4 + 0.35 + 0.05 bonus = 0.8 > 0.7.
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1200", Score: 0.7, Source: domain.SourceML, ModelVersion: "m-1"},
		{AccountCode: "1110", Score: 0.4, Source: domain.SourceRule, RuleID: "r1"},
		{AccountCode: "1110", Score: 0.35, Source: domain.SourceHistory},
	})

	require.NotNil(t, ranked)
	assert.Equal(t, "1110", ranked.Top.AccountCode)
	assert.InDelta(t, 0.8, ranked.Top.Score, 1e-9)
	assert.Equal(t, []domain.CandidateSource{domain.SourceRule, domain.SourceHistory}, ranked.Top.Sources)

	require.Len(t, ranked.Alternatives, 1)
	assert.Equal(t, "1200", ranked.Alternatives[0].AccountCode)
	assert.Equal(t, "m-1", ranked.Alternatives[0].ModelVersion)
}

func TestCandidateRanker_BestScorePerSourceWins(t *testing.T) {
	ranker := defaultRanker()
	// Two history candidates for the same target: only the stronger one
	// contributes, and a single source earns no convergence bonus.
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1110", Score: 0.3, Source: domain.SourceHistory},
		{AccountCode: "1110", Score: 0.6, Source: domain.SourceHistory},
	})

	require.NotNil(t, ranked)
	assert.InDelta(t, 0.6, ranked.Top.Score, 1e-9)
}

func TestCandidateRanker_CombinedScoreClamped(t *testing.T) {
	ranker := defaultRanker()
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1110", Score: 0.9, Source: domain.SourceRule},
		{AccountCode: "1110", Score: 0.9, Source: domain.SourceHistory},
		{AccountCode: "1110", Score: 0.9, Source: domain.SourceML},
	})

	require.NotNil(t, ranked)
	assert.Equal(t, 1.0, ranked.Top.Score)
	assert.Equal(t, domain.BucketVeryHigh, ranked.Top.Bucket)
}

func TestCandidateRanker_TieBrokenBySourcePrecedenceThenCode(t *testing.T) {
	ranker := services.NewCandidateRanker(1.0, 1.0, 1.0, 0.05, 5)
	// Equal combined scores from different sources: the rule-backed target
	// must rank above the history-backed one.
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1200", Score: 0.5, Source: domain.SourceHistory},
		{AccountCode: "1110", Score: 0.5, Source: domain.SourceRule},
	})
	require.NotNil(t, ranked)
	assert.Equal(t, "1110", ranked.Top.AccountCode)

	// Same source, same score: the lower account code wins.
	ranked = ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1200", Score: 0.5, Source: domain.SourceML},
		{AccountCode: "1120", Score: 0.5, Source: domain.SourceML},
	})
	require.NotNil(t, ranked)
	assert.Equal(t, "1120", ranked.Top.AccountCode)
	require.Len(t, ranked.Alternatives, 1)
	assert.Equal(t, "1200", ranked.Alternatives[0].AccountCode)
}

func TestCandidateRanker_AlternativesCapApplied(t *testing.T) {
	ranker := services.NewCandidateRanker(1.0, 1.0, 1.0, 0.05, 1)
	ranked := ranker.Rank(rankerTaxonomy(), []domain.MappingCandidate{
		{AccountCode: "1110", Score: 0.9, Source: domain.SourceRule},
		{AccountCode: "1120", Score: 0.7, Source: domain.SourceRule},
		{AccountCode: "1200", Score: 0.5, Source: domain.SourceRule},
	})

	require.NotNil(t, ranked)
	assert.Equal(t, "1110", ranked.Top.AccountCode)
	require.Len(t, ranked.Alternatives, 1)
	assert.Equal(t, "1120", ranked.Alternatives[0].AccountCode)
}

func TestCandidateRanker_DeterministicAcrossRuns(t *testing.T) {
	ranker := defaultRanker()
	candidates := []domain.MappingCandidate{
		{AccountCode: "1110", Score: 0.45, Source: domain.SourceRule, RuleID: "r1"},
		{AccountCode: "1120", Score: 0.45, Source: domain.SourceHistory},
		{AccountCode: "1200", Score: 0.6, Source: domain.SourceML, ModelVersion: "m-1"},
		{AccountCode: "1110", Score: 0.2, Source: domain.SourceML, ModelVersion: "m-1"},
	}

	first := ranker.Rank(rankerTaxonomy(), candidates)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ranker.Rank(rankerTaxonomy(), candidates))
	}
}
