package domain_test

import (
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestBucketForScore(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  domain.ConfidenceBucket
	}{
		{name: "zero is low", score: 0.0, want: domain.BucketLow},
		{name: "just below medium", score: 0.39, want: domain.BucketLow},
		{name: "medium lower bound", score: 0.40, want: domain.BucketMedium},
		{name: "just below high", score: 0.69, want: domain.BucketMedium},
		{name: "high lower bound", score: 0.70, want: domain.BucketHigh},
		{name: "just below very high", score: 0.89, want: domain.BucketHigh},
		{name: "very high lower bound", score: 0.90, want: domain.BucketVeryHigh},
		{name: "perfect score", score: 1.0, want: domain.BucketVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.BucketForScore(tt.score))
		})
	}
}

func TestCandidateSource_Precedence(t *testing.T) {
	assert.Less(t, domain.SourceRule.Precedence(), domain.SourceHistory.Precedence())
	assert.Less(t, domain.SourceHistory.Precedence(), domain.SourceML.Precedence())
}

func TestCandidateSource_Method(t *testing.T) {
	assert.Equal(t, domain.MethodRule, domain.SourceRule.Method())
	assert.Equal(t, domain.MethodHistory, domain.SourceHistory.Method())
	assert.Equal(t, domain.MethodML, domain.SourceML.Method())
}

func TestRankedSuggestion_Method(t *testing.T) {
	s := domain.RankedSuggestion{
		Top: domain.RankedCandidate{
			AccountCode: "1100",
			Sources:     []domain.CandidateSource{domain.SourceRule, domain.SourceML},
		},
	}
	assert.Equal(t, domain.MethodRule, s.Method())

	s.Top.Sources = nil
	assert.Equal(t, domain.MappingMethod(""), s.Method())
}
