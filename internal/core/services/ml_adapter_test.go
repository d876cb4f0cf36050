package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock ClassifierClient ---
type MockClassifierClient struct {
	mock.Mock
}

func (m *MockClassifierClient) Classify(ctx context.Context, req domain.ClassifierRequest) (*domain.ClassifierPrediction, error) {
	args := m.Called(ctx, req)
	var prediction *domain.ClassifierPrediction
	if args.Get(0) != nil {
		prediction = args.Get(0).(*domain.ClassifierPrediction)
	}
	return prediction, args.Error(1)
}

func mlTaxonomy() *domain.Taxonomy {
	return domain.NewTaxonomy([]domain.Account{
		{AccountID: "a1", Code: "1000", Name: "Assets", AccountType: domain.Asset, Level: 1, IsLeaf: false, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: "a2", Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, ConceptTag: "us-gaap:Cash", IsActive: true},
		{AccountID: "a3", Code: "1120", Name: "Petty Cash", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, ConceptTag: "us-gaap:Cash", IsActive: true},
		{AccountID: "a4", Code: "1300", Name: "Legacy Inventory", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: false},
	})
}

func mlLine() *domain.TrialBalanceLine {
	return &domain.TrialBalanceLine{
		LineID:           "line-1",
		TrialBalanceID:   "tb-1",
		LineNumber:       1,
		SourceCode:       "10100",
		SourceName:       "Petty Cash",
		NormalizedSource: "petty cash",
		Debit:            decimal.NewFromInt(250),
		Credit:           decimal.Zero,
		Net:              decimal.NewFromInt(250),
		Status:           domain.LineUnmapped,
		Version:          1,
	}
}

func TestMLAdapter_DisabledWithoutClient(t *testing.T) {
	adapter := services.NewMLAdapter(nil)
	assert.False(t, adapter.Enabled())
	assert.Nil(t, adapter.Candidates(context.Background(), mlTaxonomy(), mlLine(), "m-1"))
}

func TestMLAdapter_ClassifierOutageYieldsNoCandidates(t *testing.T) {
	ctx := context.Background()
	client := new(MockClassifierClient)
	adapter := services.NewMLAdapter(client)
	require.True(t, adapter.Enabled())

	client.On("Classify", ctx, mock.AnythingOfType("domain.ClassifierRequest")).
		Return(nil, errors.New("connect: connection refused")).Once()

	candidates := adapter.Candidates(ctx, mlTaxonomy(), mlLine(), "m-1")
	assert.Nil(t, candidates)
	client.AssertExpectations(t)
}

func TestMLAdapter_ResolvesCodeAndConceptTag(t *testing.T) {
	ctx := context.Background()
	client := new(MockClassifierClient)
	adapter := services.NewMLAdapter(client)

	client.On("Classify", ctx, mock.MatchedBy(func(req domain.ClassifierRequest) bool {
		return req.SourceName == "Petty Cash" && req.NormalizedSource == "petty cash" &&
			req.NetSign == 1 && req.IsDebit && req.ModelVersion == "m-1"
	})).Return(&domain.ClassifierPrediction{
		Identifier:  "1120",
		Probability: 0.85,
		Alternatives: []domain.ClassifierAlternative{
			{Identifier: "us-gaap:Cash", Probability: 0.10},
		},
		ModelVersion: "m-1",
	}, nil).Once()

	candidates := adapter.Candidates(ctx, mlTaxonomy(), mlLine(), "m-1")
	require.Len(t, candidates, 2)

	assert.Equal(t, "1120", candidates[0].AccountCode)
	assert.InDelta(t, 0.85, candidates[0].Score, 1e-9)
	assert.Equal(t, domain.SourceML, candidates[0].Source)
	assert.Equal(t, "m-1", candidates[0].ModelVersion)

	// Concept tag resolves to the first mappable account in code order.
	assert.Equal(t, "1110", candidates[1].AccountCode)
	client.AssertExpectations(t)
}

func TestMLAdapter_DropsUnknownAndUnmappableIdentifiers(t *testing.T) {
	ctx := context.Background()
	client := new(MockClassifierClient)
	adapter := services.NewMLAdapter(client)

	client.On("Classify", ctx, mock.AnythingOfType("domain.ClassifierRequest")).
		Return(&domain.ClassifierPrediction{
			Identifier:  "no-such-code",
			Probability: 0.9,
			Alternatives: []domain.ClassifierAlternative{
				{Identifier: "1000", Probability: 0.5}, // non-leaf
				{Identifier: "1300", Probability: 0.4}, // inactive
				{Identifier: "1120", Probability: 0.3},
			},
			ModelVersion: "m-1",
		}, nil).Once()

	candidates := adapter.Candidates(ctx, mlTaxonomy(), mlLine(), "m-1")
	require.Len(t, candidates, 1)
	assert.Equal(t, "1120", candidates[0].AccountCode)
	client.AssertExpectations(t)
}

func TestMLAdapter_DeduplicatesResolvedTargets(t *testing.T) {
	ctx := context.Background()
	client := new(MockClassifierClient)
	adapter := services.NewMLAdapter(client)

	// The concept tag resolves to 1110, which the top prediction already
	// named; only the first occurrence survives.
	client.On("Classify", ctx, mock.AnythingOfType("domain.ClassifierRequest")).
		Return(&domain.ClassifierPrediction{
			Identifier:  "1110",
			Probability: 0.8,
			Alternatives: []domain.ClassifierAlternative{
				{Identifier: "us-gaap:Cash", Probability: 0.15},
			},
			ModelVersion: "m-1",
		}, nil).Once()

	candidates := adapter.Candidates(ctx, mlTaxonomy(), mlLine(), "m-1")
	require.Len(t, candidates, 1)
	assert.Equal(t, "1110", candidates[0].AccountCode)
	assert.InDelta(t, 0.8, candidates[0].Score, 1e-9)
	client.AssertExpectations(t)
}

func TestMLAdapter_ClampsProbabilityAndFallsBackToBatchVersion(t *testing.T) {
	ctx := context.Background()
	client := new(MockClassifierClient)
	adapter := services.NewMLAdapter(client)

	client.On("Classify", ctx, mock.AnythingOfType("domain.ClassifierRequest")).
		Return(&domain.ClassifierPrediction{
			Identifier:  "1120",
			Probability: 1.7, // out of range, must clamp
		}, nil).Once()

	candidates := adapter.Candidates(ctx, mlTaxonomy(), mlLine(), "m-batch")
	require.Len(t, candidates, 1)
	assert.Equal(t, 1.0, candidates[0].Score)
	assert.Equal(t, "m-batch", candidates[0].ModelVersion)
	client.AssertExpectations(t)
}
