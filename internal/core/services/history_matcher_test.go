package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock HistoryReader ---
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) FindPrecedents(ctx context.Context, firmID string, normalizedSource string) ([]domain.MappingHistory, error) {
	args := m.Called(ctx, firmID, normalizedSource)
	var rows []domain.MappingHistory
	if args.Get(0) != nil {
		rows = args.Get(0).([]domain.MappingHistory)
	}
	return rows, args.Error(1)
}

func (m *MockHistoryRepository) FindPrecedentsGlobal(ctx context.Context, normalizedSource string) ([]domain.MappingHistory, error) {
	args := m.Called(ctx, normalizedSource)
	var rows []domain.MappingHistory
	if args.Get(0) != nil {
		rows = args.Get(0).([]domain.MappingHistory)
	}
	return rows, args.Error(1)
}

func (m *MockHistoryRepository) ListHistoryByAccountCode(ctx context.Context, firmID string, accountCode string, limit int, nextToken *string) ([]domain.MappingHistory, *string, error) {
	args := m.Called(ctx, firmID, accountCode, limit, nextToken)
	var rows []domain.MappingHistory
	if args.Get(0) != nil {
		rows = args.Get(0).([]domain.MappingHistory)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return rows, token, args.Error(2)
}

func precedent(account string, confirmedAt time.Time) domain.MappingHistory {
	return domain.MappingHistory{
		HistoryID:        "h-" + account,
		FirmID:           "firm-1",
		NormalizedSource: "petty cash",
		AccountCode:      account,
		Method:           domain.MethodRule,
		ConfirmedBy:      "user-1",
		ConfirmedAt:      confirmedAt,
	}
}

func TestHistoryMatcher_EmptySourceSkipsLookup(t *testing.T) {
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	candidates, err := matcher.Candidates(context.Background(), "firm-1", "", time.Now())
	require.NoError(t, err)
	assert.Nil(t, candidates)
	repo.AssertNotCalled(t, "FindPrecedents")
	repo.AssertNotCalled(t, "FindPrecedentsGlobal")
}

func TestHistoryMatcher_FirmPrecedentsPreferred(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").
		Return([]domain.MappingHistory{precedent("1120", now)}, nil).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1120", candidates[0].AccountCode)
	assert.Equal(t, domain.SourceHistory, candidates[0].Source)

	// One fresh confirmation: full share, damped by 1/2.
	assert.InDelta(t, 0.5, candidates[0].Score, 1e-9)

	repo.AssertNotCalled(t, "FindPrecedentsGlobal")
	repo.AssertExpectations(t)
}

func TestHistoryMatcher_FallsBackToGlobalPool(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").Return([]domain.MappingHistory{}, nil).Once()
	repo.On("FindPrecedentsGlobal", ctx, "petty cash").
		Return([]domain.MappingHistory{precedent("1120", now), precedent("1120", now)}, nil).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1120", candidates[0].AccountCode)
	// Two agreeing confirmations: share 1, damped by 2/3.
	assert.InDelta(t, 2.0/3.0, candidates[0].Score, 1e-9)
	repo.AssertExpectations(t)
}

func TestHistoryMatcher_NoPrecedentsAnywhere(t *testing.T) {
	ctx := context.Background()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").Return(nil, nil).Once()
	repo.On("FindPrecedentsGlobal", ctx, "petty cash").Return(nil, nil).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", time.Now())
	require.NoError(t, err)
	assert.Nil(t, candidates)
	repo.AssertExpectations(t)
}

func TestHistoryMatcher_ConsensusOutweighsSingleVote(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").Return([]domain.MappingHistory{
		precedent("1120", now),
		precedent("1120", now),
		precedent("1120", now),
		precedent("1200", now),
	}, nil).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", now)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "1120", candidates[0].AccountCode)
	assert.InDelta(t, 0.75*0.75, candidates[0].Score, 1e-9) // share 3/4, damping 3/4
	assert.Equal(t, "1200", candidates[1].AccountCode)
	assert.InDelta(t, 0.25*0.5, candidates[1].Score, 1e-9) // share 1/4, damping 1/2
	repo.AssertExpectations(t)
}

func TestHistoryMatcher_RecencyDecayShiftsShares(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	// One confirmation exactly a half-life old (weight 0.5) against a fresh
	// one (weight 1.0): the fresh target takes two thirds of the mass.
	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").Return([]domain.MappingHistory{
		precedent("1120", now),
		precedent("1200", now.Add(-365*24*time.Hour)),
	}, nil).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", now)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "1120", candidates[0].AccountCode)
	assert.InDelta(t, (1.0/1.5)*0.5, candidates[0].Score, 1e-6)
	assert.Equal(t, "1200", candidates[1].AccountCode)
	assert.InDelta(t, (0.5/1.5)*0.5, candidates[1].Score, 1e-6)
	repo.AssertExpectations(t)
}

func TestHistoryMatcher_RepositoryErrorPropagates(t *testing.T) {
	ctx := context.Background()
	repo := new(MockHistoryRepository)
	matcher := services.NewHistoryMatcher(repo, 365)

	dbErr := errors.New("connection lost")
	repo.On("FindPrecedents", ctx, "firm-1", "petty cash").Return(nil, dbErr).Once()

	candidates, err := matcher.Candidates(ctx, "firm-1", "petty cash", time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, candidates)
	repo.AssertExpectations(t)
}
