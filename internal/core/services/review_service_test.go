package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock TrialBalanceRepository (reader + writer facade) ---
type MockTrialBalanceRepository struct {
	mock.Mock
}

func (m *MockTrialBalanceRepository) FindTrialBalanceByID(ctx context.Context, trialBalanceID string) (*domain.TrialBalance, error) {
	args := m.Called(ctx, trialBalanceID)
	var tb *domain.TrialBalance
	if args.Get(0) != nil {
		tb = args.Get(0).(*domain.TrialBalance)
	}
	return tb, args.Error(1)
}

func (m *MockTrialBalanceRepository) ListTrialBalancesByFirm(ctx context.Context, firmID string, limit int, nextToken *string) ([]domain.TrialBalance, *string, error) {
	args := m.Called(ctx, firmID, limit, nextToken)
	var tbs []domain.TrialBalance
	if args.Get(0) != nil {
		tbs = args.Get(0).([]domain.TrialBalance)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return tbs, token, args.Error(2)
}

func (m *MockTrialBalanceRepository) FindLineByID(ctx context.Context, lineID string) (*domain.TrialBalanceLine, error) {
	args := m.Called(ctx, lineID)
	var line *domain.TrialBalanceLine
	if args.Get(0) != nil {
		line = args.Get(0).(*domain.TrialBalanceLine)
	}
	return line, args.Error(1)
}

func (m *MockTrialBalanceRepository) ListLines(ctx context.Context, trialBalanceID string, status *domain.LineStatus, limit int, nextToken *string) ([]domain.TrialBalanceLine, *string, error) {
	args := m.Called(ctx, trialBalanceID, status, limit, nextToken)
	var lines []domain.TrialBalanceLine
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.TrialBalanceLine)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return lines, token, args.Error(2)
}

func (m *MockTrialBalanceRepository) ListAllLines(ctx context.Context, trialBalanceID string) ([]domain.TrialBalanceLine, error) {
	args := m.Called(ctx, trialBalanceID)
	var lines []domain.TrialBalanceLine
	if args.Get(0) != nil {
		lines = args.Get(0).([]domain.TrialBalanceLine)
	}
	return lines, args.Error(1)
}

func (m *MockTrialBalanceRepository) ListDeclaredSubtotals(ctx context.Context, trialBalanceID string) ([]domain.DeclaredSubtotal, error) {
	args := m.Called(ctx, trialBalanceID)
	var subtotals []domain.DeclaredSubtotal
	if args.Get(0) != nil {
		subtotals = args.Get(0).([]domain.DeclaredSubtotal)
	}
	return subtotals, args.Error(1)
}

func (m *MockTrialBalanceRepository) HasConfirmedLines(ctx context.Context, trialBalanceID string) (bool, error) {
	args := m.Called(ctx, trialBalanceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTrialBalanceRepository) SumMappedNetByAccount(ctx context.Context, trialBalanceID string) ([]domain.MappedAccountNet, error) {
	args := m.Called(ctx, trialBalanceID)
	var nets []domain.MappedAccountNet
	if args.Get(0) != nil {
		nets = args.Get(0).([]domain.MappedAccountNet)
	}
	return nets, args.Error(1)
}

func (m *MockTrialBalanceRepository) CountLinesByStatus(ctx context.Context, trialBalanceID string) (map[domain.LineStatus]int, error) {
	args := m.Called(ctx, trialBalanceID)
	var counts map[domain.LineStatus]int
	if args.Get(0) != nil {
		counts = args.Get(0).(map[domain.LineStatus]int)
	}
	return counts, args.Error(1)
}

func (m *MockTrialBalanceRepository) SaveTrialBalance(ctx context.Context, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error {
	args := m.Called(ctx, tb, lines, subtotals)
	return args.Error(0)
}

func (m *MockTrialBalanceRepository) SupersedeTrialBalance(ctx context.Context, oldTrialBalanceID string, tb domain.TrialBalance, lines []domain.TrialBalanceLine, subtotals []domain.DeclaredSubtotal) error {
	args := m.Called(ctx, oldTrialBalanceID, tb, lines, subtotals)
	return args.Error(0)
}

func (m *MockTrialBalanceRepository) ApplyReviewDecision(ctx context.Context, line domain.TrialBalanceLine, expectedVersion int64, suggestion *domain.MappingSuggestion, history *domain.MappingHistory) error {
	args := m.Called(ctx, line, expectedVersion, suggestion, history)
	return args.Error(0)
}

func (m *MockTrialBalanceRepository) ReopenLine(ctx context.Context, line domain.TrialBalanceLine, suggestionID string) error {
	args := m.Called(ctx, line, suggestionID)
	return args.Error(0)
}

// --- Mock SuggestionRepository (reader + writer facade) ---
type MockSuggestionRepository struct {
	mock.Mock
}

func (m *MockSuggestionRepository) FindSuggestionByID(ctx context.Context, suggestionID string) (*domain.MappingSuggestion, error) {
	args := m.Called(ctx, suggestionID)
	var suggestion *domain.MappingSuggestion
	if args.Get(0) != nil {
		suggestion = args.Get(0).(*domain.MappingSuggestion)
	}
	return suggestion, args.Error(1)
}

func (m *MockSuggestionRepository) FindActiveSuggestionByLineID(ctx context.Context, lineID string) (*domain.MappingSuggestion, error) {
	args := m.Called(ctx, lineID)
	var suggestion *domain.MappingSuggestion
	if args.Get(0) != nil {
		suggestion = args.Get(0).(*domain.MappingSuggestion)
	}
	return suggestion, args.Error(1)
}

func (m *MockSuggestionRepository) ListSuggestionsByLineID(ctx context.Context, lineID string) ([]domain.MappingSuggestion, error) {
	args := m.Called(ctx, lineID)
	var suggestions []domain.MappingSuggestion
	if args.Get(0) != nil {
		suggestions = args.Get(0).([]domain.MappingSuggestion)
	}
	return suggestions, args.Error(1)
}

func (m *MockSuggestionRepository) ReplaceActiveSuggestion(ctx context.Context, suggestion domain.MappingSuggestion, markLineSuggested bool) error {
	args := m.Called(ctx, suggestion, markLineSuggested)
	return args.Error(0)
}

// --- Mock COA reader service ---
type MockCOAService struct {
	mock.Mock
}

func (m *MockCOAService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	var account *domain.Account
	if args.Get(0) != nil {
		account = args.Get(0).(*domain.Account)
	}
	return account, args.Error(1)
}

func (m *MockCOAService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockCOAService) ListChildren(ctx context.Context, code string) ([]domain.Account, error) {
	args := m.Called(ctx, code)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockCOAService) Taxonomy(ctx context.Context) (*domain.Taxonomy, error) {
	args := m.Called(ctx)
	var tax *domain.Taxonomy
	if args.Get(0) != nil {
		tax = args.Get(0).(*domain.Taxonomy)
	}
	return tax, args.Error(1)
}

// --- Mock firm authorizer ---
type MockFirmAuthorizer struct {
	mock.Mock
}

func (m *MockFirmAuthorizer) AuthorizeUserAction(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error {
	args := m.Called(ctx, userID, firmID, requiredRole)
	return args.Error(0)
}

// --- Mock training feed publisher ---
type MockTrainingFeed struct {
	mock.Mock
}

func (m *MockTrainingFeed) PublishReviewDecision(ctx context.Context, event domain.ReviewDecisionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTrainingFeed) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Suite ---
type ReviewServiceTestSuite struct {
	suite.Suite
	mockTBRepo         *MockTrialBalanceRepository
	mockSuggestionRepo *MockSuggestionRepository
	mockCOASvc         *MockCOAService
	mockAuthorizer     *MockFirmAuthorizer
	mockFeed           *MockTrainingFeed
	service            portssvc.ReviewSvc
}

func (s *ReviewServiceTestSuite) SetupTest() {
	s.mockTBRepo = new(MockTrialBalanceRepository)
	s.mockSuggestionRepo = new(MockSuggestionRepository)
	s.mockCOASvc = new(MockCOAService)
	s.mockAuthorizer = new(MockFirmAuthorizer)
	s.mockFeed = new(MockTrainingFeed)
	s.service = services.NewReviewService(s.mockTBRepo, s.mockSuggestionRepo, s.mockCOASvc, s.mockAuthorizer, s.mockFeed, nil)
}

const (
	testFirmID   = "firm-1"
	testTBID     = "tb-1"
	testLineID   = "line-1"
	testReviewer = "user-9"
)

func (s *ReviewServiceTestSuite) activeTrialBalance() *domain.TrialBalance {
	return &domain.TrialBalance{
		TrialBalanceID: testTBID,
		FirmID:         testFirmID,
		CurrencyCode:   "USD",
		Status:         domain.TBActive,
	}
}

func (s *ReviewServiceTestSuite) suggestedLine(version int64) *domain.TrialBalanceLine {
	return &domain.TrialBalanceLine{
		LineID:           testLineID,
		TrialBalanceID:   testTBID,
		LineNumber:       1,
		SourceCode:       "10100",
		SourceName:       "Petty Cash",
		NormalizedSource: "petty cash",
		Debit:            decimal.NewFromInt(250),
		Net:              decimal.NewFromInt(250),
		Status:           domain.LineSuggested,
		Version:          version,
	}
}

func (s *ReviewServiceTestSuite) pendingSuggestion() *domain.MappingSuggestion {
	return &domain.MappingSuggestion{
		SuggestionID:         "sug-1",
		LineID:               testLineID,
		SuggestedAccountCode: "1120",
		SuggestedAccountName: "Petty Cash",
		Confidence:           0.82,
		ConfidenceBucket:     domain.BucketHigh,
		Method:               domain.MethodRule,
		RuleID:               "rule-1",
		Alternatives: []domain.RankedCandidate{
			{AccountCode: "1110", AccountName: "Operating Cash", Score: 0.55, Bucket: domain.BucketMedium, Sources: []domain.CandidateSource{domain.SourceHistory}},
		},
		IsActive:     true,
		ReviewStatus: domain.ReviewPending,
	}
}

func (s *ReviewServiceTestSuite) expectAuthorized(role domain.FirmRole) {
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, testReviewer, testFirmID, role).Return(nil).Once()
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_Success() {
	ctx := context.Background()
	line := s.suggestedLine(3)
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(line, nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	s.mockTBRepo.On("ApplyReviewDecision", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineConfirmed &&
				updated.MappedAccountCode == "1120" &&
				updated.MappingMethod == domain.MethodRule &&
				updated.Version == 4
		}),
		int64(3),
		mock.MatchedBy(func(reviewed *domain.MappingSuggestion) bool {
			return reviewed.ReviewStatus == domain.ReviewConfirmed &&
				reviewed.ChosenAccountCode == "1120" &&
				!reviewed.IsDivergent &&
				reviewed.ReviewedBy == testReviewer
		}),
		mock.MatchedBy(func(history *domain.MappingHistory) bool {
			return history != nil &&
				history.AccountCode == "1120" &&
				history.NormalizedSource == "petty cash" &&
				history.SuggestionID == "sug-1" &&
				history.Method == domain.MethodRule
		}),
	).Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.MatchedBy(func(event domain.ReviewDecisionEvent) bool {
		return event.Decision == domain.ReviewConfirmed && !event.IsDivergent && event.LineID == testLineID
	})).Return(nil).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal(domain.LineConfirmed, updated.Status)
	s.Equal("1120", updated.MappedAccountCode)
	s.Equal(int64(4), updated.Version)
	s.InDelta(0.82, updated.MappingConfidence, 1e-9)

	s.mockTBRepo.AssertExpectations(s.T())
	s.mockSuggestionRepo.AssertExpectations(s.T())
	s.mockFeed.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_VersionConflict() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(5), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	// The caller saw version 3 but a concurrent decision already advanced it.
	s.mockTBRepo.On("ApplyReviewDecision", ctx, mock.AnythingOfType("domain.TrialBalanceLine"), int64(3), mock.Anything, mock.Anything).
		Return(apperrors.ErrVersionConflict).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrVersionConflict)
	s.Nil(updated)
	s.mockFeed.AssertNotCalled(s.T(), "PublishReviewDecision")
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_SupersededTrialBalance() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	tb := s.activeTrialBalance()
	tb.Status = domain.TBSuperseded
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(tb, nil).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrImmutable)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "ApplyReviewDecision")
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_NoActiveSuggestion() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(nil, apperrors.ErrNotFound).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(updated)
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_AlreadyReviewed() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	reviewed := s.pendingSuggestion()
	reviewed.ReviewStatus = domain.ReviewConfirmed
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(reviewed, nil).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "ApplyReviewDecision")
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_OtherFirmLineHidden() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	tb := s.activeTrialBalance()
	tb.FirmID = "firm-2"
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(tb, nil).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Nil(updated)
}

func (s *ReviewServiceTestSuite) TestConfirmSuggestion_AuthorizationDenied() {
	ctx := context.Background()
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, testReviewer, testFirmID, domain.RoleMember).
		Return(apperrors.ErrForbidden).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "FindLineByID")
}

func (s *ReviewServiceTestSuite) TestSelectAlternative_RecordsDivergence() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	s.mockTBRepo.On("ApplyReviewDecision", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineConfirmed &&
				updated.MappedAccountCode == "1110" &&
				updated.MappingMethod == domain.MethodHistory &&
				updated.Version == 4
		}),
		int64(3),
		mock.MatchedBy(func(reviewed *domain.MappingSuggestion) bool {
			return reviewed.ReviewStatus == domain.ReviewConfirmed &&
				reviewed.ChosenAccountCode == "1110" &&
				reviewed.IsDivergent
		}),
		mock.MatchedBy(func(history *domain.MappingHistory) bool {
			return history != nil && history.AccountCode == "1110"
		}),
	).Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.MatchedBy(func(event domain.ReviewDecisionEvent) bool {
		return event.IsDivergent && event.ChosenAccountCode == "1110" && event.SuggestedAccountCode == "1120"
	})).Return(nil).Once()

	updated, err := s.service.SelectAlternative(ctx, testFirmID, testLineID, "1110", 3, testReviewer)

	s.Require().NoError(err)
	s.Equal("1110", updated.MappedAccountCode)
	s.InDelta(0.55, updated.MappingConfidence, 1e-9)
	s.mockTBRepo.AssertExpectations(s.T())
	s.mockFeed.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestSelectAlternative_UnknownCode() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	updated, err := s.service.SelectAlternative(ctx, testFirmID, testLineID, "9999", 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "ApplyReviewDecision")
}

func (s *ReviewServiceTestSuite) TestRejectSuggestion_NoHistoryRow() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	s.mockTBRepo.On("ApplyReviewDecision", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineRejected &&
				updated.MappedAccountCode == "" &&
				updated.Version == 4
		}),
		int64(3),
		mock.MatchedBy(func(reviewed *domain.MappingSuggestion) bool {
			return reviewed.ReviewStatus == domain.ReviewRejected &&
				reviewed.Feedback == "wrong side of the balance sheet"
		}),
		(*domain.MappingHistory)(nil),
	).Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.MatchedBy(func(event domain.ReviewDecisionEvent) bool {
		return event.Decision == domain.ReviewRejected
	})).Return(nil).Once()

	updated, err := s.service.RejectSuggestion(ctx, testFirmID, testLineID, 3, "wrong side of the balance sheet", testReviewer)

	s.Require().NoError(err)
	s.Equal(domain.LineRejected, updated.Status)
	s.mockTBRepo.AssertExpectations(s.T())
	s.mockFeed.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestManualMap_OverridesActiveSuggestion() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockCOASvc.On("GetAccountByCode", ctx, "1200").Return(&domain.Account{
		AccountID: "a4", Code: "1200", Name: "Accounts Receivable", IsLeaf: true, IsActive: true,
	}, nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()

	s.mockTBRepo.On("ApplyReviewDecision", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineManual &&
				updated.MappedAccountCode == "1200" &&
				updated.MappingMethod == domain.MethodManual &&
				updated.MappingConfidence == 1.0
		}),
		int64(3),
		mock.MatchedBy(func(reviewed *domain.MappingSuggestion) bool {
			return reviewed.ReviewStatus == domain.ReviewOverridden &&
				reviewed.ChosenAccountCode == "1200" &&
				reviewed.IsDivergent
		}),
		mock.MatchedBy(func(history *domain.MappingHistory) bool {
			return history != nil &&
				history.AccountCode == "1200" &&
				history.Method == domain.MethodManual &&
				history.SuggestionID == "sug-1"
		}),
	).Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.MatchedBy(func(event domain.ReviewDecisionEvent) bool {
		return event.Decision == domain.ReviewOverridden && event.IsDivergent
	})).Return(nil).Once()

	updated, err := s.service.ManualMap(ctx, testFirmID, testLineID, "1200", 3, testReviewer)

	s.Require().NoError(err)
	s.Equal(domain.LineManual, updated.Status)
	s.mockTBRepo.AssertExpectations(s.T())
	s.mockFeed.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestManualMap_WithoutSuggestion() {
	ctx := context.Background()
	line := s.suggestedLine(1)
	line.Status = domain.LineUnmapped
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(line, nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockCOASvc.On("GetAccountByCode", ctx, "1200").Return(&domain.Account{
		AccountID: "a4", Code: "1200", Name: "Accounts Receivable", IsLeaf: true, IsActive: true,
	}, nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(nil, apperrors.ErrNotFound).Once()

	s.mockTBRepo.On("ApplyReviewDecision", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineManual && updated.MappedAccountCode == "1200"
		}),
		int64(1),
		(*domain.MappingSuggestion)(nil),
		mock.MatchedBy(func(history *domain.MappingHistory) bool {
			return history != nil && history.SuggestionID == ""
		}),
	).Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.AnythingOfType("domain.ReviewDecisionEvent")).Return(nil).Once()

	updated, err := s.service.ManualMap(ctx, testFirmID, testLineID, "1200", 1, testReviewer)

	s.Require().NoError(err)
	s.Equal(domain.LineManual, updated.Status)
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestManualMap_RejectsNonLeafTarget() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockCOASvc.On("GetAccountByCode", ctx, "1000").Return(&domain.Account{
		AccountID: "a1", Code: "1000", Name: "Assets", IsLeaf: false, IsActive: true,
	}, nil).Once()

	updated, err := s.service.ManualMap(ctx, testFirmID, testLineID, "1000", 3, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "ApplyReviewDecision")
}

func (s *ReviewServiceTestSuite) TestReopenLine_Success() {
	ctx := context.Background()
	line := s.suggestedLine(4)
	line.Status = domain.LineConfirmed
	line.MappedAccountCode = "1120"
	line.MappingConfidence = 0.82
	line.MappingMethod = domain.MethodRule

	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, testReviewer, testFirmID, domain.RoleAdmin).Return(nil).Once()
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(line, nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	confirmed := s.pendingSuggestion()
	confirmed.ReviewStatus = domain.ReviewConfirmed
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(confirmed, nil).Once()

	s.mockTBRepo.On("ReopenLine", ctx,
		mock.MatchedBy(func(updated domain.TrialBalanceLine) bool {
			return updated.Status == domain.LineSuggested &&
				updated.MappedAccountCode == "" &&
				updated.Version == 5
		}),
		"sug-1",
	).Return(nil).Once()

	updated, err := s.service.ReopenLine(ctx, testFirmID, testLineID, testReviewer)

	s.Require().NoError(err)
	s.Equal(domain.LineSuggested, updated.Status)
	s.Equal(int64(5), updated.Version)
	s.Empty(updated.MappedAccountCode)
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *ReviewServiceTestSuite) TestReopenLine_NotTerminal() {
	ctx := context.Background()
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, testReviewer, testFirmID, domain.RoleAdmin).Return(nil).Once()
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()

	updated, err := s.service.ReopenLine(ctx, testFirmID, testLineID, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(updated)
	s.mockTBRepo.AssertNotCalled(s.T(), "ReopenLine")
}

func (s *ReviewServiceTestSuite) TestTrainingFeedFailureDoesNotFailDecision() {
	ctx := context.Background()
	s.expectAuthorized(domain.RoleMember)
	s.mockTBRepo.On("FindLineByID", ctx, testLineID).Return(s.suggestedLine(3), nil).Once()
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(s.activeTrialBalance(), nil).Once()
	s.mockSuggestionRepo.On("FindActiveSuggestionByLineID", ctx, testLineID).Return(s.pendingSuggestion(), nil).Once()
	s.mockTBRepo.On("ApplyReviewDecision", ctx, mock.AnythingOfType("domain.TrialBalanceLine"), int64(3), mock.Anything, mock.Anything).
		Return(nil).Once()

	s.mockFeed.On("PublishReviewDecision", ctx, mock.AnythingOfType("domain.ReviewDecisionEvent")).
		Return(errors.New("kafka: broker unreachable")).Once()

	updated, err := s.service.ConfirmSuggestion(ctx, testFirmID, testLineID, 3, testReviewer)

	s.Require().NoError(err)
	s.Equal(domain.LineConfirmed, updated.Status)
	s.mockFeed.AssertExpectations(s.T())
}

func TestReviewServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceTestSuite))
}
