package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/core/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TrialBalanceServiceTestSuite struct {
	suite.Suite
	mockTBRepo         *MockTrialBalanceRepository
	mockSuggestionRepo *MockSuggestionRepository
	mockCOASvc         *MockCOAService
	mockAuthorizer     *MockFirmAuthorizer
	service            portssvc.TrialBalanceSvcFacade
}

func (s *TrialBalanceServiceTestSuite) SetupTest() {
	s.mockTBRepo = new(MockTrialBalanceRepository)
	s.mockSuggestionRepo = new(MockSuggestionRepository)
	s.mockCOASvc = new(MockCOAService)
	s.mockAuthorizer = new(MockFirmAuthorizer)
	s.service = services.NewTrialBalanceService(
		s.mockTBRepo, s.mockSuggestionRepo, s.mockCOASvc, s.mockAuthorizer,
		decimal.RequireFromString("0.01"),  // balance tolerance
		decimal.RequireFromString("500.0"), // materiality threshold
	)
}

func (s *TrialBalanceServiceTestSuite) expectMember(userID string) {
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, userID, testFirmID, domain.RoleMember).Return(nil).Once()
}

func (s *TrialBalanceServiceTestSuite) expectReadOnly(userID string) {
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, userID, testFirmID, domain.RoleReadOnly).Return(nil).Once()
}

func (s *TrialBalanceServiceTestSuite) importRequest(lines ...dto.ImportLineRequest) dto.ImportTrialBalanceRequest {
	return dto.ImportTrialBalanceRequest{
		EngagementID: "eng-1",
		PeriodEnd:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		SourceSystem: "quickbooks",
		CurrencyCode: "USD",
		Lines:        lines,
	}
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_Balanced() {
	ctx := context.Background()
	s.expectMember("user-1")

	s.mockTBRepo.On("SaveTrialBalance", ctx,
		mock.MatchedBy(func(tb domain.TrialBalance) bool {
			return tb.FirmID == testFirmID &&
				tb.IsBalanced &&
				tb.Difference.IsZero() &&
				tb.LineCount == 2 &&
				tb.Status == domain.TBActive
		}),
		mock.MatchedBy(func(lines []domain.TrialBalanceLine) bool {
			return len(lines) == 2 &&
				lines[0].Status == domain.LineUnmapped &&
				lines[0].Version == 1 &&
				lines[0].NormalizedSource == "petty cash" &&
				lines[0].Net.Equal(decimal.RequireFromString("750")) &&
				lines[0].IsMaterial &&
				lines[1].Net.Equal(decimal.RequireFromString("-750")) &&
				lines[1].IsMaterial
		}),
		mock.AnythingOfType("[]domain.DeclaredSubtotal"),
	).Return(nil).Once()

	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceCode: "10100", SourceName: "Petty Cash", Debit: decimal.RequireFromString("750")},
		dto.ImportLineRequest{LineNumber: 2, SourceCode: "20100", SourceName: "Accounts Payable", Credit: decimal.RequireFromString("750")},
	), "user-1")

	s.Require().NoError(err)
	s.True(tb.IsBalanced)
	s.Equal(2, tb.LineCount)
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_ImbalanceFlaggedNotRejected() {
	ctx := context.Background()
	s.expectMember("user-1")

	s.mockTBRepo.On("SaveTrialBalance", ctx,
		mock.MatchedBy(func(tb domain.TrialBalance) bool {
			return !tb.IsBalanced && tb.Difference.Equal(decimal.RequireFromString("0.02"))
		}),
		mock.AnythingOfType("[]domain.TrialBalanceLine"),
		mock.AnythingOfType("[]domain.DeclaredSubtotal"),
	).Return(nil).Once()

	// 1000.02 against 1000.00 with tolerance 0.01: recorded, flagged, kept.
	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.RequireFromString("1000.02")},
		dto.ImportLineRequest{LineNumber: 2, SourceName: "Loan", Credit: decimal.RequireFromString("1000.00")},
	), "user-1")

	s.Require().NoError(err)
	s.False(tb.IsBalanced)
	s.Equal("0.02", tb.Difference.String())
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_DifferenceAtToleranceBalances() {
	ctx := context.Background()
	s.expectMember("user-1")

	s.mockTBRepo.On("SaveTrialBalance", ctx,
		mock.MatchedBy(func(tb domain.TrialBalance) bool {
			return tb.IsBalanced && tb.Difference.Equal(decimal.RequireFromString("0.01"))
		}),
		mock.AnythingOfType("[]domain.TrialBalanceLine"),
		mock.AnythingOfType("[]domain.DeclaredSubtotal"),
	).Return(nil).Once()

	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.RequireFromString("1000.01")},
		dto.ImportLineRequest{LineNumber: 2, SourceName: "Loan", Credit: decimal.RequireFromString("1000.00")},
	), "user-1")

	s.Require().NoError(err)
	s.True(tb.IsBalanced)
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_DuplicateLineNumbers() {
	ctx := context.Background()
	s.expectMember("user-1")

	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.NewFromInt(100)},
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Loan", Credit: decimal.NewFromInt(100)},
	), "user-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(tb)
	s.mockTBRepo.AssertNotCalled(s.T(), "SaveTrialBalance")
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_StructurallyInvalidLine() {
	ctx := context.Background()
	s.expectMember("user-1")

	// A line carrying both sides rejects the whole batch.
	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(50)},
	), "user-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(tb)
	s.mockTBRepo.AssertNotCalled(s.T(), "SaveTrialBalance")
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_NegativeAmountRejected() {
	ctx := context.Background()
	s.expectMember("user-1")

	tb, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.NewFromInt(-5)},
	), "user-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(tb)
}

func (s *TrialBalanceServiceTestSuite) TestImportTrialBalance_MaterialityFlag() {
	ctx := context.Background()
	s.expectMember("user-1")

	s.mockTBRepo.On("SaveTrialBalance", ctx,
		mock.AnythingOfType("domain.TrialBalance"),
		mock.MatchedBy(func(lines []domain.TrialBalanceLine) bool {
			return len(lines) == 2 && !lines[0].IsMaterial && lines[1].IsMaterial
		}),
		mock.AnythingOfType("[]domain.DeclaredSubtotal"),
	).Return(nil).Once()

	_, err := s.service.ImportTrialBalance(ctx, testFirmID, s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Stamps", Debit: decimal.RequireFromString("499.99")},
		dto.ImportLineRequest{LineNumber: 2, SourceName: "Loan", Credit: decimal.RequireFromString("500.00")},
	), "user-1")

	s.Require().NoError(err)
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *TrialBalanceServiceTestSuite) TestSupersedeTrialBalance_Success() {
	ctx := context.Background()
	s.expectMember("user-1")

	s.mockTBRepo.On("FindTrialBalanceByID", ctx, "tb-old").Return(&domain.TrialBalance{
		TrialBalanceID: "tb-old", FirmID: testFirmID, Status: domain.TBActive,
	}, nil).Once()
	s.mockTBRepo.On("HasConfirmedLines", ctx, "tb-old").Return(true, nil).Once()
	s.mockTBRepo.On("SupersedeTrialBalance", ctx, "tb-old",
		mock.MatchedBy(func(tb domain.TrialBalance) bool {
			return tb.Status == domain.TBActive && tb.TrialBalanceID != "tb-old"
		}),
		mock.AnythingOfType("[]domain.TrialBalanceLine"),
		mock.AnythingOfType("[]domain.DeclaredSubtotal"),
	).Return(nil).Once()

	tb, err := s.service.SupersedeTrialBalance(ctx, testFirmID, "tb-old", s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.NewFromInt(100)},
		dto.ImportLineRequest{LineNumber: 2, SourceName: "Loan", Credit: decimal.NewFromInt(100)},
	), "user-1")

	s.Require().NoError(err)
	s.NotEqual("tb-old", tb.TrialBalanceID)
	s.mockTBRepo.AssertExpectations(s.T())
}

func (s *TrialBalanceServiceTestSuite) TestSupersedeTrialBalance_AlreadySuperseded() {
	ctx := context.Background()
	s.expectMember("user-1")
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, "tb-old").Return(&domain.TrialBalance{
		TrialBalanceID: "tb-old", FirmID: testFirmID, Status: domain.TBSuperseded,
	}, nil).Once()

	tb, err := s.service.SupersedeTrialBalance(ctx, testFirmID, "tb-old", s.importRequest(
		dto.ImportLineRequest{LineNumber: 1, SourceName: "Cash", Debit: decimal.NewFromInt(100)},
	), "user-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(tb)
	s.mockTBRepo.AssertNotCalled(s.T(), "SupersedeTrialBalance")
}

func (s *TrialBalanceServiceTestSuite) TestGetMappingProgress_ZeroFilled() {
	ctx := context.Background()
	s.expectReadOnly("user-1")
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(&domain.TrialBalance{
		TrialBalanceID: testTBID, FirmID: testFirmID, Status: domain.TBActive,
	}, nil).Once()
	s.mockTBRepo.On("CountLinesByStatus", ctx, testTBID).Return(map[domain.LineStatus]int{
		domain.LineConfirmed: 3,
		domain.LineManual:    1,
		domain.LineSuggested: 2,
	}, nil).Once()

	progress, err := s.service.GetMappingProgress(ctx, testFirmID, testTBID, "user-1")

	s.Require().NoError(err)
	s.Equal(6, progress.TotalLines)
	s.Equal(4, progress.MappedLines)
	s.Equal(0, progress.CountByStatus[domain.LineUnmapped])
	s.Equal(0, progress.CountByStatus[domain.LineRejected])
	s.Equal(2, progress.CountByStatus[domain.LineSuggested])
}

func (s *TrialBalanceServiceTestSuite) TestValidateTrialBalance_RollupsAndVariances() {
	ctx := context.Background()
	s.expectReadOnly("user-1")
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(&domain.TrialBalance{
		TrialBalanceID: testTBID, FirmID: testFirmID, Status: domain.TBActive,
		TotalDebits:  decimal.RequireFromString("900"),
		TotalCredits: decimal.RequireFromString("900"),
		Difference:   decimal.Zero,
	}, nil).Once()
	s.mockTBRepo.On("SumMappedNetByAccount", ctx, testTBID).Return([]domain.MappedAccountNet{
		{AccountCode: "1110", Net: decimal.RequireFromString("600"), LineCount: 2},
		{AccountCode: "1120", Net: decimal.RequireFromString("300"), LineCount: 1},
	}, nil).Once()
	s.mockTBRepo.On("ListDeclaredSubtotals", ctx, testTBID).Return([]domain.DeclaredSubtotal{
		{TrialBalanceID: testTBID, AccountCode: "1000", Amount: decimal.RequireFromString("850")},
		{TrialBalanceID: testTBID, AccountCode: "9999", Amount: decimal.RequireFromString("10")},
	}, nil).Once()
	s.mockCOASvc.On("Taxonomy", ctx).Return(rankerTaxonomy(), nil).Once()
	s.mockTBRepo.On("CountLinesByStatus", ctx, testTBID).Return(map[domain.LineStatus]int{
		domain.LineConfirmed: 3,
		domain.LineUnmapped:  2,
	}, nil).Once()

	report, err := s.service.ValidateTrialBalance(ctx, testFirmID, testTBID, "user-1")

	s.Require().NoError(err)
	s.True(report.Balance.IsBalanced)
	s.Equal(2, report.UnmappedLines)

	// Rows in code order: the 1000 rollup with its declared variance, then the
	// typoed declared code surfacing with a zero computed side. Leaf accounts
	// without declared amounts stay out of the report.
	s.Require().Len(report.Rollups, 2)

	s.Equal("1000", report.Rollups[0].AccountCode)
	s.Equal("900", report.Rollups[0].ComputedNet.String())
	s.Equal(3, report.Rollups[0].MappedLineCount)
	s.Require().NotNil(report.Rollups[0].Variance)
	s.Equal("50", report.Rollups[0].Variance.String())
	s.True(report.Rollups[0].RequiresReview)

	s.Equal("9999", report.Rollups[1].AccountCode)
	s.True(report.Rollups[1].ComputedNet.IsZero())
	s.Require().NotNil(report.Rollups[1].Variance)
	s.Equal("-10", report.Rollups[1].Variance.String())
	s.True(report.Rollups[1].RequiresReview)
}

func (s *TrialBalanceServiceTestSuite) TestGetTrialBalanceByID_OtherFirmHidden() {
	ctx := context.Background()
	s.expectReadOnly("user-1")
	s.mockTBRepo.On("FindTrialBalanceByID", ctx, testTBID).Return(&domain.TrialBalance{
		TrialBalanceID: testTBID, FirmID: "firm-2", Status: domain.TBActive,
	}, nil).Once()

	tb, err := s.service.GetTrialBalanceByID(ctx, testFirmID, testTBID, "user-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.Nil(tb)
}

func TestTrialBalanceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TrialBalanceServiceTestSuite))
}
