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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type HistoryServiceTestSuite struct {
	suite.Suite
	mockHistoryRepo *MockHistoryRepository
	mockAuthorizer  *MockFirmAuthorizer
	service         portssvc.HistorySvc
}

func (s *HistoryServiceTestSuite) SetupTest() {
	s.mockHistoryRepo = new(MockHistoryRepository)
	s.mockAuthorizer = new(MockFirmAuthorizer)
	s.service = services.NewHistoryService(s.mockHistoryRepo, s.mockAuthorizer)
	s.mockAuthorizer.On("AuthorizeUserAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (s *HistoryServiceTestSuite) TestListHistory_ByAccountCode() {
	ctx := context.Background()
	now := time.Now()
	s.mockHistoryRepo.On("ListHistoryByAccountCode", ctx, testFirmID, "1120", 50, (*string)(nil)).
		Return([]domain.MappingHistory{precedent("1120", now)}, (*string)(nil), nil).Once()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{AccountCode: "1120"}, testReviewer)

	s.Require().NoError(err)
	s.Require().Len(resp.Entries, 1)
	s.Equal("1120", resp.Entries[0].AccountCode)
	s.mockHistoryRepo.AssertExpectations(s.T())
}

func (s *HistoryServiceTestSuite) TestListHistory_BySourceText() {
	ctx := context.Background()
	now := time.Now()
	s.mockHistoryRepo.On("FindPrecedents", ctx, testFirmID, "petty cash").
		Return([]domain.MappingHistory{precedent("1120", now), precedent("1110", now)}, nil).Once()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{SourceText: "  Petty CASH "}, testReviewer)

	s.Require().NoError(err)
	s.Len(resp.Entries, 2)
	s.mockHistoryRepo.AssertExpectations(s.T())
}

func (s *HistoryServiceTestSuite) TestListHistory_SourceTextLimited() {
	ctx := context.Background()
	now := time.Now()
	s.mockHistoryRepo.On("FindPrecedents", ctx, testFirmID, "petty cash").
		Return([]domain.MappingHistory{precedent("1120", now), precedent("1110", now), precedent("1200", now)}, nil).Once()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{SourceText: "Petty Cash", Limit: 2}, testReviewer)

	s.Require().NoError(err)
	s.Len(resp.Entries, 2)
}

func (s *HistoryServiceTestSuite) TestListHistory_BothScopesRejected() {
	ctx := context.Background()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{AccountCode: "1120", SourceText: "cash"}, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(resp)
	s.mockHistoryRepo.AssertNotCalled(s.T(), "ListHistoryByAccountCode")
	s.mockHistoryRepo.AssertNotCalled(s.T(), "FindPrecedents")
}

func (s *HistoryServiceTestSuite) TestListHistory_NeitherScopeRejected() {
	ctx := context.Background()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{}, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(resp)
}

func (s *HistoryServiceTestSuite) TestListHistory_SourceNormalizesToEmpty() {
	ctx := context.Background()

	resp, err := s.service.ListHistory(ctx, testFirmID, dto.ListHistoryParams{SourceText: "  ---  "}, testReviewer)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(resp)
	s.mockHistoryRepo.AssertNotCalled(s.T(), "FindPrecedents")
}

func TestHistoryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HistoryServiceTestSuite))
}
