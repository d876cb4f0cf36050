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

// --- Mock AccountRepository (reader + writer facade) ---
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	var account *domain.Account
	if args.Get(0) != nil {
		account = args.Get(0).(*domain.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountRepository) ListChildren(ctx context.Context, parentCode string) ([]domain.Account, error) {
	args := m.Called(ctx, parentCode)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountRepository) HasConfirmedMappingsForCodes(ctx context.Context, codes []string) (bool, error) {
	args := m.Called(ctx, codes)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account, flipParentLeaf bool) error {
	args := m.Called(ctx, account, flipParentLeaf)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveAccounts(ctx context.Context, accounts []domain.Account, clearLeafCodes []string) error {
	args := m.Called(ctx, accounts, clearLeafCodes)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, code string, userID string, now time.Time) error {
	args := m.Called(ctx, code, userID, now)
	return args.Error(0)
}

// --- Mock PlatformAuthorizer ---
type MockPlatformAuthorizer struct {
	mock.Mock
}

func (m *MockPlatformAuthorizer) AuthorizePlatformAdmin(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Suite ---
type COAServiceTestSuite struct {
	suite.Suite
	mockRepo         *MockAccountRepository
	mockPlatformAuth *MockPlatformAuthorizer
	service          portssvc.COASvcFacade
}

func (s *COAServiceTestSuite) SetupTest() {
	s.mockRepo = new(MockAccountRepository)
	s.mockPlatformAuth = new(MockPlatformAuthorizer)
	s.service = services.NewCOAService(s.mockRepo, s.mockPlatformAuth)
}

func (s *COAServiceTestSuite) expectPlatformAdmin(userID string) {
	s.mockPlatformAuth.On("AuthorizePlatformAdmin", mock.Anything, userID).Return(nil).Once()
}

func (s *COAServiceTestSuite) assetsRoot() *domain.Account {
	return &domain.Account{
		AccountID: "a1", Code: "1000", Name: "Assets",
		AccountType: domain.Asset, Level: 1, IsLeaf: false,
		NormalBalance: domain.NormalDebit, IsActive: true,
	}
}

func (s *COAServiceTestSuite) TestCreateAccount_RootLevel() {
	ctx := context.Background()
	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(nil, apperrors.ErrNotFound).Once()
	s.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(account domain.Account) bool {
		return account.Code == "1000" && account.Level == 1 && account.IsActive && account.AccountID != ""
	}), false).Return(nil).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1000", Name: "Assets", AccountType: domain.Asset,
		NormalBalance: domain.NormalDebit, IsLeaf: false,
	}, "admin-1")

	s.Require().NoError(err)
	s.Equal(1, account.Level)
	s.Empty(account.ParentCode)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *COAServiceTestSuite) TestCreateAccount_UnderUnmappedLeafParent() {
	ctx := context.Background()
	parent := s.assetsRoot()
	parent.IsLeaf = true

	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1100").Return(nil, apperrors.ErrNotFound).Once()
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(parent, nil).Once()
	s.mockRepo.On("HasConfirmedMappingsForCodes", ctx, []string{"1000"}).Return(false, nil).Once()
	// The parent loses its leaf flag in the same transaction.
	s.mockRepo.On("SaveAccount", ctx, mock.MatchedBy(func(account domain.Account) bool {
		return account.Code == "1100" && account.Level == 2 && account.ParentCode == "1000"
	}), true).Return(nil).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1100", Name: "Cash", AccountType: domain.Asset,
		ParentCode: "1000", NormalBalance: domain.NormalDebit, IsLeaf: true,
	}, "admin-1")

	s.Require().NoError(err)
	s.Equal(2, account.Level)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *COAServiceTestSuite) TestCreateAccount_DuplicateCode() {
	ctx := context.Background()
	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(s.assetsRoot(), nil).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1000", Name: "Assets", AccountType: domain.Asset, NormalBalance: domain.NormalDebit,
	}, "admin-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrDuplicate)
	s.Nil(account)
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccount")
}

func (s *COAServiceTestSuite) TestCreateAccount_MappedLeafParentFrozen() {
	ctx := context.Background()
	parent := s.assetsRoot()
	parent.IsLeaf = true

	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1100").Return(nil, apperrors.ErrNotFound).Once()
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(parent, nil).Once()
	s.mockRepo.On("HasConfirmedMappingsForCodes", ctx, []string{"1000"}).Return(true, nil).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1100", Name: "Cash", AccountType: domain.Asset,
		ParentCode: "1000", NormalBalance: domain.NormalDebit, IsLeaf: true,
	}, "admin-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrImmutable)
	s.Nil(account)
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccount")
}

func (s *COAServiceTestSuite) TestCreateAccount_UnknownParent() {
	ctx := context.Background()
	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1100").Return(nil, apperrors.ErrNotFound).Once()
	s.mockRepo.On("FindAccountByCode", ctx, "9999").Return(nil, apperrors.ErrNotFound).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1100", Name: "Cash", AccountType: domain.Asset,
		ParentCode: "9999", NormalBalance: domain.NormalDebit,
	}, "admin-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(account)
}

func (s *COAServiceTestSuite) TestCreateAccount_NonAdminForbidden() {
	ctx := context.Background()
	s.mockPlatformAuth.On("AuthorizePlatformAdmin", mock.Anything, "member-1").
		Return(apperrors.ErrForbidden).Once()

	account, err := s.service.CreateAccount(ctx, dto.CreateAccountRequest{
		Code: "1000", Name: "Assets", AccountType: domain.Asset, NormalBalance: domain.NormalDebit,
	}, "member-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(account)
	s.mockRepo.AssertNotCalled(s.T(), "FindAccountByCode")
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccount")
}

func (s *COAServiceTestSuite) TestDeactivateAccount_NonAdminForbidden() {
	ctx := context.Background()
	s.mockPlatformAuth.On("AuthorizePlatformAdmin", mock.Anything, "member-1").
		Return(apperrors.ErrForbidden).Once()

	err := s.service.DeactivateAccount(ctx, "1110", "member-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.mockRepo.AssertNotCalled(s.T(), "DeactivateAccount")
}

func (s *COAServiceTestSuite) TestImportAccounts_NonAdminForbidden() {
	ctx := context.Background()
	s.mockPlatformAuth.On("AuthorizePlatformAdmin", mock.Anything, "member-1").
		Return(apperrors.ErrForbidden).Once()

	accounts, err := s.service.ImportAccounts(ctx, dto.ImportAccountsRequest{
		Accounts: []dto.CreateAccountRequest{
			{Code: "1000", Name: "Assets", AccountType: domain.Asset, NormalBalance: domain.NormalDebit},
		},
	}, "member-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.Nil(accounts)
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccounts")
}

func (s *COAServiceTestSuite) TestUpdateAccount_MutableFieldsOnly() {
	ctx := context.Background()
	existing := s.assetsRoot()
	newName := "Total Assets"
	newTag := "us-gaap:Assets"

	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(existing, nil).Once()
	s.mockRepo.On("UpdateAccount", ctx, mock.MatchedBy(func(account domain.Account) bool {
		return account.Name == "Total Assets" && account.ConceptTag == "us-gaap:Assets" &&
			account.Code == "1000" && account.LastUpdatedBy == "admin-1"
	})).Return(nil).Once()

	account, err := s.service.UpdateAccount(ctx, "1000", dto.UpdateAccountRequest{
		Name: &newName, ConceptTag: &newTag,
	}, "admin-1")

	s.Require().NoError(err)
	s.Equal("Total Assets", account.Name)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *COAServiceTestSuite) TestDeactivateAccount_Success() {
	ctx := context.Background()
	leaf := s.assetsRoot()
	leaf.Code = "1110"
	leaf.IsLeaf = true

	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1110").Return(leaf, nil).Once()
	s.mockRepo.On("ListChildren", ctx, "1110").Return(nil, nil).Once()
	s.mockRepo.On("DeactivateAccount", ctx, "1110", "admin-1", mock.AnythingOfType("time.Time")).Return(nil).Once()

	err := s.service.DeactivateAccount(ctx, "1110", "admin-1")

	s.Require().NoError(err)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *COAServiceTestSuite) TestDeactivateAccount_ActiveChildBlocks() {
	ctx := context.Background()
	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("FindAccountByCode", ctx, "1000").Return(s.assetsRoot(), nil).Once()
	s.mockRepo.On("ListChildren", ctx, "1000").Return([]domain.Account{
		{Code: "1100", Name: "Cash", IsActive: true},
	}, nil).Once()

	err := s.service.DeactivateAccount(ctx, "1000", "admin-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockRepo.AssertNotCalled(s.T(), "DeactivateAccount")
}

func (s *COAServiceTestSuite) TestImportAccounts_ParentBeforeChild() {
	ctx := context.Background()
	// Pre-existing mapped-free leaf root gains children from the batch.
	existingLeaf := s.assetsRoot()
	existingLeaf.IsLeaf = true

	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("ListAccounts", ctx).Return([]domain.Account{*existingLeaf}, nil).Once()
	s.mockRepo.On("HasConfirmedMappingsForCodes", ctx, []string{"1000"}).Return(false, nil).Once()
	s.mockRepo.On("SaveAccounts", ctx,
		mock.MatchedBy(func(accounts []domain.Account) bool {
			return len(accounts) == 2 &&
				accounts[0].Code == "1100" && accounts[0].Level == 2 &&
				accounts[1].Code == "1110" && accounts[1].Level == 3
		}),
		[]string{"1000"},
	).Return(nil).Once()

	accounts, err := s.service.ImportAccounts(ctx, dto.ImportAccountsRequest{
		Accounts: []dto.CreateAccountRequest{
			{Code: "1100", Name: "Cash", AccountType: domain.Asset, ParentCode: "1000", NormalBalance: domain.NormalDebit, IsLeaf: false},
			{Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1100", NormalBalance: domain.NormalDebit, IsLeaf: true},
		},
	}, "admin-1")

	s.Require().NoError(err)
	s.Len(accounts, 2)
	s.mockRepo.AssertExpectations(s.T())
}

func (s *COAServiceTestSuite) TestImportAccounts_OrphanRowRejected() {
	ctx := context.Background()
	s.expectPlatformAdmin("admin-1")
	s.mockRepo.On("ListAccounts", ctx).Return([]domain.Account{}, nil).Once()

	accounts, err := s.service.ImportAccounts(ctx, dto.ImportAccountsRequest{
		Accounts: []dto.CreateAccountRequest{
			{Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1100", NormalBalance: domain.NormalDebit, IsLeaf: true},
		},
	}, "admin-1")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.Nil(accounts)
	s.mockRepo.AssertNotCalled(s.T(), "SaveAccounts")
}

func (s *COAServiceTestSuite) TestTaxonomy_SnapshotsRepositoryState() {
	ctx := context.Background()
	s.mockRepo.On("ListAccounts", ctx).Return([]domain.Account{
		*s.assetsRoot(),
		{AccountID: "a2", Code: "1110", Name: "Operating Cash", ParentCode: "1000", Level: 2, IsLeaf: true, IsActive: true},
	}, nil).Once()

	tax, err := s.service.Taxonomy(ctx)

	s.Require().NoError(err)
	s.Equal(2, tax.Len())
	s.True(tax.IsMappable("1110"))
	s.False(tax.IsMappable("1000"))
	s.mockRepo.AssertExpectations(s.T())
}

func TestCOAServiceTestSuite(t *testing.T) {
	suite.Run(t, new(COAServiceTestSuite))
}
