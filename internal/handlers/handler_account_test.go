package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/ledgermap/ledgermap_backend/internal/handlers"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock COAService ---
type MockCOAService struct {
	mock.Mock
}

func (m *MockCOAService) GetAccountByCode(ctx context.Context, code string) (*domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockCOAService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockCOAService) ListChildren(ctx context.Context, code string) ([]domain.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockCOAService) Taxonomy(ctx context.Context) (*domain.Taxonomy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Taxonomy), args.Error(1)
}

func (m *MockCOAService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockCOAService) UpdateAccount(ctx context.Context, code string, req dto.UpdateAccountRequest, updaterUserID string) (*domain.Account, error) {
	args := m.Called(ctx, code, req, updaterUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockCOAService) DeactivateAccount(ctx context.Context, code string, deleterUserID string) error {
	args := m.Called(ctx, code, deleterUserID)
	return args.Error(0)
}

func (m *MockCOAService) ImportAccounts(ctx context.Context, req dto.ImportAccountsRequest, creatorUserID string) ([]domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.COASvcFacade = (*MockCOAService)(nil)

// --- Test Suite ---
type AccountHandlerTestSuite struct {
	suite.Suite
	router         *gin.Engine
	mockCOAService *MockCOAService
	jwtSecret      string
}

// generateTestToken creates a dummy JWT for testing.
func (suite *AccountHandlerTestSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "ledgermap-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedString, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signedString
}

func (suite *AccountHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret, ""))

	suite.mockCOAService = new(MockCOAService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterAccountRoutes(v1, suite.mockCOAService)
}

func (suite *AccountHandlerTestSuite) authedRequest(method, url string, body []byte) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(uuid.NewString()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req
}

// --- Test Cases ---

func (suite *AccountHandlerTestSuite) TestListAccounts_Success() {
	expected := []domain.Account{
		{AccountID: uuid.NewString(), Code: "1000", Name: "Assets", AccountType: domain.Asset, Level: 1, NormalBalance: domain.NormalDebit, IsActive: true},
		{AccountID: uuid.NewString(), Code: "1110", Name: "Operating Cash", AccountType: domain.Asset, ParentCode: "1000", Level: 2, IsLeaf: true, NormalBalance: domain.NormalDebit, IsActive: true},
	}
	suite.mockCOAService.On("ListAccounts", mock.Anything).Return(expected, nil).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodGet, "/api/v1/accounts", nil))

	suite.Equal(http.StatusOK, w.Code)

	var body dto.ListAccountsResponse
	err := json.Unmarshal(w.Body.Bytes(), &body)
	suite.NoError(err, "Failed to unmarshal response body")
	suite.Len(body.Accounts, 2)
	suite.Equal("1000", body.Accounts[0].Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestGetAccount_NotFound() {
	suite.mockCOAService.On("GetAccountByCode", mock.Anything, "9999").Return(nil, apperrors.ErrNotFound).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodGet, "/api/v1/accounts/9999", nil))

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{
		Code:          "1120",
		Name:          "Petty Cash",
		AccountType:   domain.Asset,
		ParentCode:    "1100",
		IsLeaf:        true,
		NormalBalance: domain.NormalDebit,
	}
	created := &domain.Account{
		AccountID: uuid.NewString(), Code: "1120", Name: "Petty Cash",
		AccountType: domain.Asset, ParentCode: "1100", Level: 3, IsLeaf: true,
		NormalBalance: domain.NormalDebit, IsActive: true,
	}
	suite.mockCOAService.On("CreateAccount", mock.Anything, req, mock.AnythingOfType("string")).Return(created, nil).Once()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodPost, "/api/v1/accounts", body))

	suite.Equal(http.StatusCreated, w.Code)

	var resp dto.AccountResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("1120", resp.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_DuplicateCode() {
	req := dto.CreateAccountRequest{
		Code:          "1120",
		Name:          "Petty Cash",
		AccountType:   domain.Asset,
		IsLeaf:        true,
		NormalBalance: domain.NormalDebit,
	}
	suite.mockCOAService.On("CreateAccount", mock.Anything, req, mock.AnythingOfType("string")).Return(nil, apperrors.ErrDuplicate).Once()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodPost, "/api/v1/accounts", body))

	suite.Equal(http.StatusConflict, w.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_NonAdminForbidden() {
	req := dto.CreateAccountRequest{
		Code:          "1120",
		Name:          "Petty Cash",
		AccountType:   domain.Asset,
		IsLeaf:        true,
		NormalBalance: domain.NormalDebit,
	}
	// Authenticated but not a platform admin: the service rejects the write.
	suite.mockCOAService.On("CreateAccount", mock.Anything, req, mock.AnythingOfType("string")).
		Return(nil, apperrors.ErrForbidden).Once()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodPost, "/api/v1/accounts", body))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestDeactivateAccount_NonAdminForbidden() {
	suite.mockCOAService.On("DeactivateAccount", mock.Anything, "1110", mock.AnythingOfType("string")).
		Return(apperrors.ErrForbidden).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodDelete, "/api/v1/accounts/1110", nil))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

func (suite *AccountHandlerTestSuite) TestCreateAccount_InvalidBody() {
	// Missing required fields fails binding before the service is touched.
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodPost, "/api/v1/accounts", []byte(`{"code":"1120"}`)))

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockCOAService.AssertNotCalled(suite.T(), "CreateAccount")
}

func (suite *AccountHandlerTestSuite) TestListAccounts_MissingToken() {
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockCOAService.AssertNotCalled(suite.T(), "ListAccounts")
}

func (suite *AccountHandlerTestSuite) TestDeactivateAccount_ActiveChildrenConflict() {
	suite.mockCOAService.On("DeactivateAccount", mock.Anything, "1000", mock.AnythingOfType("string")).
		Return(apperrors.ErrValidation).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.authedRequest(http.MethodDelete, "/api/v1/accounts/1000", nil))

	suite.Equal(http.StatusConflict, w.Code)
	suite.mockCOAService.AssertExpectations(suite.T())
}

// --- Run Test Suite ---
func TestAccountHandler(t *testing.T) {
	suite.Run(t, new(AccountHandlerTestSuite))
}
