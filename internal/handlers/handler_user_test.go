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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock UserService ---
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserService) UpdateUser(ctx context.Context, userID string, req dto.UpdateUserRequest, requestingUserID string) (*domain.User, error) {
	args := m.Called(ctx, userID, req, requestingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID string, requestingUserID string) error {
	args := m.Called(ctx, userID, requestingUserID)
	return args.Error(0)
}

func (m *MockUserService) AuthorizePlatformAdmin(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

var _ portssvc.UserSvcFacade = (*MockUserService)(nil)

// --- Test Suite ---
type UserHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	mockUserService *MockUserService
	jwtSecret       string
}

func (suite *UserHandlerTestSuite) generateTestToken(userID string) string {
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

func (suite *UserHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"

	suite.router.Use(middleware.AuthMiddleware(suite.jwtSecret, ""))

	suite.mockUserService = new(MockUserService)

	v1 := suite.router.Group("/api/v1")
	handlers.RegisterUserRoutes(v1, suite.mockUserService)
}

func (suite *UserHandlerTestSuite) requestAs(userID, method, url string, body []byte) *http.Request {
	req, _ := http.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(userID))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- Test Cases ---

func (suite *UserHandlerTestSuite) TestCreateUser_AdminProvisions() {
	req := dto.CreateUserRequest{Name: "Dana Reviewer"}
	created := &domain.User{UserID: "user-new", Name: "Dana Reviewer"}

	suite.mockUserService.On("AuthorizePlatformAdmin", mock.Anything, "ops-1").Return(nil).Once()
	suite.mockUserService.On("CreateUser", mock.Anything, req).Return(created, nil).Once()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("ops-1", http.MethodPost, "/api/v1/users", body))

	suite.Equal(http.StatusCreated, w.Code)

	var resp dto.UserResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("user-new", resp.UserID)
	suite.mockUserService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestCreateUser_NonAdminForbidden() {
	suite.mockUserService.On("AuthorizePlatformAdmin", mock.Anything, "user-1").
		Return(apperrors.ErrForbidden).Once()

	body, _ := json.Marshal(dto.CreateUserRequest{Name: "Dana Reviewer"})
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodPost, "/api/v1/users", body))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockUserService.AssertNotCalled(suite.T(), "CreateUser")
}

func (suite *UserHandlerTestSuite) TestListUsers_NonAdminForbidden() {
	suite.mockUserService.On("AuthorizePlatformAdmin", mock.Anything, "user-1").
		Return(apperrors.ErrForbidden).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodGet, "/api/v1/users", nil))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockUserService.AssertNotCalled(suite.T(), "ListUsers")
}

func (suite *UserHandlerTestSuite) TestGetUser_OwnProfile() {
	suite.mockUserService.On("GetUserByID", mock.Anything, "user-1").
		Return(&domain.User{UserID: "user-1", Name: "Dana Reviewer"}, nil).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodGet, "/api/v1/users/user-1", nil))

	suite.Equal(http.StatusOK, w.Code)
	// Reading one's own profile never consults the platform-admin check.
	suite.mockUserService.AssertNotCalled(suite.T(), "AuthorizePlatformAdmin")
	suite.mockUserService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestGetUser_OtherProfileNeedsAdmin() {
	suite.mockUserService.On("AuthorizePlatformAdmin", mock.Anything, "user-1").
		Return(apperrors.ErrForbidden).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodGet, "/api/v1/users/user-2", nil))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockUserService.AssertNotCalled(suite.T(), "GetUserByID")
}

func (suite *UserHandlerTestSuite) TestUpdateUser_OtherProfileForbidden() {
	suite.mockUserService.On("UpdateUser", mock.Anything, "user-2", mock.AnythingOfType("dto.UpdateUserRequest"), "user-1").
		Return(nil, apperrors.ErrForbidden).Once()

	body, _ := json.Marshal(dto.UpdateUserRequest{})
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodPut, "/api/v1/users/user-2", body))

	suite.Equal(http.StatusForbidden, w.Code)
	suite.mockUserService.AssertExpectations(suite.T())
}

func (suite *UserHandlerTestSuite) TestDeleteUser_OwnProfile() {
	suite.mockUserService.On("DeleteUser", mock.Anything, "user-1", "user-1").Return(nil).Once()

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.requestAs("user-1", http.MethodDelete, "/api/v1/users/user-1", nil))

	suite.Equal(http.StatusNoContent, w.Code)
	suite.mockUserService.AssertExpectations(suite.T())
}

// --- Run Test Suite ---
func TestUserHandler(t *testing.T) {
	suite.Run(t, new(UserHandlerTestSuite))
}
