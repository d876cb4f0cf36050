package services

import (
	"context"
	"log/slog"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	FirmAuthorizer portssvc.FirmAuthorizerSvc
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		// Return a default logger if not found in context
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// AuthorizeUser checks if a user has the required role for a firm
func (s *BaseService) AuthorizeUser(ctx context.Context, userID, firmID string, requiredRole domain.FirmRole) error {
	if s.FirmAuthorizer != nil {
		return s.FirmAuthorizer.AuthorizeUserAction(ctx, userID, firmID, requiredRole)
	}
	// No authorizer means the service is wired for trusted callers (admin CLI,
	// tests); grant and leave a trace.
	s.LogDebug(ctx, "No firm authorizer provided, access granted by default",
		slog.String("user_id", userID),
		slog.String("firm_id", firmID),
		slog.String("required_role", string(requiredRole)))
	return nil
}
