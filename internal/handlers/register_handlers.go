package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledgermap/ledgermap_backend/cmd/docs"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
	"github.com/ledgermap/ledgermap_backend/internal/platform/config"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// accountCodePattern matches canonical account codes: alphanumeric with
// dots, underscores and hyphens, no whitespace.
var accountCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
) {
	registerCustomValidators()

	// Health and root banner routes (public)
	registerHomeRoutes(r)

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services)

	// Swagger routes (conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// registerCustomValidators installs domain validations on gin's binding validator.
func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("acctcode", func(fl validator.FieldLevel) bool {
			return accountCodePattern.MatchString(fl.Field().String())
		})
	}
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
) {
	// API tokens authenticate sync agents before the JWT middleware runs;
	// requests without an x-api-key fall through to JWT validation.
	v1 := r.Group("/api/v1",
		middleware.APITokenAuth(service.APIToken),
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
	)

	// Delegate route registration to specific handlers, passing required services
	RegisterAccountRoutes(v1, service.COA)
	RegisterUserRoutes(v1, service.User)
	registerFirmRoutes(v1, service.Firm)
	RegisterAPITokenRoutes(v1, service.APIToken)

	// Everything below is scoped to a firm the caller must be a member of
	firm := v1.Group("/firms/:firm_id")
	{
		registerTrialBalanceRoutes(firm, service.TrialBalance, service.Suggestion)
		registerReviewRoutes(firm, service.TrialBalance, service.Review, service.Suggestion)
		registerRuleRoutes(firm, service.Rule)
		registerHistoryRoutes(firm, service.History)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	// Swagger setup
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
