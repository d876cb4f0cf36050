package services

import (
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/platform/config"
	"github.com/ledgermap/ledgermap_backend/internal/utils"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	classifier portssvc.ClassifierClient,
	trainingFeed portssvc.TrainingFeedPublisher,
	posthogClient *utils.PosthogClientWrapper,
) *portssvc.ServiceContainer {
	// Create the container structure first
	container := &portssvc.ServiceContainer{}

	// Initialize firm service first since nearly every other service depends
	// on its membership authorizer
	container.Firm = NewFirmService(repos.FirmRepo)
	authorizer := portssvc.FirmAuthorizerSvc(container.Firm)

	// The user service doubles as the platform-admin authorizer gating
	// canonical chart mutations
	container.User = NewUserService(repos.UserRepo)

	container.COA = NewCOAService(repos.AccountRepo, container.User)
	container.Rule = NewRuleService(repos.RuleRepo, container.COA, authorizer)

	container.TrialBalance = NewTrialBalanceService(
		repos.TrialBalanceRepo,
		repos.SuggestionRepo,
		container.COA,
		authorizer,
		cfg.BalanceTolerance,
		cfg.MaterialityThreshold,
	)

	// Engine components are assembled here so all tuning flows from config
	historyMatcher := NewHistoryMatcher(repos.HistoryRepo, cfg.HistoryHalfLifeDays)
	mlAdapter := NewMLAdapter(classifier)
	ranker := NewCandidateRanker(
		cfg.RankerRuleWeight,
		cfg.RankerHistoryWeight,
		cfg.RankerMLWeight,
		cfg.RankerConvergenceBonus,
		cfg.AlternativesCap,
	)

	container.Suggestion = NewSuggestionService(
		repos.TrialBalanceRepo,
		repos.SuggestionRepo,
		repos.RuleRepo,
		container.COA,
		authorizer,
		historyMatcher,
		mlAdapter,
		ranker,
		cfg.SuggestionWorkers,
		cfg.SuggestionBatchTimeout,
		cfg.RuleMatchCap,
		cfg.ClassifierModelVersion,
	)

	container.Review = NewReviewService(
		repos.TrialBalanceRepo,
		repos.SuggestionRepo,
		container.COA,
		authorizer,
		trainingFeed,
		posthogClient,
	)

	container.History = NewHistoryService(repos.HistoryRepo, authorizer)
	container.APIToken = NewAPITokenService(repos.APITokenRepo, container.User)

	return container
}
