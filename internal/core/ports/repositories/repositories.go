package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	AccountRepo      AccountRepositoryFacade
	RuleRepo         RuleRepositoryFacade
	TrialBalanceRepo TrialBalanceRepositoryFacade
	SuggestionRepo   SuggestionRepositoryFacade
	HistoryRepo      HistoryRepositoryFacade
	FirmRepo         FirmRepositoryFacade
	UserRepo         UserRepositoryFacade
	APITokenRepo     APITokenRepository
}
