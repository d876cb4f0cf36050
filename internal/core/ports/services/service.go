package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	COA          COASvcFacade
	Rule         RuleSvcFacade
	TrialBalance TrialBalanceSvcFacade
	Suggestion   SuggestionSvcFacade
	Review       ReviewSvc
	History      HistorySvc
	Firm         FirmSvcFacade
	User         UserSvcFacade
	APIToken     APITokenSvc
}
