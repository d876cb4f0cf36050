package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/ledgermap/ledgermap_backend/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	ruleRepo := newPgxRuleRepository(dbPool)
	trialBalanceRepo := newPgxTrialBalanceRepository(dbPool)
	suggestionRepo := newPgxSuggestionRepository(dbPool)
	historyRepo := newPgxHistoryRepository(dbPool)
	firmRepo := newPgxFirmRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	apiTokenRepo := newPgxAPITokenRepository(dbPool)

	return portsrepo.RepositoryProvider{
		AccountRepo:      accountRepo,
		RuleRepo:         ruleRepo,
		TrialBalanceRepo: trialBalanceRepo,
		SuggestionRepo:   suggestionRepo,
		HistoryRepo:      historyRepo,
		FirmRepo:         firmRepo,
		UserRepo:         userRepo,
		APITokenRepo:     apiTokenRepo,
	}
}
