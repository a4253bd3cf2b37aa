package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	transactionRepo := newPgxTransactionRepository(dbPool)
	ledgerRepo := newPgxLedgerRepository(dbPool)
	exchangeRateRepo := newPgxExchangeRateRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)
	userRepo := newPgxUserRepository(dbPool)
	currencyRepo := newPgxCurrencyRepository(dbPool)

	return portsrepo.RepositoryProvider{
		AccountRepo:      accountRepo,
		TransactionRepo:  transactionRepo,
		LedgerRepo:       ledgerRepo,
		ExchangeRateRepo: exchangeRateRepo,
		AuditRepo:        auditRepo,
		UserRepo:         userRepo,
		CurrencyRepo:     currencyRepo,
	}
}
