package repositories

// RepositoryProvider bundles all repository facades for wiring into the
// service container.
type RepositoryProvider struct {
	AccountRepo      AccountRepositoryFacade
	TransactionRepo  TransactionRepositoryFacade
	LedgerRepo       LedgerRepositoryFacade
	ExchangeRateRepo ExchangeRateRepositoryFacade
	AuditRepo        AuditRepositoryFacade
	UserRepo         UserRepositoryFacade
	CurrencyRepo     CurrencyRepositoryFacade
}
