package services

import (
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/platform/config"
)

// ContainerDeps carries the adapter implementations built outside the service
// layer: the queue client, the payment provider and the rate cache.
type ContainerDeps struct {
	Enqueuer  portssvc.SettlementEnqueuer
	Provider  portssvc.PaymentProvider
	RateCache portssvc.RateCache
}

// NewServiceContainer wires all services with their dependencies.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, deps ContainerDeps) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Account = NewAccountService(repos.AccountRepo, repos.CurrencyRepo, repos.UserRepo)
	container.Ledger = NewLedgerService(repos.LedgerRepo, repos.AccountRepo)
	container.Reservation = NewReservationService(repos.LedgerRepo)
	container.Audit = NewAuditService(repos.AuditRepo)

	// The stored-rate repository satisfies the rate provider contract
	// directly; live feeds plug in the same way.
	container.Conversion = NewConversionService(repos.ExchangeRateRepo, deps.RateCache, repos.CurrencyRepo)

	container.Settlement = NewSettlementService(
		repos.TransactionRepo,
		repos.LedgerRepo,
		container.Reservation,
		container.Audit,
		deps.Provider,
	)
	container.Coordinator = NewCoordinatorService(
		repos.TransactionRepo,
		repos.CurrencyRepo,
		container.Account,
		container.Reservation,
		container.Conversion,
		container.Audit,
		deps.Enqueuer,
		container.Settlement,
		cfg.ReservationTTL,
	)
	container.Recovery = NewRecoveryService(
		repos.TransactionRepo,
		container.Reservation,
		container.Audit,
		deps.Enqueuer,
		cfg.ReservationTTL,
		cfg.SweepBatchSize,
	)

	return container
}
