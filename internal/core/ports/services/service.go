package services

// ServiceContainer bundles all service facades for handler and worker wiring.
type ServiceContainer struct {
	User        UserSvcFacade
	Account     AccountSvcFacade
	Ledger      LedgerSvcFacade
	Reservation ReservationSvcFacade
	Coordinator CoordinatorSvcFacade
	Settlement  SettlementSvcFacade
	Conversion  ConversionSvcFacade
	Audit       AuditSvcFacade
	Recovery    RecoverySvcFacade
}
