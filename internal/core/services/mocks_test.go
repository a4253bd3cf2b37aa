package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// errBoom stands in for any unexpected infrastructure failure.
var errBoom = errors.New("boom")

// --- Mock TransactionRepository ---

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateIdempotent(ctx context.Context, txn domain.Transaction) (portsrepo.KeyOutcome, *domain.Transaction, error) {
	args := m.Called(ctx, txn)
	var stored *domain.Transaction
	if args.Get(1) != nil {
		stored = args.Get(1).(*domain.Transaction)
	}
	return args.Get(0).(portsrepo.KeyOutcome), stored, args.Error(2)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	var txn *domain.Transaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*domain.Transaction)
	}
	return txn, args.Error(1)
}

func (m *MockTransactionRepository) TransitionState(ctx context.Context, transactionID string, from, to domain.TransactionState, updatedBy string, at time.Time) error {
	args := m.Called(ctx, transactionID, from, to, updatedBy, at)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetSettlementResult(ctx context.Context, transactionID string, externalReference *string, metadata json.RawMessage, updatedBy string, at time.Time) error {
	args := m.Called(ctx, transactionID, externalReference, metadata, updatedBy, at)
	return args.Error(0)
}

func (m *MockTransactionRepository) SetFailureReason(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error {
	args := m.Called(ctx, transactionID, reason, updatedBy, at)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkReconciliationRequired(ctx context.Context, transactionID string, reason string, updatedBy string, at time.Time) error {
	args := m.Called(ctx, transactionID, reason, updatedBy, at)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindStaleReserved(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	return txns, args.Error(1)
}

// --- Mock LedgerRepository ---

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Reserve(ctx context.Context, reservation domain.Reservation, reservedBy string) error {
	args := m.Called(ctx, reservation, reservedBy)
	return args.Error(0)
}

func (m *MockLedgerRepository) ApplyEntries(ctx context.Context, transactionID string, entries []portsrepo.EntryCommand) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, transactionID, entries)
	var applied []domain.LedgerEntry
	if args.Get(0) != nil {
		applied = args.Get(0).([]domain.LedgerEntry)
	}
	return applied, args.Error(1)
}

func (m *MockLedgerRepository) ReverseAndReleaseHold(ctx context.Context, transactionID string, from domain.TransactionState, updatedBy string, at time.Time) error {
	args := m.Called(ctx, transactionID, from, updatedBy, at)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindReservationByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error) {
	args := m.Called(ctx, transactionID)
	var res *domain.Reservation
	if args.Get(0) != nil {
		res = args.Get(0).(*domain.Reservation)
	}
	return res, args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByAccount(ctx context.Context, accountID string, upToSequence int64) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, accountID, upToSequence)
	var entries []domain.LedgerEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]domain.LedgerEntry)
	}
	return entries, args.Error(1)
}

func (m *MockLedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, transactionID)
	var entries []domain.LedgerEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]domain.LedgerEntry)
	}
	return entries, args.Error(1)
}

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	var acc *domain.Account
	if args.Get(0) != nil {
		acc = args.Get(0).(*domain.Account)
	}
	return acc, args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	var accounts map[string]domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).(map[string]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error) {
	args := m.Called(ctx, ownerUserID)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountRepository) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus, updatedBy string, at time.Time) error {
	args := m.Called(ctx, accountID, status, updatedBy, at)
	return args.Error(0)
}

// --- Mock CurrencyRepository ---

type MockCurrencyRepository struct {
	mock.Mock
}

func (m *MockCurrencyRepository) FindCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	args := m.Called(ctx, code)
	var currency *domain.Currency
	if args.Get(0) != nil {
		currency = args.Get(0).(*domain.Currency)
	}
	return currency, args.Error(1)
}

func (m *MockCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	args := m.Called(ctx)
	var currencies []domain.Currency
	if args.Get(0) != nil {
		currencies = args.Get(0).([]domain.Currency)
	}
	return currencies, args.Error(1)
}

// --- Mock UserRepository ---

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

// --- Mock AuditRepository ---

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) FindAuditEventsByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, transactionID)
	var events []domain.AuditEvent
	if args.Get(0) != nil {
		events = args.Get(0).([]domain.AuditEvent)
	}
	return events, args.Error(1)
}

// --- Mock service facades ---

type MockAccountSvc struct {
	mock.Mock
}

func (m *MockAccountSvc) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	args := m.Called(ctx, req, creatorUserID)
	var acc *domain.Account
	if args.Get(0) != nil {
		acc = args.Get(0).(*domain.Account)
	}
	return acc, args.Error(1)
}

func (m *MockAccountSvc) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	var acc *domain.Account
	if args.Get(0) != nil {
		acc = args.Get(0).(*domain.Account)
	}
	return acc, args.Error(1)
}

func (m *MockAccountSvc) GetAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	var accounts map[string]domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).(map[string]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountSvc) ListAccountsByOwner(ctx context.Context, ownerUserID string) ([]domain.Account, error) {
	args := m.Called(ctx, ownerUserID)
	var accounts []domain.Account
	if args.Get(0) != nil {
		accounts = args.Get(0).([]domain.Account)
	}
	return accounts, args.Error(1)
}

func (m *MockAccountSvc) DeactivateAccount(ctx context.Context, accountID string, updatedBy string) error {
	args := m.Called(ctx, accountID, updatedBy)
	return args.Error(0)
}

func (m *MockAccountSvc) VerifyPIN(ctx context.Context, account *domain.Account, pin string) error {
	args := m.Called(ctx, account, pin)
	return args.Error(0)
}

type MockReservationSvc struct {
	mock.Mock
}

func (m *MockReservationSvc) PlaceHold(ctx context.Context, txn *domain.Transaction, ttl time.Duration, actor string) error {
	args := m.Called(ctx, txn, ttl, actor)
	return args.Error(0)
}

func (m *MockReservationSvc) ReverseHold(ctx context.Context, transactionID string, from domain.TransactionState, actor string, at time.Time) error {
	args := m.Called(ctx, transactionID, from, actor, at)
	return args.Error(0)
}

func (m *MockReservationSvc) GetHoldByTransactionID(ctx context.Context, transactionID string) (*domain.Reservation, error) {
	args := m.Called(ctx, transactionID)
	var res *domain.Reservation
	if args.Get(0) != nil {
		res = args.Get(0).(*domain.Reservation)
	}
	return res, args.Error(1)
}

type MockConversionSvc struct {
	mock.Mock
}

func (m *MockConversionSvc) Convert(ctx context.Context, amount decimal.Decimal, fromCurrency, toCurrency string, asOf time.Time) (portssvc.ConvertedAmount, error) {
	args := m.Called(ctx, amount, fromCurrency, toCurrency, asOf)
	return args.Get(0).(portssvc.ConvertedAmount), args.Error(1)
}

type MockAuditSvc struct {
	mock.Mock
	mu          sync.Mutex
	transitions []domain.TransactionState
}

// RecordTransition never fails callers, so the mock just remembers the states
// it saw for assertions.
func (m *MockAuditSvc) RecordTransition(ctx context.Context, transactionID string, prior, next domain.TransactionState, actor, reason string, payload any) {
	m.mu.Lock()
	m.transitions = append(m.transitions, next)
	m.mu.Unlock()
}

func (m *MockAuditSvc) Recorded() []domain.TransactionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransactionState(nil), m.transitions...)
}

func (m *MockAuditSvc) ListByTransactionID(ctx context.Context, transactionID string) ([]domain.AuditEvent, error) {
	args := m.Called(ctx, transactionID)
	var events []domain.AuditEvent
	if args.Get(0) != nil {
		events = args.Get(0).([]domain.AuditEvent)
	}
	return events, args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueSettlement(ctx context.Context, transactionID string) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

type MockSettlementSvc struct {
	mock.Mock
}

func (m *MockSettlementSvc) ExecuteSettlement(ctx context.Context, transactionID string, attempt, maxAttempts int) error {
	args := m.Called(ctx, transactionID, attempt, maxAttempts)
	return args.Error(0)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) Name() string { return "mock" }

func (m *MockPaymentProvider) InitiateSettlement(ctx context.Context, req portssvc.SettlementRequest) (*portssvc.SettlementReceipt, error) {
	args := m.Called(ctx, req)
	var receipt *portssvc.SettlementReceipt
	if args.Get(0) != nil {
		receipt = args.Get(0).(*portssvc.SettlementReceipt)
	}
	return receipt, args.Error(1)
}

func (m *MockPaymentProvider) QueryStatus(ctx context.Context, reference string) (portssvc.SettlementStatus, json.RawMessage, error) {
	args := m.Called(ctx, reference)
	var raw json.RawMessage
	if args.Get(1) != nil {
		raw = args.Get(1).(json.RawMessage)
	}
	return args.Get(0).(portssvc.SettlementStatus), raw, args.Error(2)
}

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) GetRate(ctx context.Context, fromCurrency, toCurrency string, asOf time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, fromCurrency, toCurrency, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockRateCache struct {
	mock.Mock
}

func (m *MockRateCache) GetRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, fromCurrency, toCurrency)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockRateCache) SetRate(ctx context.Context, fromCurrency, toCurrency string, rate decimal.Decimal) error {
	args := m.Called(ctx, fromCurrency, toCurrency, rate)
	return args.Error(0)
}
