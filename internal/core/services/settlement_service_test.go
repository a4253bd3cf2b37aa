package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/paycore/paycore/internal/apperrors"
	"github.com/paycore/paycore/internal/core/domain"
	portsrepo "github.com/paycore/paycore/internal/core/ports/repositories"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/paycore/paycore/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type SettlementServiceTestSuite struct {
	suite.Suite
	mockTxnRepo        *MockTransactionRepository
	mockLedgerRepo     *MockLedgerRepository
	mockReservationSvc *MockReservationSvc
	mockAuditSvc       *MockAuditSvc
	mockProvider       *MockPaymentProvider
	service            portssvc.SettlementSvcFacade
	ctx                context.Context
}

func (suite *SettlementServiceTestSuite) SetupTest() {
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockReservationSvc = new(MockReservationSvc)
	suite.mockAuditSvc = new(MockAuditSvc)
	suite.mockProvider = new(MockPaymentProvider)
	suite.service = services.NewSettlementService(
		suite.mockTxnRepo,
		suite.mockLedgerRepo,
		suite.mockReservationSvc,
		suite.mockAuditSvc,
		suite.mockProvider,
	)
	suite.ctx = context.Background()
}

func reservedWithdrawal() *domain.Transaction {
	return &domain.Transaction{
		TransactionID:       "txn-1",
		Type:                domain.Withdrawal,
		SourceAccountID:     strPtr("acc-src"),
		Amount:              decimal.NewFromInt(50),
		CurrencyCode:        "USD",
		ExternalDestination: "bank:0123456789",
		State:               domain.StateReserved,
	}
}

func reservedTransfer() *domain.Transaction {
	return &domain.Transaction{
		TransactionID:        "txn-2",
		Type:                 domain.Transfer,
		SourceAccountID:      strPtr("acc-src"),
		DestinationAccountID: strPtr("acc-dst"),
		Amount:               decimal.NewFromInt(25),
		CurrencyCode:         "USD",
		State:                domain.StateReserved,
	}
}

func (suite *SettlementServiceTestSuite) expectMoveToSettling(transactionID string) {
	suite.mockTxnRepo.On("TransitionState", suite.ctx, transactionID, domain.StateReserved, domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_TerminalReplayDiscarded() {
	txn := reservedWithdrawal()
	txn.State = domain.StateCaptured
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 2, 5)

	suite.Require().NoError(err)
	suite.mockProvider.AssertNotCalled(suite.T(), "InitiateSettlement", mock.Anything, mock.Anything)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "ApplyEntries", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_TransferCapturesBothLegs() {
	txn := reservedTransfer()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-2").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-2")
	suite.mockLedgerRepo.On("ApplyEntries", suite.ctx, "txn-2", mock.MatchedBy(func(entries []portsrepo.EntryCommand) bool {
		if len(entries) != 2 {
			return false
		}
		debit, credit := entries[0], entries[1]
		return debit.AccountID == "acc-src" && debit.Direction == domain.Debit && debit.FromHeld &&
			credit.AccountID == "acc-dst" && credit.Direction == domain.Credit && !credit.FromHeld &&
			credit.Amount.Equal(decimal.NewFromInt(25))
	})).Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-2", domain.StateSettling, domain.StateCaptured, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-2", 1, 1)

	suite.Require().NoError(err)
	suite.mockProvider.AssertNotCalled(suite.T(), "InitiateSettlement", mock.Anything, mock.Anything)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
	suite.Contains(suite.mockAuditSvc.Recorded(), domain.StateCaptured)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_CrossCurrencyCreditUsesConvertedAmount() {
	txn := reservedTransfer()
	rate := decimal.NewFromFloat(0.92)
	converted := decimal.NewFromInt(23)
	txn.LockedRate = &rate
	txn.ConvertedAmount = &converted
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-2").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-2")
	suite.mockLedgerRepo.On("ApplyEntries", suite.ctx, "txn-2", mock.MatchedBy(func(entries []portsrepo.EntryCommand) bool {
		return len(entries) == 2 &&
			entries[0].Amount.Equal(decimal.NewFromInt(25)) &&
			entries[1].Amount.Equal(converted)
	})).Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-2", domain.StateSettling, domain.StateCaptured, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-2", 1, 1)

	suite.Require().NoError(err)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_ProviderSuccessCaptures() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	receipt := &portssvc.SettlementReceipt{
		Reference: "prov-ref-1",
		Status:    portssvc.SettlementSucceeded,
		Raw:       json.RawMessage(`{"status":true}`),
	}
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.MatchedBy(func(req portssvc.SettlementRequest) bool {
		return req.TransactionID == "txn-1" && req.Destination == "bank:0123456789" &&
			req.Amount.Equal(decimal.NewFromInt(50)) && req.CurrencyCode == "USD"
	})).Return(receipt, nil).Once()
	suite.mockTxnRepo.On("SetSettlementResult", suite.ctx, "txn-1", mock.MatchedBy(func(ref *string) bool {
		return ref != nil && *ref == "prov-ref-1"
	}), receipt.Raw, "system:settlement", mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyEntries", suite.ctx, "txn-1", mock.MatchedBy(func(entries []portsrepo.EntryCommand) bool {
		// A withdrawal only debits; the money leaves the system.
		return len(entries) == 1 && entries[0].Direction == domain.Debit && entries[0].FromHeld
	})).Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-1", domain.StateSettling, domain.StateCaptured, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)

	suite.Require().NoError(err)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_DefinitiveFailureReverses() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, fmt.Errorf("recipient account closed: %w", apperrors.ErrDefinitiveProvider)).Once()
	suite.mockReservationSvc.On("ReverseHold", suite.ctx, "txn-1", domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockTxnRepo.On("SetFailureReason", suite.ctx, "txn-1", mock.AnythingOfType("string"), "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)

	// Definitive failures must not be retried by the queue.
	suite.Require().NoError(err)
	suite.mockReservationSvc.AssertExpectations(suite.T())
	suite.Contains(suite.mockAuditSvc.Recorded(), domain.StateReversed)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_TransientFailureRetried() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	cause := fmt.Errorf("gateway timeout: %w", apperrors.ErrTransientProvider)
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, cause).Once()
	suite.mockProvider.On("QueryStatus", suite.ctx, "txn-1").
		Return(portssvc.SettlementPending, nil, nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)

	// The error propagates so the queue backs off and retries.
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrTransientProvider)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "ApplyEntries", mock.Anything, mock.Anything, mock.Anything)
	suite.mockReservationSvc.AssertNotCalled(suite.T(), "ReverseHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_ExhaustedAttemptsKeepHold() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, fmt.Errorf("gateway timeout: %w", apperrors.ErrTransientProvider)).Once()
	suite.mockProvider.On("QueryStatus", suite.ctx, "txn-1").
		Return(portssvc.SettlementPending, nil, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-1", domain.StateSettling, domain.StateFailed, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockTxnRepo.On("MarkReconciliationRequired", suite.ctx, "txn-1", mock.AnythingOfType("string"), "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 5, 5)

	suite.Require().NoError(err)
	// The provider's outcome is unknown, so the hold stays until an operator
	// reconciles; releasing it could double spend.
	suite.mockReservationSvc.AssertNotCalled(suite.T(), "ReverseHold", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockTxnRepo.AssertExpectations(suite.T())
	suite.Contains(suite.mockAuditSvc.Recorded(), domain.StateFailed)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_TimeoutResolvedAsSuccess() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, fmt.Errorf("request timed out: %w", apperrors.ErrTransientProvider)).Once()
	raw := json.RawMessage(`{"data":{"status":"success"}}`)
	suite.mockProvider.On("QueryStatus", suite.ctx, "txn-1").
		Return(portssvc.SettlementSucceeded, raw, nil).Once()
	suite.mockTxnRepo.On("SetSettlementResult", suite.ctx, "txn-1", (*string)(nil), raw, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyEntries", suite.ctx, "txn-1", mock.Anything).
		Return([]domain.LedgerEntry{}, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-1", domain.StateSettling, domain.StateCaptured, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)

	suite.Require().NoError(err)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_TimeoutResolvedAsFailure() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, fmt.Errorf("request timed out: %w", apperrors.ErrTransientProvider)).Once()
	suite.mockProvider.On("QueryStatus", suite.ctx, "txn-1").
		Return(portssvc.SettlementFailed, nil, nil).Once()
	suite.mockReservationSvc.On("ReverseHold", suite.ctx, "txn-1", domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockTxnRepo.On("SetFailureReason", suite.ctx, "txn-1", mock.AnythingOfType("string"), "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)

	suite.Require().NoError(err)
	suite.mockReservationSvc.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_DuplicateLedgerEffectTolerated() {
	txn := reservedTransfer()
	txn.State = domain.StateSettling
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-2").Return(txn, nil).Once()
	suite.mockLedgerRepo.On("ApplyEntries", suite.ctx, "txn-2", mock.Anything).
		Return(nil, apperrors.ErrDuplicateApplication).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-2", domain.StateSettling, domain.StateCaptured, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-2", 2, 5)

	// An earlier crashed attempt already moved the money; finishing the state
	// transition is all that remains.
	suite.Require().NoError(err)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_LostRaceToFinishedWorker() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.mockTxnRepo.On("TransitionState", suite.ctx, "txn-1", domain.StateReserved, domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrConflict).Once()
	finished := reservedWithdrawal()
	finished.State = domain.StateCaptured
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(finished, nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 2, 5)

	suite.Require().NoError(err)
	suite.mockProvider.AssertNotCalled(suite.T(), "InitiateSettlement", mock.Anything, mock.Anything)
}

// A reversal that fails to commit leaves the transaction SETTLING with its
// hold intact, so the queue retries the whole reversal on the next delivery.
// Nothing can end up REVERSED with funds still held.
func (suite *SettlementServiceTestSuite) TestExecuteSettlement_FailedReversalRetriedOnRedelivery() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	cause := fmt.Errorf("recipient account closed: %w", apperrors.ErrDefinitiveProvider)
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, cause).Twice()
	suite.mockReservationSvc.On("ReverseHold", suite.ctx, "txn-1", domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(errBoom).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 1, 5)
	suite.Require().Error(err)

	// Next delivery finds the transaction still SETTLING and reverses cleanly.
	settling := reservedWithdrawal()
	settling.State = domain.StateSettling
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(settling, nil).Once()
	suite.mockReservationSvc.On("ReverseHold", suite.ctx, "txn-1", domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()
	suite.mockTxnRepo.On("SetFailureReason", suite.ctx, "txn-1", mock.AnythingOfType("string"), "system:settlement", mock.AnythingOfType("time.Time")).
		Return(nil).Once()

	err = suite.service.ExecuteSettlement(suite.ctx, "txn-1", 2, 5)

	suite.Require().NoError(err)
	suite.mockReservationSvc.AssertExpectations(suite.T())
	suite.Contains(suite.mockAuditSvc.Recorded(), domain.StateReversed)
}

func (suite *SettlementServiceTestSuite) TestExecuteSettlement_ReversalLostRaceToFinishedWorker() {
	txn := reservedWithdrawal()
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(txn, nil).Once()
	suite.expectMoveToSettling("txn-1")
	suite.mockProvider.On("InitiateSettlement", suite.ctx, mock.AnythingOfType("services.SettlementRequest")).
		Return(nil, fmt.Errorf("recipient account closed: %w", apperrors.ErrDefinitiveProvider)).Once()
	suite.mockReservationSvc.On("ReverseHold", suite.ctx, "txn-1", domain.StateSettling, "system:settlement", mock.AnythingOfType("time.Time")).
		Return(apperrors.ErrConflict).Once()
	reversed := reservedWithdrawal()
	reversed.State = domain.StateReversed
	suite.mockTxnRepo.On("FindTransactionByID", suite.ctx, "txn-1").Return(reversed, nil).Once()

	err := suite.service.ExecuteSettlement(suite.ctx, "txn-1", 2, 5)

	// Another delivery already completed the reversal; nothing to redo.
	suite.Require().NoError(err)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "SetFailureReason", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettlementService(t *testing.T) {
	suite.Run(t, new(SettlementServiceTestSuite))
}
