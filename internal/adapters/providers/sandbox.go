package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/paycore/paycore/internal/apperrors"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
)

// SandboxProvider is the in-process settlement rail used in development and
// tests. It captures instantly, remembers what it settled so status queries
// answer truthfully, and simulates a declined rail for destinations prefixed
// with "declined:".
type SandboxProvider struct {
	mu      sync.Mutex
	settled map[string]portssvc.SettlementStatus
}

func NewSandboxProvider() *SandboxProvider {
	return &SandboxProvider{settled: make(map[string]portssvc.SettlementStatus)}
}

var _ portssvc.PaymentProvider = (*SandboxProvider)(nil)

func (p *SandboxProvider) Name() string { return "sandbox" }

func (p *SandboxProvider) InitiateSettlement(ctx context.Context, req portssvc.SettlementRequest) (*portssvc.SettlementReceipt, error) {
	if strings.HasPrefix(req.Destination, "declined:") {
		p.record(req.TransactionID, portssvc.SettlementFailed)
		return nil, fmt.Errorf("sandbox rail declined destination %s: %w", req.Destination, apperrors.ErrDefinitiveProvider)
	}

	p.record(req.TransactionID, portssvc.SettlementSucceeded)
	raw, _ := json.Marshal(map[string]string{
		"provider":  p.Name(),
		"reference": req.TransactionID,
		"amount":    req.Amount.String(),
		"currency":  req.CurrencyCode,
	})
	return &portssvc.SettlementReceipt{
		Reference: "sandbox-" + req.TransactionID,
		Status:    portssvc.SettlementSucceeded,
		Raw:       raw,
	}, nil
}

func (p *SandboxProvider) QueryStatus(ctx context.Context, reference string) (portssvc.SettlementStatus, json.RawMessage, error) {
	p.mu.Lock()
	status, ok := p.settled[strings.TrimPrefix(reference, "sandbox-")]
	p.mu.Unlock()
	if !ok {
		return portssvc.SettlementPending, nil, nil
	}
	raw, _ := json.Marshal(map[string]string{"provider": p.Name(), "status": string(status)})
	return status, raw, nil
}

func (p *SandboxProvider) record(transactionID string, status portssvc.SettlementStatus) {
	p.mu.Lock()
	p.settled[transactionID] = status
	p.mu.Unlock()
}
