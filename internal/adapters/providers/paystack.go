package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/paycore/paycore/internal/apperrors"
	portssvc "github.com/paycore/paycore/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// PaystackProvider settles withdrawals and bill payments over Paystack's
// Transfer API. Amounts go over the wire in minor units (kobo for NGN); our
// transaction id is Paystack's client reference, which makes initiation
// idempotent on their side and lets QueryStatus resolve a timed-out call.
type PaystackProvider struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewPaystackProvider(baseURL, secretKey string, timeout time.Duration) *PaystackProvider {
	return &PaystackProvider{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ portssvc.PaymentProvider = (*PaystackProvider)(nil)

func (p *PaystackProvider) Name() string { return "paystack" }

type paystackTransferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"` // minor units
	Recipient string `json:"recipient"`
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
	Currency  string `json:"currency"`
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    paystackPayload `json:"data"`
}

type paystackPayload struct {
	Status       string `json:"status"`
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
}

func (p *PaystackProvider) InitiateSettlement(ctx context.Context, req portssvc.SettlementRequest) (*portssvc.SettlementReceipt, error) {
	body := paystackTransferRequest{
		Source:    "balance",
		Amount:    toMinorUnits(req.Amount),
		Recipient: req.Destination,
		Reference: req.TransactionID,
		Currency:  req.CurrencyCode,
	}
	raw, env, err := p.call(ctx, http.MethodPost, "/transfer", body)
	if err != nil {
		return nil, err
	}

	reference := env.Data.TransferCode
	if reference == "" {
		reference = env.Data.Reference
	}
	return &portssvc.SettlementReceipt{
		Reference: reference,
		Status:    mapPaystackStatus(env.Data.Status),
		Raw:       raw,
	}, nil
}

func (p *PaystackProvider) QueryStatus(ctx context.Context, reference string) (portssvc.SettlementStatus, json.RawMessage, error) {
	raw, env, err := p.call(ctx, http.MethodGet, "/transfer/verify/"+reference, nil)
	if err != nil {
		return portssvc.SettlementPending, nil, err
	}
	return mapPaystackStatus(env.Data.Status), raw, nil
}

// call performs one provider round trip and classifies its failures: network
// errors, timeouts and 5xx are transient; 4xx and API-level rejections are
// definitive.
func (p *PaystackProvider) call(ctx context.Context, method, path string, body any) (json.RawMessage, *paystackEnvelope, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode provider request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build provider request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, nil, fmt.Errorf("provider call timed out: %w", apperrors.ErrTransientProvider)
		}
		return nil, nil, fmt.Errorf("provider call failed: %v: %w", err, apperrors.ErrTransientProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read provider response: %w", apperrors.ErrTransientProvider)
	}

	// Paystack signs payloads with HMAC-SHA512 over the raw body under
	// x-paystack-signature. A signed response that fails verification cannot
	// be trusted either way, so it is treated as indeterminate and the
	// outcome resolved through QueryStatus.
	if sig := resp.Header.Get("x-paystack-signature"); sig != "" && !p.verifySignature(raw, sig) {
		return nil, nil, fmt.Errorf("provider response signature mismatch: %w", apperrors.ErrTransientProvider)
	}

	if resp.StatusCode >= 500 {
		return nil, nil, fmt.Errorf("provider returned %d: %w", resp.StatusCode, apperrors.ErrTransientProvider)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("provider rejected request with %d: %s: %w", resp.StatusCode, firstLine(raw), apperrors.ErrDefinitiveProvider)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("unparseable provider response: %w", apperrors.ErrTransientProvider)
	}
	if !env.Status {
		return nil, nil, fmt.Errorf("provider rejected request: %s: %w", env.Message, apperrors.ErrDefinitiveProvider)
	}
	return raw, &env, nil
}

func (p *PaystackProvider) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func mapPaystackStatus(status string) portssvc.SettlementStatus {
	switch status {
	case "success":
		return portssvc.SettlementSucceeded
	case "failed", "reversed":
		return portssvc.SettlementFailed
	default:
		// "pending", "otp" and anything unrecognized stay pending.
		return portssvc.SettlementPending
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func firstLine(raw []byte) string {
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(bytes.SplitN(raw, []byte("\n"), 2)[0])
}
