package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RequestFingerprint produces a stable digest of a transaction intent's
// identifying fields. The idempotency guard compares it to detect a key
// reused with a different payload. Secrets (the PIN) are deliberately
// excluded so retries with a corrected PIN are still the same request.
func RequestFingerprint(txnType string, sourceAccountID, destinationAccountID *string, amount decimal.Decimal, currencyCode, externalDestination string) string {
	var b strings.Builder
	b.WriteString(txnType)
	b.WriteByte('|')
	if sourceAccountID != nil {
		b.WriteString(*sourceAccountID)
	}
	b.WriteByte('|')
	if destinationAccountID != nil {
		b.WriteString(*destinationAccountID)
	}
	fmt.Fprintf(&b, "|%s|%s|%s", amount.String(), currencyCode, externalDestination)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// PayloadDigest digests an arbitrary payload representation for the audit
// trail. Empty payloads digest to the empty string.
func PayloadDigest(payload string) string {
	if payload == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
