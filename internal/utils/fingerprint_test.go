package utils_test

import (
	"testing"

	"github.com/paycore/paycore/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRequestFingerprint_StableAcrossRetries(t *testing.T) {
	src := "acc-src"
	dst := "acc-dst"
	a := utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(100), "USD", "")
	b := utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(100), "USD", "")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestRequestFingerprint_SensitiveToEveryField(t *testing.T) {
	src := "acc-src"
	dst := "acc-dst"
	base := utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(100), "USD", "")

	otherSrc := "acc-other"
	assert.NotEqual(t, base, utils.RequestFingerprint("WITHDRAWAL", &src, &dst, decimal.NewFromInt(100), "USD", ""))
	assert.NotEqual(t, base, utils.RequestFingerprint("TRANSFER", &otherSrc, &dst, decimal.NewFromInt(100), "USD", ""))
	assert.NotEqual(t, base, utils.RequestFingerprint("TRANSFER", &src, nil, decimal.NewFromInt(100), "USD", ""))
	assert.NotEqual(t, base, utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(101), "USD", ""))
	assert.NotEqual(t, base, utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(100), "EUR", ""))
	assert.NotEqual(t, base, utils.RequestFingerprint("TRANSFER", &src, &dst, decimal.NewFromInt(100), "USD", "bank:1"))
}

func TestRequestFingerprint_NilEqualsEmpty(t *testing.T) {
	empty := ""
	withNil := utils.RequestFingerprint("DEPOSIT", nil, &empty, decimal.NewFromInt(1), "USD", "")
	withEmpty := utils.RequestFingerprint("DEPOSIT", &empty, &empty, decimal.NewFromInt(1), "USD", "")

	// nil and "" collapse to the same canonical form on purpose.
	assert.Equal(t, withNil, withEmpty)
}

func TestPayloadDigest(t *testing.T) {
	assert.Empty(t, utils.PayloadDigest(""))
	assert.Len(t, utils.PayloadDigest(`{"amount":"100"}`), 64)
	assert.NotEqual(t, utils.PayloadDigest("a"), utils.PayloadDigest("b"))
}
