package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintNormalizes(t *testing.T) {
	a := Transaction{Description: "  NETFLIX.COM ", Amount: 15.99, Merchant: "Netflix"}
	b := Transaction{Description: "netflix.com", Amount: 15.99, Merchant: "NETFLIX"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := Transaction{Description: "netflix.com", Amount: 16.99, Merchant: "NETFLIX"}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestFingerprintRoundsAmount(t *testing.T) {
	a := Transaction{Description: "x", Amount: 10.001}
	b := Transaction{Description: "x", Amount: 10.004}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestMerchantSignature(t *testing.T) {
	txn := Transaction{Description: "AGL ENERGY 0012345", Merchant: "AGL"}
	assert.Equal(t, "agl energy agl", txn.MerchantSignature())

	empty := Transaction{Description: "123 456!"}
	assert.Equal(t, "", empty.MerchantSignature())
}
