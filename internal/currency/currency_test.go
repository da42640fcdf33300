package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFromText(t *testing.T) {
	testCases := []struct {
		text       string
		wantSymbol string
		wantCode   string
	}{
		{"$19.99", "$", "USD"},
		{"€24,99", "€", "EUR"},
		{"£15.00", "£", "GBP"},
		{"¥1,500", "¥", "JPY"},
		{"₹2,499", "₹", "INR"},
		{"S$59.90", "S$", "SGD"},
		{"R$ 129,90", "R$", "BRL"},
		{"HK$399", "HK$", "HKD"},
		{"CHF 89.00", "CHF", "CHF"},
		{"₩35,000", "₩", "KRW"},
	}

	for _, tc := range testCases {
		got := Resolve(tc.text, "shop.example.com")
		assert.Equal(t, tc.wantSymbol, got.Symbol, "symbol for %q", tc.text)
		assert.Equal(t, tc.wantCode, got.Code, "code for %q", tc.text)
	}
}

func TestResolveFromDomain(t *testing.T) {
	// No symbol in the fragment, domain suffix decides
	assert.Equal(t, "GBP", Resolve("19.99", "www.argos.co.uk").Code)
	assert.Equal(t, "SGD", Resolve("59.90", "shopee.sg").Code)
	assert.Equal(t, "CAD", Resolve("12.00", "www.canadiantire.ca").Code)
	assert.Equal(t, "AUD", Resolve("", "www.kmart.com.au").Code)
	assert.Equal(t, "INR", Resolve("2499", "www.flipkart.in").Code)
}

func TestResolveDefault(t *testing.T) {
	got := Resolve("no currency here", "example.org")
	assert.Equal(t, Default, got)

	got = Resolve("", "")
	assert.Equal(t, "USD", got.Code)
	assert.Equal(t, "$", got.Symbol)
}
