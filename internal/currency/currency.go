// Package currency maps price text fragments and site domains to
// currency codes. Resolution is best-effort and never fails: ambiguous
// or unrecognized input falls back to USD.
package currency

import "strings"

// Currency is a (symbol, ISO code) pair.
type Currency struct {
	Symbol string
	Code   string
}

type symbolEntry struct {
	symbol string
	code   string
}

// Symbol table scanned in order; the first symbol contained in the
// fragment wins. Multi-character symbols sit ahead of the bare "$" so
// containment checks do not shadow them.
var symbolTable = []symbolEntry{
	{"R$", "BRL"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"S$", "SGD"},
	{"HK$", "HKD"},
	{"NT$", "TWD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"₨", "PKR"},
	{"kr", "SEK"},
	{"zł", "PLN"},
	{"₱", "PHP"},
	{"₩", "KRW"},
	{"RM", "MYR"},
	{"₺", "TRY"},
	{"₽", "RUB"},
	{"CHF", "CHF"},
	{"Rp", "IDR"},
	{"₪", "ILS"},
	{"AED", "AED"},
	{"SAR", "SAR"},
}

type domainRule struct {
	suffix   string
	currency Currency
}

var domainRules = []domainRule{
	{".sg", Currency{"S$", "SGD"}},
	{".uk", Currency{"£", "GBP"}},
	{".ca", Currency{"C$", "CAD"}},
	{".au", Currency{"A$", "AUD"}},
	{".in", Currency{"₹", "INR"}},
}

// Default is returned when neither the fragment nor the domain gives a hint.
var Default = Currency{Symbol: "$", Code: "USD"}

// Resolve scans priceText for a known currency symbol and falls back to
// domain-suffix rules, then to the USD default.
func Resolve(priceText, domain string) Currency {
	if priceText != "" {
		for _, entry := range symbolTable {
			if strings.Contains(priceText, entry.symbol) {
				return Currency{Symbol: entry.symbol, Code: entry.code}
			}
		}
	}

	for _, rule := range domainRules {
		if strings.Contains(domain, rule.suffix) {
			return rule.currency
		}
	}

	return Default
}
