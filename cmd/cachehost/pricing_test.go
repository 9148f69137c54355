package main

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildPrices(t *testing.T) {
	table, err := buildPrices(sampleCatalog, sampleRates)
	if err != nil {
		t.Fatalf("buildPrices: %v", err)
	}

	tests := []struct {
		currency, sku, want string
	}{
		{"USD", "mat-pro", "79"},
		{"EUR", "mat-pro", "73.15"},
		{"USD", "strap", "10.69"},
		{"GBP", "strap", "8.42"},
		{"EUR", "strap", "9.9"},
	}
	for _, tt := range tests {
		got, ok := table[tt.currency][tt.sku]
		if !ok {
			t.Errorf("%s/%s missing", tt.currency, tt.sku)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("%s/%s = %s, want %s", tt.currency, tt.sku, got, tt.want)
		}
	}
}

func TestBuildPrices_UnknownCurrency(t *testing.T) {
	catalog := []product{{SKU: "bolster", Price: decimal.NewFromInt(40), Currency: "JPY"}}
	_, err := buildPrices(catalog, sampleRates)
	if err == nil || !strings.Contains(err.Error(), "JPY") {
		t.Errorf("expected missing rate error, got %v", err)
	}
}

func TestRates_Normalize(t *testing.T) {
	fx := rates{
		"usd": decimal.NewFromInt(1),
		"EUR": decimal.Zero,
		"gbp": decimal.RequireFromString("-1"),
	}.normalize()
	if len(fx) != 1 {
		t.Fatalf("expected only positive rates to survive, got %v", fx)
	}
	if _, ok := fx["USD"]; !ok {
		t.Error("expected codes to be upper-cased")
	}
}
