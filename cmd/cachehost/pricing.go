package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// product is one row of the catalog
type product struct {
	SKU      string          `gorm:"column:sku" json:"sku"`
	Name     string          `gorm:"column:name" json:"name"`
	Price    decimal.Decimal `gorm:"column:price" json:"price"`
	Currency string          `gorm:"column:currency" json:"currency"`
}

// rates maps a currency code to its value in the base currency (base = 1)
type rates map[string]decimal.Decimal

// priceTable maps currency code to SKU to the rounded price in that currency
type priceTable map[string]map[string]decimal.Decimal

// revenue is one day of sales from the analytics store
type revenue struct {
	Day     time.Time       `ch:"day"`
	Orders  uint64          `ch:"orders"`
	Revenue decimal.Decimal `ch:"revenue"`
}

var (
	sampleCatalog = []product{
		{SKU: "mat-pro", Name: "Pro Yoga Mat", Price: decimal.RequireFromString("79.00"), Currency: "USD"},
		{SKU: "block-cork", Name: "Cork Block", Price: decimal.RequireFromString("18.50"), Currency: "USD"},
		{SKU: "strap", Name: "Cotton Strap", Price: decimal.RequireFromString("9.90"), Currency: "EUR"},
	}
	sampleRates = rates{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("1.08"),
		"GBP": decimal.RequireFromString("1.27"),
	}
)

// normalize upper-cases currency codes and drops non-positive rates
func (r rates) normalize() rates {
	out := make(rates, len(r))
	for code, v := range r {
		if v.IsPositive() {
			out[strings.ToUpper(code)] = v
		}
	}
	return out
}

// buildPrices converts every product into every known currency
func buildPrices(catalog []product, fx rates) (priceTable, error) {
	fx = fx.normalize()
	currencies := make([]string, 0, len(fx))
	for code := range fx {
		currencies = append(currencies, code)
	}
	slices.Sort(currencies)

	table := make(priceTable, len(currencies))
	for _, code := range currencies {
		table[code] = make(map[string]decimal.Decimal, len(catalog))
	}
	for _, p := range catalog {
		from, ok := fx[strings.ToUpper(p.Currency)]
		if !ok {
			return nil, fmt.Errorf("product %s: no rate for currency %q", p.SKU, p.Currency)
		}
		base := p.Price.Mul(from)
		for _, code := range currencies {
			table[code][p.SKU] = base.Div(fx[code]).Round(2)
		}
	}
	return table, nil
}
