package domain

import "github.com/shopspring/decimal"

// Currency selects the display currency for cost estimates.
type Currency string

// Supported display currencies.
const (
	CurrencyUSD Currency = "USD"
	CurrencyTWD Currency = "TWD"
)

// AppSettings is external configuration consumed by the reorder calculator.
type AppSettings struct {
	Currency Currency `json:"currency"`
	OrgName  string   `json:"org_name"`
}

// CurrencyRate describes the fixed multiplier applied to base costs and the
// symbol used when presenting converted amounts.
type CurrencyRate struct {
	Multiplier decimal.Decimal `json:"multiplier"`
	Symbol     string          `json:"symbol"`
}

// CurrencyTable maps display currencies to fixed conversion factors.
type CurrencyTable map[Currency]CurrencyRate

// DefaultCurrencyTable treats USD as the base and converts TWD at a fixed 32:1.
func DefaultCurrencyTable() CurrencyTable {
	return CurrencyTable{
		CurrencyUSD: {Multiplier: decimal.NewFromInt(1), Symbol: "$"},
		CurrencyTWD: {Multiplier: decimal.NewFromInt(32), Symbol: "NT$"},
	}
}

// Rate returns the conversion for c. Unknown currencies fall back to the 1:1
// base rate and use the currency code as symbol.
func (t CurrencyTable) Rate(c Currency) CurrencyRate {
	if rate, ok := t[c]; ok {
		return rate
	}
	return CurrencyRate{Multiplier: decimal.NewFromInt(1), Symbol: string(c)}
}

// CostTable maps chemical ids to their base (USD) cost per container.
type CostTable map[string]decimal.Decimal

// BaseCost returns the base cost per unit of the chemical, zero when unknown.
func (t CostTable) BaseCost(chemicalID string) decimal.Decimal {
	if cost, ok := t[chemicalID]; ok {
		return cost
	}
	return decimal.Zero
}
