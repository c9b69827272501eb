package types

import "github.com/shopspring/decimal"

// CurrencyPrecision is the number of decimals amounts are rounded to before they are
// compared or sent to the ERP.
const CurrencyPrecision int32 = 2

// RoundMoney rounds d half away from zero to the currency precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}

// MoneyFloat converts d to the JSON number the ERP expects.
func MoneyFloat(d decimal.Decimal) float64 {
	return RoundMoney(d).InexactFloat64()
}

// MoneyEqual compares two amounts at currency precision.
func MoneyEqual(a, b decimal.Decimal) bool {
	return RoundMoney(a).Equal(RoundMoney(b))
}

// SumMoney adds amounts.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
