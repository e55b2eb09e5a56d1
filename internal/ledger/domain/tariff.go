package ledger

import "github.com/shopspring/decimal"

// Fixed per-unit tariffs, currency units per consumption unit.
var (
	TariffElectricity = decimal.RequireFromString("5.09")
	TariffColdWater   = decimal.RequireFromString("29.41")
	TariffHotWater    = decimal.RequireFromString("226.7")
	TariffGas         = decimal.RequireFromString("7.47")
)

// CalculateDebt converts a readings snapshot into a monetary amount:
// the sum of counter times tariff per resource, rounded half-up to
// two decimal places. Pure, no I/O.
func CalculateDebt(r Readings) decimal.Decimal {
	total := decimal.NewFromInt(r.Electricity).Mul(TariffElectricity)
	total = total.Add(decimal.NewFromInt(r.ColdWater).Mul(TariffColdWater))
	total = total.Add(decimal.NewFromInt(r.HotWater).Mul(TariffHotWater))
	total = total.Add(decimal.NewFromInt(r.Gas).Mul(TariffGas))
	return total.Round(2)
}
