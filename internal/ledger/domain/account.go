package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Readings holds the four cumulative meter counters for an account.
type Readings struct {
	Electricity int64
	ColdWater   int64
	HotWater    int64
	Gas         int64
}

// Validate rejects negative counters.
func (r Readings) Validate() error {
	if r.Electricity < 0 || r.ColdWater < 0 || r.HotWater < 0 || r.Gas < 0 {
		return ErrNegativeReading
	}
	return nil
}

// Account is one taxpayer row in the ledger.
type Account struct {
	Passport       string
	Readings       Readings
	CurrentDebt    decimal.Decimal
	NextPeriodDebt decimal.Decimal
	LastPayment    decimal.Decimal
	CreatedAt      time.Time
}
