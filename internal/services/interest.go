package services

import (
	"github.com/henriquedevops/pgbudget-sub003/internal/store"

	"github.com/shopspring/decimal"
)

// InterestPolicy computes the interest charged for a billing cycle.
// The accrual formula is deliberately swappable; the default is simple
// daily accrual, balance x apr/365 per day between statement closes.
type InterestPolicy interface {
	Accrue(balanceMinor int64, apr decimal.Decimal, days int, compounding string) int64
}

type SimpleAccrual struct{}

func (SimpleAccrual) Accrue(balanceMinor int64, apr decimal.Decimal, days int, compounding string) int64 {
	if balanceMinor <= 0 || days <= 0 || !apr.IsPositive() {
		return 0
	}
	balance := decimal.NewFromInt(balanceMinor)
	var interest decimal.Decimal
	switch compounding {
	case store.CompoundMonthly:
		// One period charge per cycle regardless of cycle length.
		interest = balance.Mul(apr.Div(decimal.NewFromInt(12)))
	default:
		daily := apr.Div(decimal.NewFromInt(365))
		interest = balance.Mul(daily).Mul(decimal.NewFromInt(int64(days)))
	}
	return interest.RoundBank(0).IntPart()
}
