package domain

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrNothingToAllocate is returned when the allocation weights sum to zero.
var ErrNothingToAllocate = errors.New("allocation weights sum to zero")

// RoundMoney rounds to cents, half away from zero. Amounts here are never
// negative, so this is round half up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Commission returns amount * rate / 100 rounded to cents.
func Commission(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(rate).Div(hundred))
}

// Sum adds the given amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// AllocateProportionally splits requested across weights by largest
// remainder. Each share starts at requested * weight / total floored to
// cents, then the cents still missing go one each to the shares with the
// largest remainders, later shares first on ties. Shares are never negative
// and always sum exactly to requested.
func AllocateProportionally(requested decimal.Decimal, weights []decimal.Decimal) ([]decimal.Decimal, error) {
	clamped := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		clamped[i] = decimal.Max(w, decimal.Zero)
	}
	total := Sum(clamped)
	if !total.IsPositive() {
		return nil, ErrNothingToAllocate
	}

	cents := RoundMoney(requested).Shift(2)
	floors := make([]decimal.Decimal, len(weights))
	remainders := make([]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range clamped {
		floors[i], remainders[i] = cents.Mul(w).QuoRem(total, 0)
		allocated = allocated.Add(floors[i])
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = len(weights) - 1 - i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})

	for left, k := cents.Sub(allocated).IntPart(), 0; left > 0; left, k = left-1, k+1 {
		i := order[k%len(order)]
		floors[i] = floors[i].Add(decimal.NewFromInt(1))
	}

	shares := make([]decimal.Decimal, len(weights))
	for i, f := range floors {
		shares[i] = f.Shift(-2)
	}
	return shares, nil
}
