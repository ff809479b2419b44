package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func centsToDecimals(cents []int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(cents))
	for i, c := range cents {
		out[i] = decimal.New(c, -2)
	}
	return out
}

func TestAllocateProportionallyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	weightsGen := gen.SliceOf(gen.Int64Range(1, 500000)).SuchThat(func(w []int64) bool { return len(w) > 0 })

	properties.Property("shares sum exactly to the requested amount", prop.ForAll(
		func(weights []int64, requested int64) bool {
			amount := decimal.New(requested, -2)
			shares, err := AllocateProportionally(amount, centsToDecimals(weights))
			return err == nil && Sum(shares).Equal(amount)
		},
		weightsGen,
		gen.Int64Range(1, 10000000),
	))

	properties.Property("every share is non-negative and within a cent of its exact share", prop.ForAll(
		func(weights []int64, requested int64) bool {
			ws := centsToDecimals(weights)
			amount := decimal.New(requested, -2)
			shares, err := AllocateProportionally(amount, ws)
			if err != nil {
				return false
			}
			total := Sum(ws)
			for i, s := range shares {
				exact := amount.Mul(ws[i]).Div(total)
				if s.IsNegative() || s.Sub(exact).Abs().GreaterThanOrEqual(decimal.New(1, -2)) {
					return false
				}
			}
			return true
		},
		weightsGen,
		gen.Int64Range(1, 10000000),
	))

	properties.Property("refunding the full amount returns each weight", prop.ForAll(
		func(weights []int64) bool {
			ws := centsToDecimals(weights)
			shares, err := AllocateProportionally(Sum(ws), ws)
			if err != nil {
				return false
			}
			for i := range ws {
				if !shares[i].Equal(ws[i]) {
					return false
				}
			}
			return true
		},
		weightsGen,
	))

	properties.TestingRun(t)
}
