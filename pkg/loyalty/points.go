package loyalty

import "github.com/shopspring/decimal"

// pointsRate is the accrued fraction of a purchase price (5%).
var pointsRate = decimal.New(5, -2)

// CalcPoints returns the points accrued for a purchase: ceil(price * 0.05).
// The computation is exact, so a refund that subtracts CalcPoints of the
// recorded price always reverses the original accrual.
func CalcPoints(price Price) int64 {
	return price.Decimal().Mul(pointsRate).Ceil().IntPart()
}
