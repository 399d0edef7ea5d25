package model

import "github.com/shopspring/decimal"

// PriceEntry is one row of the price table. StartingPrice is fixed for
// the session; ChangePct is recomputed on every refresh and kept at full
// precision internally.
type PriceEntry struct {
	Symbol        string  `json:"symbol" db:"symbol"`
	Price         float64 `json:"price" db:"price"`
	StartingPrice float64 `json:"starting_price" db:"starting_price"`
	ChangePct     float64 `json:"change"`
}

// PriceTable maps symbol to its latest entry. A published table is
// never mutated; refreshes replace the whole map.
type PriceTable map[string]PriceEntry

// PricePoint is the wire shape of one symbol in the live prices feed.
type PricePoint struct {
	Price  float64 `json:"price"`
	Change float64 `json:"change"`
}

// Presentation renders the table for the wire, rounding the change
// percentage to two decimal places.
func (t PriceTable) Presentation() map[string]PricePoint {
	out := make(map[string]PricePoint, len(t))
	for sym, e := range t {
		out[sym] = PricePoint{
			Price:  e.Price,
			Change: Round2(e.ChangePct),
		}
	}
	return out
}

// Round2 rounds to two decimal places, for presentation only.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
