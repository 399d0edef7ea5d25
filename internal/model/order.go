package model

const (
	// OrderLineCount is the exact number of lines a submitted order must carry.
	OrderLineCount = 5
	// LineBudget is how much currency every order line spends.
	LineBudget = 100.0
)

type OrderLine struct {
	Symbol        string  `json:"symbol"`
	PurchasePrice float64 `json:"purchase_price"`
	Quantity      float64 `json:"quantity"`
}

// Order is immutable after submission except for CurrentValue, which the
// refresher recomputes against every published price table.
type Order struct {
	Name         string      `json:"name" db:"name"`
	Ts           int64       `json:"ts" db:"ts"`
	Geo          string      `json:"geo,omitempty" db:"geo"`
	Lines        []OrderLine `json:"order"`
	CurrentValue float64     `json:"current_value"`
}

// Investment is one order line attributed to its investor, used by the
// geo profit breakdown. Profit is derived against the current table.
type Investment struct {
	Symbol        string  `json:"symbol" db:"symbol"`
	Name          string  `json:"name" db:"name"`
	PurchasePrice float64 `json:"purchase_price" db:"purchase_price"`
	Quantity      float64 `json:"quantity" db:"quantity"`
	Profit        float64 `json:"profit"`
}

// GeoBoard is the profit summary for one submission region.
type GeoBoard struct {
	Total       float64      `json:"total"`
	Investments []Investment `json:"investments"`
}

// ValueAgainst prices the order's lines with the given table. Symbols
// missing from the table contribute nothing.
func (o Order) ValueAgainst(table PriceTable) float64 {
	var total float64
	for _, line := range o.Lines {
		if entry, ok := table[line.Symbol]; ok {
			total += line.Quantity * entry.Price
		}
	}
	return total
}
