package model

// Stock is the full stored document for one listed company.
type Stock struct {
	Symbol        string  `json:"symbol" db:"symbol"`
	Company       string  `json:"company" db:"company"`
	Sector        string  `json:"sector" db:"sector"`
	Priority      int     `json:"priority" db:"priority"`
	Price         float64 `json:"price" db:"price"`
	StartingPrice float64 `json:"starting_price" db:"starting_price"`
}

// StockPerf is one stock leaderboard row, ranked by PriceDiff.
type StockPerf struct {
	Symbol        string  `json:"symbol" db:"symbol"`
	Company       string  `json:"company" db:"company"`
	Price         float64 `json:"price" db:"price"`
	StartingPrice float64 `json:"starting_price" db:"starting_price"`
	PriceDiff     float64 `json:"price_diff" db:"price_diff"`
}
