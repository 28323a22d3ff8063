package domain

// Quote is a point-in-time market quote used for summaries.
type Quote struct {
	Symbol string     `json:"symbol"`
	Name   string     `json:"name,omitempty"`
	Market MarketKind `json:"market"`
	Price  float64    `json:"price"`
	// ChangePercent is the 24h change for crypto and the series change for forex.
	ChangePercent float64 `json:"changePercent"`
}
