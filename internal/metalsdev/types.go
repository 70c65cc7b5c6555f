package metalsdev

import "time"

// LatestResponse represents the metals.dev /v1/latest response body
type LatestResponse struct {
	Status     string             `json:"status"`
	Currency   string             `json:"currency"`
	Unit       string             `json:"unit"`
	Metals     map[string]float64 `json:"metals"`
	Timestamps Timestamps         `json:"timestamps"`
}

// Timestamps carries the provider's as-of instants
type Timestamps struct {
	Metal    string `json:"metal"`
	Currency string `json:"currency"`
}

// Quote is a single parsed instrument price
type Quote struct {
	Key      string
	Price    float64
	Currency string
}

// ParsedLatest represents a parsed latest-prices response ready for ingestion
type ParsedLatest struct {
	Currency string
	AsOf     time.Time
	Quotes   []Quote
}
