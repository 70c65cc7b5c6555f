package models

import (
	"time"
)

// Units accepted by the dashboard endpoints
const (
	UnitQueryTroyOunce = "toz"
	UnitQueryKilogram  = "kg"
)

// DashboardQuery holds the filters shared by the price and analytics endpoints.
// Metal and Market accept repeated parameters or comma separated lists.
type DashboardQuery struct {
	Currency  string       `form:"currency"`
	StartDate FlexibleDate `form:"start_date"`
	EndDate   FlexibleDate `form:"end_date"`
	Metal     []string     `form:"metal"`
	Market    []string     `form:"market"`
	Unit      string       `form:"unit"`
}

// PricesResponse is the filtered joined price table
type PricesResponse struct {
	Currency string     `json:"currency"`
	Unit     string     `json:"unit"`
	Count    int        `json:"count"`
	Rows     []PriceRow `json:"rows"`
	Warnings []Warning  `json:"warnings,omitempty"`
}

// KPI is the latest price of one instrument and its daily move
type KPI struct {
	Metal       string  `json:"metal"`
	Market      string  `json:"market"`
	Price       float64 `json:"price"`
	DailyChange float64 `json:"daily_change"`
}

// KPIResponse carries the headline numbers. Premium is the latest MCX price
// over the latest Spot price, present only when both exist.
type KPIResponse struct {
	Metal    string    `json:"metal"`
	KPIs     []KPI     `json:"kpis"`
	Premium  *float64  `json:"premium,omitempty"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// MostVolatileResponse names the Spot metal with the most volatile daily returns
type MostVolatileResponse struct {
	Metal    *string   `json:"metal"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// IngestRequest represents the query parameters for a manual ingestion
type IngestRequest struct {
	Currency string `form:"currency"`
}

// RefreshResponse reports a cache invalidation
type RefreshResponse struct {
	Currency    string    `json:"currency,omitempty"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
