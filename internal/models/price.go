package models

import (
	"time"
)

// Market names created by the ingestor
const (
	MarketSpot = "Spot"
	MarketMCX  = "MCX"
	MarketLBMA = "LBMA"
)

// UnitTroyOunce is the unit every fact is stored in
const UnitTroyOunce = "toz"

// Metal is a row of dim_metal
type Metal struct {
	ID   int64  `json:"id"`
	Name string `json:"metal_name"`
}

// Market is a row of dim_market
type Market struct {
	ID   int64  `json:"id"`
	Name string `json:"market_name"`
}

// TimeBucket is a row of dim_time. ID is the YYYYMMDDHH encoding of Timestamp's hour.
type TimeBucket struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Date      time.Time `json:"date"`
	Day       int       `json:"day"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Hour      int       `json:"hour"`
}

// PriceFact is a row of fact_metal_prices, unique on (MetalID, MarketID, TimeID, Currency)
type PriceFact struct {
	MetalID  int64   `json:"metal_id"`
	MarketID int64   `json:"market_id"`
	TimeID   int64   `json:"time_id"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Unit     string  `json:"unit"`
}

// PriceRow is a fact joined with its dimensions, the unit of work for analytics
type PriceRow struct {
	Price     float64   `json:"price"`
	Metal     string    `json:"metal"`
	Market    string    `json:"market"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
	Date      time.Time `json:"date"`
}

// PriceRecord is an already-classified observation, as imported from CSV
type PriceRecord struct {
	Metal     string    `json:"metal"`
	Market    string    `json:"market"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
