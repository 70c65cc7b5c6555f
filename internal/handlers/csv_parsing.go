package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/epeers/metalprices/internal/models"
)

var priceCSVColumns = []string{"metal", "market", "currency", "timestamp", "price"}

// ParsePriceCSV parses a historical price CSV into PriceRecords.
// Required columns: metal, market, currency, timestamp, price (any order, case-insensitive).
// Timestamps are RFC3339 or YYYY-MM-DD; currencies are upper-cased.
// Blank lines are skipped; any malformed row fails the whole file.
func ParsePriceCSV(r io.Reader) ([]models.PriceRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int)
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range priceCSVColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	var records []models.PriceRecord
	rowNum := 1 // header is row 1, data starts at row 2
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: failed to read CSV record: %w", rowNum+1, err)
		}
		rowNum++

		field := func(col string) string {
			return strings.TrimSpace(record[colIdx[col]])
		}

		metal, market, currency := field("metal"), field("market"), strings.ToUpper(field("currency"))
		if metal == "" || market == "" || currency == "" {
			return nil, fmt.Errorf("row %d: metal, market and currency are required", rowNum)
		}

		var ts models.FlexibleDate
		tsStr := field("timestamp")
		if err := ts.UnmarshalParam(tsStr); err != nil || ts.IsZero() {
			return nil, fmt.Errorf("row %d: invalid timestamp %q", rowNum, tsStr)
		}

		priceStr := field("price")
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price %q: %w", rowNum, priceStr, err)
		}

		records = append(records, models.PriceRecord{
			Metal:     metal,
			Market:    market,
			Currency:  currency,
			Timestamp: ts.Time.UTC().Truncate(time.Second),
			Price:     price,
		})
	}

	return records, nil
}
