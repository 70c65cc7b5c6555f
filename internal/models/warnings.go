package models

// WarningCode categorizes warnings by subsystem.
// W1xxx = ingestion, W2xxx = analytics.
type WarningCode string

const (
	WarnInstrumentSkipped   WarningCode = "W1001" // instrument dropped during ingestion (filtered or unresolved)
	WarnFactWriteFailed     WarningCode = "W1002" // fact upsert rejected by the store
	WarnNoData              WarningCode = "W2001" // requested slice is empty
	WarnInsufficientHistory WarningCode = "W2002" // fewer points than the analytic needs
	WarnPremiumUnavailable  WarningCode = "W2003" // one side of the spread has no price
)

// Warning represents a non-fatal issue encountered during processing.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
