package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/epeers/metalprices/internal/models"
)

type warningContextKey struct{}

// WarningCollector gathers the non-fatal problems met while answering one
// dashboard request. Analytics computed concurrently share one collector.
type WarningCollector struct {
	mu       sync.Mutex
	warnings []models.Warning
	seen     map[models.Warning]bool
}

// NewWarningContext returns a context carrying a fresh WarningCollector and
// the collector itself, so the handler can attach the warnings to its response.
func NewWarningContext(ctx context.Context) (context.Context, *WarningCollector) {
	wc := &WarningCollector{seen: make(map[models.Warning]bool)}
	return context.WithValue(ctx, warningContextKey{}, wc), wc
}

// AddWarning records w on the collector in ctx. Repeats of an identical
// warning are dropped, and a ctx without a collector ignores the call.
func AddWarning(ctx context.Context, w models.Warning) {
	wc, ok := ctx.Value(warningContextKey{}).(*WarningCollector)
	if !ok || wc == nil {
		return
	}
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if wc.seen[w] {
		return
	}
	wc.seen[w] = true
	wc.warnings = append(wc.warnings, w)
}

// Warnf formats and records a warning with code
func Warnf(ctx context.Context, code models.WarningCode, format string, args ...any) {
	AddWarning(ctx, models.Warning{Code: code, Message: fmt.Sprintf(format, args...)})
}

// GetWarnings returns the collected warnings in the order they were first raised
func (wc *WarningCollector) GetWarnings() []models.Warning {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	return append([]models.Warning(nil), wc.warnings...)
}
