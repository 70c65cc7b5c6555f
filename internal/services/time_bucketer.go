package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/metalprices/internal/models"
	"github.com/epeers/metalprices/internal/util"
)

// TimeID encodes the UTC hour containing t as YYYYMMDDHH
func TimeID(t time.Time) int64 {
	h := util.TruncateHour(t)
	return int64(h.Year())*1000000 + int64(h.Month())*10000 + int64(h.Day())*100 + int64(h.Hour())
}

// NewTimeBucket derives the dim_time row for the hour containing t. Every
// instant within one hour yields an identical row.
func NewTimeBucket(t time.Time) models.TimeBucket {
	h := util.TruncateHour(t)
	return models.TimeBucket{
		ID:        TimeID(h),
		Timestamp: h,
		Date:      util.StartOfDay(h),
		Day:       h.Day(),
		Month:     int(h.Month()),
		Year:      h.Year(),
		Hour:      h.Hour(),
	}
}

// TimeBucketer ensures a dim_time row exists for each ingested hour
type TimeBucketer struct {
	store TimeStore
}

// NewTimeBucketer creates a new TimeBucketer
func NewTimeBucketer(store TimeStore) *TimeBucketer {
	return &TimeBucketer{store: store}
}

// Bucket upserts the dim_time row for t and returns its id
func (b *TimeBucketer) Bucket(ctx context.Context, t time.Time) (int64, error) {
	tb := NewTimeBucket(t)
	if err := b.store.UpsertTimeBucket(ctx, tb); err != nil {
		return 0, fmt.Errorf("failed to bucket %s: %w", tb.Timestamp.Format(time.RFC3339), err)
	}
	return tb.ID, nil
}
