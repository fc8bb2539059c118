package domain

import (
	"context"
	"time"
)

// UsageRepository updates and reads generation counters.
type UsageRepository interface {
	IncrementCounters(ctx context.Context, day time.Time, mode string, counters UsageCounters) error
	ListDay(ctx context.Context, day time.Time) ([]UsageDaily, error)
}
