package probe

import (
	"context"
	"fmt"

	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
)

const percentageMultiplier = 100

// verifyMeasurements checks the invariants every measurement set holds.
func verifyMeasurements(set measurement.Set) error {
	for _, e := range set.Entries() {
		if e.Value < 0 {
			return fmt.Errorf("%w: %s is negative (%v)", ErrProbe, e.Name, e.Value)
		}
	}
	if set.Inseam != set.LegLength {
		return fmt.Errorf("%w: inseam %v differs from leg length %v", ErrProbe, set.Inseam, set.LegLength)
	}
	return nil
}

// verifyHistory checks that exactly one record was appended and that it is
// the saved one.
func verifyHistory(before int, after []model.Record, saved model.Record) error {
	if len(after) != before+1 {
		return fmt.Errorf("%w: history grew from %d to %d records, want one", ErrProbe, before, len(after))
	}
	last := after[len(after)-1]
	if last.Timestamp != saved.Timestamp || last.Measurements != saved.Measurements {
		return fmt.Errorf("%w: last history record does not match the saved record", ErrProbe)
	}
	if len(after) > 1 && after[len(after)-2].Timestamp > last.Timestamp {
		return fmt.Errorf("%w: history timestamps decrease", ErrProbe)
	}
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate float64
	if stats.SessionsRun > 0 {
		successRate = float64(stats.SessionsRun-stats.SessionsFailed) / float64(stats.SessionsRun) * percentageMultiplier
	}

	log.Info(ctx, "final statistics",
		logger.Int("sessionsRun", stats.SessionsRun),
		logger.Int("sessionsFailed", stats.SessionsFailed),
		logger.Int("measured", stats.Measured),
		logger.Int("saved", stats.Saved),
		logger.Int("duplicates", stats.Duplicates),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate))
}
