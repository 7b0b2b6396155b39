package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/pkg/logger"
)

// Run executes one round trip per session and verifies the server's answers.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	log.Info(ctx, "starting tailor probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("camera", cfg.ImagePath == ""))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	image, err := loadImage(cfg.ImagePath)
	if err != nil {
		return stats, err
	}

	sessions := cfg.Sessions
	if sessions <= 0 {
		sessions = 1
	}

	var (
		failed, measured, saved, dups int64
		wg                            sync.WaitGroup
	)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := cfg.User
			if sessions > 1 {
				user += "-" + strconv.Itoa(n)
			}
			r, err := roundTrip(ctx, c, image, user)
			atomic.AddInt64(&measured, int64(r.measured))
			atomic.AddInt64(&saved, int64(r.saved))
			atomic.AddInt64(&dups, int64(r.duplicates))
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Error(ctx, "session failed", logger.Int("session", n), logger.String("user", user), logger.Error(err))
				return
			}
			if cfg.Verbose {
				log.Info(ctx, "session passed",
					logger.Int("session", n),
					logger.String("user", user),
					logger.Float64("scaleFactor", r.scale),
					logger.Any("measurements", r.set))
			}
		}(i)
	}
	wg.Wait()

	stats.SessionsRun = sessions
	stats.SessionsFailed = int(failed)
	stats.Measured = int(measured)
	stats.Saved = int(saved)
	stats.Duplicates = int(dups)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, log, stats)

	if stats.SessionsFailed > 0 {
		return stats, fmt.Errorf("%w: %d of %d sessions failed", ErrProbe, stats.SessionsFailed, sessions)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// loadImage reads path and returns it base64 encoded. Empty path returns "".
func loadImage(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

type result struct {
	scale      float64
	set        measurement.Set
	measured   int
	saved      int
	duplicates int
}

// roundTrip runs calibrate, measure, save, a duplicate save and a history
// check on a fresh session.
func roundTrip(ctx context.Context, c *client, image, user string) (result, error) {
	var r result

	id, err := c.openSession(ctx)
	if err != nil {
		return r, err
	}
	defer func() {
		_ = c.closeSession(context.WithoutCancel(ctx), id)
	}()

	before, err := c.history(ctx, user)
	if err != nil {
		return r, err
	}

	cal, err := c.calibrate(ctx, id, image)
	if err != nil {
		return r, err
	}
	if cal.ScaleFactor <= 0 {
		return r, fmt.Errorf("%w: non-positive scale factor %v", ErrProbe, cal.ScaleFactor)
	}
	r.scale = cal.ScaleFactor

	m, err := c.measure(ctx, id, image)
	if err != nil {
		return r, err
	}
	r.measured++
	r.set = m.Measurements
	if err := verifyMeasurements(m.Measurements); err != nil {
		return r, err
	}

	requestID := uuid.NewString()
	first, err := c.save(ctx, id, user, requestID)
	if err != nil {
		return r, err
	}
	if first.Duplicate || first.Record == nil {
		return r, fmt.Errorf("%w: first save returned no record", ErrProbe)
	}
	r.saved++

	retry, err := c.save(ctx, id, user, requestID)
	if err != nil {
		return r, err
	}
	if !retry.Duplicate {
		return r, fmt.Errorf("%w: retried save was not deduplicated", ErrProbe)
	}
	r.duplicates++

	after, err := c.history(ctx, user)
	if err != nil {
		return r, err
	}
	return r, verifyHistory(len(before), after, *first.Record)
}
