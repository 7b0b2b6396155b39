package main

import (
	"context"
	"fmt"

	"github.com/okian/tailor/internal/adapters/capture"
	"github.com/okian/tailor/internal/adapters/detector"
	"github.com/okian/tailor/internal/adapters/repository"
	service "github.com/okian/tailor/internal/app"
	"github.com/okian/tailor/internal/config"
	"github.com/okian/tailor/internal/history"
	"github.com/okian/tailor/pkg/logger"
)

// newPersister opens the configured history backend.
func newPersister(ctx context.Context, cfg *config.Config, log logger.Logger) (history.Persister, error) {
	switch cfg.StorageBackend {
	case config.StorageSQL:
		store, err := repository.OpenSQLStore(ctx, cfg.SQLDriver, cfg.SQLDSN, repository.WithSQLLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open sql store: %w", err)
		}
		return store, nil
	case config.StorageFile, "":
		store, err := repository.NewFileStore(cfg.StorageDir, repository.WithFileLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: storage_backend %q", config.ErrInvalidConfig, cfg.StorageBackend)
	}
}

// newDetector returns the remote detector, or one that always fails when no
// detector_url is configured.
func newDetector(cfg *config.Config, log logger.Logger) service.Detector {
	if cfg.DetectorURL == "" {
		log.Warn(context.Background(), "detector_url not set; measurements are unavailable")
		return detector.Disabled{}
	}
	return detector.NewRemote(cfg.DetectorURL,
		detector.WithTimeout(cfg.DetectorTimeout()),
		detector.WithMinVisibility(cfg.MinVisibility),
		detector.WithLogger(log),
	)
}

// openCamera opens the local camera. Failure is not fatal: clients can
// still upload images.
func openCamera(ctx context.Context, cfg *config.Config, log logger.Logger) *capture.Camera {
	if cfg.CameraDevice < 0 {
		return nil
	}
	cam, err := capture.OpenCamera(cfg.CameraDevice, capture.WithCameraLogger(log))
	if err != nil {
		log.Warn(ctx, "camera unavailable; only uploaded images will be measured",
			logger.Int("device", cfg.CameraDevice), logger.Error(err))
		return nil
	}
	return cam
}
