package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
	"gocv.io/x/gocv"
)

// Camera reads frames from a local video device. Reads are serialized; one
// Camera per device.
type Camera struct {
	mu     sync.Mutex
	device int
	webcam *gocv.VideoCapture
	logger logger.Logger
}

// CameraOption applies a configuration option to the Camera.
type CameraOption func(*Camera)

// WithCameraLogger sets a custom logger for the camera.
func WithCameraLogger(l logger.Logger) CameraOption {
	return func(c *Camera) {
		if l != nil {
			c.logger = l
		}
	}
}

// OpenCamera opens video device and keeps only the latest buffered frame.
func OpenCamera(device int, opts ...CameraOption) (*Camera, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", device, err)
	}
	webcam.Set(gocv.VideoCaptureBufferSize, 1)

	c := &Camera{device: device, webcam: webcam}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Next grabs one frame. The caller must Close it.
func (c *Camera) Next(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return nil, fmt.Errorf("%w: camera %d closed", ErrNoFrame, c.device)
	}

	img := gocv.NewMat()
	if ok := c.webcam.Read(&img); !ok || img.Empty() {
		_ = img.Close()
		metrics.RecordFrameFailure()
		if c.logger != nil {
			c.logger.Warn(ctx, "camera read failed", logger.Int("device", c.device))
		}
		return nil, fmt.Errorf("%w: camera %d", ErrNoFrame, c.device)
	}
	return NewMatFrame(img), nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webcam == nil {
		return nil
	}
	err := c.webcam.Close()
	c.webcam = nil
	return err
}
