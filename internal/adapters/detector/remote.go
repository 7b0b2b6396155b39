// Package detector talks to pose-landmark inference services.
//
// The remote service receives a JPEG frame and answers with MediaPipe Pose
// landmarks: a list of 33 normalized points ordered by pose index. An empty
// list means no body was found.
package detector

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/tailor/internal/domain/landmark"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

const (
	defaultTimeout       = 5 * time.Second
	defaultPath          = "/v1/pose"
	defaultMinVisibility = 0.5
)

type poseRequest struct {
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type posePoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type poseResponse struct {
	Landmarks []posePoint `json:"landmarks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Remote calls an HTTP pose inference service.
type Remote struct {
	client        *resty.Client
	path          string
	minVisibility float64
	logger        logger.Logger
}

// Option applies a configuration option to Remote.
type Option func(*Remote)

// WithTimeout bounds each detector call.
func WithTimeout(d time.Duration) Option {
	return func(r *Remote) {
		if d > 0 {
			r.client.SetTimeout(d)
		}
	}
}

// WithPath overrides the inference endpoint path.
func WithPath(path string) Option {
	return func(r *Remote) {
		if path != "" {
			r.path = "/" + strings.TrimPrefix(path, "/")
		}
	}
}

// WithMinVisibility drops landmarks whose visibility is below v.
func WithMinVisibility(v float64) Option {
	return func(r *Remote) {
		if v >= 0 && v <= 1 {
			r.minVisibility = v
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRemote creates a client for the service at baseURL.
func NewRemote(baseURL string, opts ...Option) *Remote {
	r := &Remote{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeader("Content-Type", "application/json"),
		path:          defaultPath,
		minVisibility: defaultMinVisibility,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Detect returns the landmarks found in frame, or nil when no body is found.
func (r *Remote) Detect(ctx context.Context, frame model.Frame) (*landmark.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jpg, err := frame.JPEG()
	if err != nil {
		return nil, fmt.Errorf("%w: encode frame: %w", ErrDetector, err)
	}

	start := time.Now()
	var out poseResponse
	var fail errorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(poseRequest{
			Image:  base64.StdEncoding.EncodeToString(jpg),
			Width:  frame.Width(),
			Height: frame.Height(),
		}).
		SetResult(&out).
		SetError(&fail).
		Post(r.path)
	metrics.RecordDetectorLatency(metrics.SinceMs(start))

	if err != nil {
		metrics.RecordDetectorError()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrDetector, err)
	}
	if resp.IsError() {
		metrics.RecordDetectorError()
		msg := fail.Error
		if msg == "" {
			msg = resp.Status()
		}
		if r.logger != nil {
			r.logger.Warn(ctx, "detector returned error",
				logger.Int("status", resp.StatusCode()),
				logger.String("message", msg),
			)
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrDetector, resp.StatusCode(), msg)
	}

	return r.toSet(out.Landmarks), nil
}

func (r *Remote) toSet(points []posePoint) *landmark.Set {
	b := landmark.NewBuilder(r.minVisibility)
	for idx, p := range points {
		name, ok := landmark.FromPoseIndex(idx)
		if !ok {
			continue
		}
		b.Add(name, landmark.Point{X: p.X, Y: p.Y, Visibility: p.Visibility})
	}
	return b.Build()
}

// Disabled is used when no inference service is configured.
type Disabled struct{}

// Detect always fails with ErrNotConfigured.
func (Disabled) Detect(context.Context, model.Frame) (*landmark.Set, error) {
	return nil, fmt.Errorf("%w: %w", ErrDetector, ErrNotConfigured)
}
