package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/tailor/internal/domain/landmark"
	"github.com/okian/tailor/internal/domain/model"
)

type fakeFrame struct {
	w, h int
}

func (f *fakeFrame) Width() int            { return f.w }
func (f *fakeFrame) Height() int           { return f.h }
func (f *fakeFrame) JPEG() ([]byte, error) { return []byte{0xFF, 0xD8}, nil }
func (f *fakeFrame) Close() error          { return nil }

// standingPose is laid out for an 800x1000 frame: shoulders 100px apart,
// arm 200px, torso 300px, hips 100px apart, inseam 400px.
func standingPose() *landmark.Set {
	b := landmark.NewBuilder(0)
	b.Add(landmark.LeftShoulder, landmark.Point{X: 0.125, Y: 0.1})
	b.Add(landmark.RightShoulder, landmark.Point{X: 0.25, Y: 0.1})
	b.Add(landmark.LeftWrist, landmark.Point{X: 0.125, Y: 0.3})
	b.Add(landmark.LeftHip, landmark.Point{X: 0.125, Y: 0.4})
	b.Add(landmark.RightHip, landmark.Point{X: 0.25, Y: 0.4})
	b.Add(landmark.LeftAnkle, landmark.Point{X: 0.125, Y: 0.8})
	return b.Build()
}

func partialPose() *landmark.Set {
	b := landmark.NewBuilder(0)
	b.Add(landmark.LeftShoulder, landmark.Point{X: 0.125, Y: 0.1})
	b.Add(landmark.RightShoulder, landmark.Point{X: 0.25, Y: 0.1})
	return b.Build()
}

type fakeDetector struct {
	mu    sync.Mutex
	set   *landmark.Set
	err   error
	calls int
}

func (d *fakeDetector) Detect(_ context.Context, _ model.Frame) (*landmark.Set, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.set, d.err
}

func (d *fakeDetector) respond(set *landmark.Set, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set, d.err = set, err
}

type fakeSource struct {
	frames []model.Frame
	closed bool
}

func (s *fakeSource) Next(context.Context) (model.Frame, error) {
	if len(s.frames) == 0 {
		return nil, model.ErrNoFrame
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type memPersister struct {
	mu      sync.Mutex
	data    map[string][]model.Record
	failErr error
	closed  bool
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]model.Record)}
}

func (p *memPersister) Load(_ context.Context, user string) ([]model.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Record(nil), p.data[user]...), nil
}

func (p *memPersister) Write(_ context.Context, user string, records []model.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.data[user] = append([]model.Record(nil), records...)
	return nil
}

func (p *memPersister) Close() error {
	p.closed = true
	return nil
}

func (p *memPersister) stored(user string) []model.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data[user]
}

var errDiskFull = errors.New("disk full")
