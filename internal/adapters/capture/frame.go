// Package capture acquires frames from a local camera or uploaded images
// using OpenCV.
package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MatFrame adapts a gocv.Mat to model.Frame. The frame owns the Mat.
type MatFrame struct {
	mu     sync.Mutex
	mat    gocv.Mat
	closed bool
}

// NewMatFrame takes ownership of mat.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

func (f *MatFrame) Width() int {
	return f.mat.Cols()
}

func (f *MatFrame) Height() int {
	return f.mat.Rows()
}

// JPEG encodes the frame for transport.
func (f *MatFrame) JPEG() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.mat.Empty() {
		return nil, ErrNoFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the Mat. Safe to call more than once.
func (f *MatFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.mat.Close()
}
