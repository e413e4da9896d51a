package memory

import (
	"fmt"

	"github.com/aretw0/tableau/pkg/domain"
)

// Source implements ports.FrameSource over frames held in memory.
type Source struct {
	frames []*domain.Frame
	fps    float64
}

// NewSource creates a source that replays frames at fps.
func NewSource(fps float64, frames ...*domain.Frame) *Source {
	return &Source{
		frames: frames,
		fps:    fps,
	}
}

// NumFrames returns the number of frames.
func (s *Source) NumFrames() int {
	return len(s.frames)
}

// FPS returns the capture frame rate.
func (s *Source) FPS() float64 {
	return s.fps
}

// GetFrame returns frame index.
func (s *Source) GetFrame(index int) (*domain.Frame, error) {
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("%w: frame %d of %d", domain.ErrIndexOutOfRange, index, len(s.frames))
	}
	return s.frames[index], nil
}
