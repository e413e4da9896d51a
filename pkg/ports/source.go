package ports

import "github.com/aretw0/tableau/pkg/domain"

// FrameSource provides prerecorded frames to the playback controller.
// Parsing the capture format is the implementation's concern.
type FrameSource interface {
	// NumFrames returns the number of frames available.
	NumFrames() int

	// FPS returns the capture frame rate.
	FPS() float64

	// GetFrame returns frame index.
	// Returns domain.ErrIndexOutOfRange unless 0 <= index < NumFrames().
	GetFrame(index int) (*domain.Frame, error)
}
