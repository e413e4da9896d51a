package ports

import (
	"testing"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFrameSourceContract runs a suite of tests to verify that a FrameSource
// implementation adheres to the defined interface contract.
func RunFrameSourceContract(t *testing.T, src FrameSource) {
	t.Helper()

	t.Run("Metadata", func(t *testing.T) {
		assert.Positive(t, src.NumFrames(), "NumFrames should be positive")
		assert.Positive(t, src.FPS(), "FPS should be positive")
	})

	t.Run("Every Index Loads", func(t *testing.T) {
		for i := 0; i < src.NumFrames(); i++ {
			frame, err := src.GetFrame(i)
			require.NoError(t, err, "GetFrame(%d)", i)
			require.NotNil(t, frame)
			assert.Len(t, frame.Colors, len(frame.Points), "frame %d: one color per point", i)
			assert.Len(t, frame.Image.Pix, frame.Image.Width*frame.Image.Height*3, "frame %d: RGB buffer size", i)
			assert.Positive(t, frame.Intrinsics.Fx, "frame %d: fx", i)
		}
	})

	t.Run("Out Of Range", func(t *testing.T) {
		_, err := src.GetFrame(-1)
		assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
		_, err = src.GetFrame(src.NumFrames())
		assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	})
}
