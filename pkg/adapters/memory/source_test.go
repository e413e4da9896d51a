package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tableau/pkg/adapters/memory"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthetic_Contract(t *testing.T) {
	src := memory.NewSynthetic(memory.SyntheticConfig{Frames: 4, Points: 32, FPS: 10})
	ports.RunFrameSourceContract(t, src)
}

func TestSource_Contract(t *testing.T) {
	frame := &domain.Frame{
		Points:     [][3]float32{{0, 0, 0}},
		Colors:     [][3]uint8{{1, 2, 3}},
		Image:      domain.RGBImage{Width: 1, Height: 1, Pix: []uint8{0, 0, 0}},
		Intrinsics: domain.Intrinsics{Fx: 1, ImageWidth: 1, ImageHeight: 1},
	}
	ports.RunFrameSourceContract(t, memory.NewSource(30, frame, frame))
}

func TestSynthetic_CameraPoseIsRigid(t *testing.T) {
	src := memory.NewSynthetic(memory.SyntheticConfig{Frames: 3, Points: 8, FPS: 10})
	f, err := src.GetFrame(1)
	require.NoError(t, err)

	q := domain.QuatFromMatrix(f.CameraPose)
	v := q.Rotate(domain.Vec3{0, 0, 1})
	assert.InDelta(t, 1, v[0]*v[0]+v[1]*v[1]+v[2]*v[2], 1e-9)
	assert.Equal(t, 1.0, f.CameraPose[3][3])
}

func TestRecorder(t *testing.T) {
	r := memory.NewRecorder()
	ctx := context.Background()

	_, ok := r.Last()
	assert.False(t, ok)

	require.NoError(t, r.Publish(ctx, domain.Batch{Seq: 1}))
	down := errors.New("down")
	r.FailWith(down)
	assert.ErrorIs(t, r.Publish(ctx, domain.Batch{Seq: 2}), down)
	r.FailWith(nil)
	require.NoError(t, r.Publish(ctx, domain.Batch{Seq: 3}))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(3), last.Seq)
	assert.Len(t, r.Batches(), 2)

	r.Reset()
	assert.Empty(t, r.Batches())
}
