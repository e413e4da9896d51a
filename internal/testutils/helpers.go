package testutils

import (
	"context"
	"testing"

	"github.com/aretw0/tableau/pkg/adapters/memory"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/ports"
	"github.com/aretw0/tableau/pkg/scene"
	"github.com/stretchr/testify/require"
)

// Playback bundles a scene with an initialized controller over a synthetic capture.
type Playback struct {
	Scene      *scene.Scene
	Panel      *gui.Panel
	Controller *playback.Controller
	// Recorder holds every batch committed after setup.
	Recorder *memory.Recorder
}

// SetupPlayback builds frames synthetic frames into a fresh scene whose
// batches go to a recorder and to sinks.
// It fails the test immediately on error.
func SetupPlayback(t *testing.T, frames int, sinks ...ports.Sink) *Playback {
	t.Helper()

	rec := memory.NewRecorder()
	p := &Playback{
		Scene:    scene.New(scene.WithSink(scene.Fanout(append([]ports.Sink{rec}, sinks...)...))),
		Panel:    gui.NewPanel(),
		Recorder: rec,
	}
	src := memory.NewSynthetic(memory.SyntheticConfig{Frames: frames, Points: 8, FPS: 10, ImageWidth: 8, ImageHeight: 6})
	p.Controller = playback.New(p.Scene, p.Panel, src)
	require.NoError(t, p.Controller.Initialize(context.Background()), "Failed to initialize playback")

	rec.Reset()
	return p
}
