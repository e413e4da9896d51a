package gui_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlider_CallbacksSeeNewValue(t *testing.T) {
	p := gui.NewPanel()
	s, err := gui.AddSlider(p, "Timestep", 0, 9, 1, 0)
	require.NoError(t, err)

	var calls []string
	s.OnUpdate(func(ctx context.Context, v int) error {
		assert.Equal(t, v, s.Value(), "store is updated before callbacks run")
		calls = append(calls, "first")
		return nil
	})
	s.OnUpdate(func(ctx context.Context, v int) error {
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, s.SetValue(context.Background(), 3))
	assert.Equal(t, []string{"first", "second"}, calls)
	assert.Equal(t, 3, s.Value())

	// Repeating the value still notifies.
	require.NoError(t, s.SetValue(context.Background(), 3))
	assert.Len(t, calls, 4)
}

func TestSlider_CallbackErrorStopsChain(t *testing.T) {
	p := gui.NewPanel()
	s, err := gui.AddSlider(p, "Timestep", 0, 9, 1, 0)
	require.NoError(t, err)

	boom := errors.New("boom")
	second := false
	s.OnUpdate(func(context.Context, int) error { return boom })
	s.OnUpdate(func(context.Context, int) error { second = true; return nil })

	err = s.SetValue(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.False(t, second)
}

func TestSlider_RangeAndStep(t *testing.T) {
	p := gui.NewPanel()
	fps, err := gui.AddSlider(p, "FPS", 1.0, 60.0, 0.1, 30.0)
	require.NoError(t, err)
	assert.Equal(t, 30.0, fps.Value())

	require.NoError(t, fps.SetValue(context.Background(), 12.34))
	assert.Equal(t, 12.3, fps.Value())

	assert.ErrorIs(t, fps.SetValue(context.Background(), 0.5), domain.ErrValidation)
	assert.ErrorIs(t, fps.SetValue(context.Background(), 61), domain.ErrValidation)
	assert.Equal(t, 12.3, fps.Value())

	_, err = gui.AddSlider(p, "Bad", 5, 1, 1, 3)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = gui.AddSlider(p, "Initial", 0, 1, 1, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSlider_Disabled(t *testing.T) {
	p := gui.NewPanel()
	s, err := gui.AddSlider(p, "Timestep", 0, 9, 1, 0)
	require.NoError(t, err)

	s.SetDisabled(true)
	assert.ErrorIs(t, s.Input(context.Background(), 4), domain.ErrControlDisabled)
	assert.Equal(t, 0, s.Value())

	require.NoError(t, s.SetValue(context.Background(), 4), "programmatic writes pass")
	assert.Equal(t, 4, s.Value())

	s.SetDisabled(false)
	require.NoError(t, s.Input(context.Background(), 5))
}

func TestCheckboxAndButton(t *testing.T) {
	p := gui.NewPanel()
	cb, err := gui.AddCheckbox(p, "Playing", false)
	require.NoError(t, err)
	btn, err := gui.AddButton(p, "Next Frame")
	require.NoError(t, err)

	var seen []bool
	cb.OnUpdate(func(_ context.Context, v bool) error {
		seen = append(seen, v)
		return nil
	})
	require.NoError(t, cb.Input(context.Background(), true))
	assert.Equal(t, []bool{true}, seen)

	clicks := 0
	btn.OnClick(func(context.Context) error { clicks++; return nil })
	require.NoError(t, btn.Click(context.Background()))
	btn.SetDisabled(true)
	assert.ErrorIs(t, btn.Click(context.Background()), domain.ErrControlDisabled)
	require.NoError(t, btn.Activate(context.Background()))
	assert.Equal(t, 2, clicks)
}

func TestPanel_Dispatch(t *testing.T) {
	p := gui.NewPanel()
	playback := p.Folder("Playback")
	step, err := gui.AddSlider(playback, "Timestep", 0, 9, 1, 0)
	require.NoError(t, err)
	playing, err := gui.AddCheckbox(playback, "Playing", false)
	require.NoError(t, err)
	btn, err := gui.AddButton(playback, "Next Frame")
	require.NoError(t, err)
	clicked := false
	btn.OnClick(func(context.Context) error { clicked = true; return nil })

	ctx := context.Background()
	// JSON numbers arrive as float64.
	require.NoError(t, p.Dispatch(ctx, "Playback/Timestep", float64(7)))
	assert.Equal(t, 7, step.Value())
	require.NoError(t, playback.Dispatch(ctx, "Timestep", "2"))
	assert.Equal(t, 2, step.Value())

	require.NoError(t, p.Dispatch(ctx, "Playback/Playing", true))
	assert.True(t, playing.Value())

	require.NoError(t, p.Click(ctx, "Playback/Next Frame"))
	assert.True(t, clicked)

	assert.ErrorIs(t, p.Dispatch(ctx, "Playback/Missing", 1), domain.ErrNotFound)
	assert.ErrorIs(t, p.Dispatch(ctx, "Playback/Timestep", nil), domain.ErrValidation)
	assert.ErrorIs(t, p.Dispatch(ctx, "Playback/Timestep", "seven"), domain.ErrValidation)
	assert.ErrorIs(t, p.Click(ctx, "Playback/Playing"), domain.ErrTypeMismatch)

	_, err = gui.AddButton(p, "Playback/Next Frame")
	assert.ErrorIs(t, err, domain.ErrValidation, "labels are unique")
}

func TestSlider_IntRejectsFractions(t *testing.T) {
	p := gui.NewPanel()
	step, err := gui.AddSlider(p, "Timestep", 0, 9, 1, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, raw := range []any{3.7, float32(0.5), "3.7"} {
		assert.ErrorIs(t, p.Dispatch(ctx, "Timestep", raw), domain.ErrValidation, "%v", raw)
		assert.Equal(t, 2, step.Value(), "rejected value leaves the slider untouched")
	}

	require.NoError(t, p.Dispatch(ctx, "Timestep", 3.0))
	assert.Equal(t, 3, step.Value())

	speed, err := gui.AddSlider(p, "FPS", 1.0, 60.0, 0.5, 30.0)
	require.NoError(t, err)
	require.NoError(t, p.Dispatch(ctx, "FPS", 12.5))
	assert.Equal(t, 12.5, speed.Value())
}

func TestPanel_SnapshotAndObservers(t *testing.T) {
	p := gui.NewPanel()
	var states []domain.ControlState
	p.OnStateChange(func(s domain.ControlState) { states = append(states, s) })

	step, err := gui.AddSlider(p.Folder("Playback"), "Timestep", 0, 4, 1, 0)
	require.NoError(t, err)
	_, err = gui.AddButton(p.Folder("Playback"), "Prev Frame")
	require.NoError(t, err)

	snap := p.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Playback/Timestep", snap[0].Label)
	assert.Equal(t, domain.ControlInt, snap[0].Kind)
	assert.Equal(t, 4.0, *snap[0].Max)
	assert.Equal(t, domain.ControlButton, snap[1].Kind)

	require.NoError(t, step.SetValue(context.Background(), 2))
	step.SetDisabled(true)
	step.SetDisabled(true)
	require.Len(t, states, 2)
	assert.Equal(t, 2, states[0].Value)
	assert.True(t, states[1].Disabled)

	st, err := p.State("Playback/Timestep")
	require.NoError(t, err)
	assert.True(t, st.Disabled)
}
