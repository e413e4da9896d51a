package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/ports"
	"github.com/aretw0/tableau/pkg/scene"
)

// Control labels registered by Initialize.
const (
	LabelTimestep = "Playback/Timestep"
	LabelNext     = "Playback/Next Frame"
	LabelPrev     = "Playback/Prev Frame"
	LabelPlaying  = "Playback/Playing"
	LabelFPS      = "Playback/FPS"
)

const (
	minFPS  = 1.0
	maxFPS  = 60.0
	fpsStep = 0.1
)

var (
	errNotInitialized     = errors.New("playback controller not initialized")
	errAlreadyInitialized = errors.New("playback controller already initialized")
)

// Controller drives which frame subtree of a scene is visible.
//
// All frame changes, whether they come from the timestep slider, the step
// buttons or the ticker, go through the timestep slider's change callback,
// which hides the old frame and shows the new one in a single transaction.
type Controller struct {
	scene  *scene.Scene
	panel  *gui.Panel
	source ports.FrameSource

	maxFrames    int
	downsample   int
	pointSize    float32
	frustumScale float64
	progress     func(done, total int)
	hooks        domain.LifecycleHooks
	logger       *slog.Logger

	initialized atomic.Bool
	numFrames   int
	// current is only written by a committing transaction.
	current atomic.Int64
	wake    chan struct{}
	// newTimer starts one wait of Run; stop releases it early.
	newTimer func(d time.Duration) (fired <-chan time.Time, stop func() bool)

	timestep *gui.Slider[int]
	next     *gui.Button
	prev     *gui.Button
	playing  *gui.Checkbox
	fps      *gui.Slider[float64]
}

// New creates a controller that loads frames from source into sc and
// registers its controls on panel.
func New(sc *scene.Scene, panel *gui.Panel, source ports.FrameSource, opts ...Option) *Controller {
	c := &Controller{
		scene:        sc,
		panel:        panel,
		source:       source,
		maxFrames:    DefaultMaxFrames,
		downsample:   DefaultDownsample,
		pointSize:    DefaultPointSize,
		frustumScale: DefaultFrustumScale,
		logger:       logging.NewNop(),
		wake:         make(chan struct{}, 1),
		newTimer:     realTimer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize registers the playback controls and builds one subtree per
// frame under /frames, with only the first frame visible. A failed Initialize
// removes the frames it built and may be retried; the controls stay
// registered and are reused.
func (c *Controller) Initialize(ctx context.Context) error {
	if !c.initialized.CompareAndSwap(false, true) {
		return errAlreadyInitialized
	}
	if err := c.initialize(ctx); err != nil {
		c.discardFrames(ctx)
		c.current.Store(0)
		c.initialized.Store(false)
		return err
	}
	c.logger.Info("Playback ready", "frames", c.numFrames, "fps", c.fps.Value())
	return nil
}

func (c *Controller) initialize(ctx context.Context) error {
	n := c.source.NumFrames()
	if c.maxFrames > 0 {
		n = min(n, c.maxFrames)
	}
	if n <= 0 {
		return fmt.Errorf("%w: frame source is empty", domain.ErrValidation)
	}
	if c.timestep != nil && n != c.numFrames {
		return fmt.Errorf("%w: frame source changed from %d to %d frames", domain.ErrValidation, c.numFrames, n)
	}
	c.numFrames = n

	if err := c.registerControls(n); err != nil {
		return err
	}
	return c.build(ctx, n)
}

// discardFrames removes whatever a failed build left under /frames.
func (c *Controller) discardFrames(ctx context.Context) {
	err := c.scene.Atomic(context.WithoutCancel(ctx), func(_ context.Context, tx *scene.Tx) error {
		if _, err := tx.Get(FramesPath); errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return tx.Remove(FramesPath)
	})
	if err != nil {
		c.logger.Warn("Discarding partial frames failed", "err", err)
	}
}

// registerControls adds the controls once; a retried Initialize reuses them.
func (c *Controller) registerControls(n int) error {
	if c.fps != nil {
		return nil
	}
	folder := c.panel.Folder("Playback")

	var err error
	if c.timestep, err = gui.AddSlider(folder, "Timestep", 0, n-1, 1, 0); err != nil {
		return err
	}
	if c.next, err = gui.AddButton(folder, "Next Frame"); err != nil {
		return err
	}
	if c.prev, err = gui.AddButton(folder, "Prev Frame"); err != nil {
		return err
	}
	if c.playing, err = gui.AddCheckbox(folder, "Playing", false); err != nil {
		return err
	}
	fps := max(minFPS, min(maxFPS, c.source.FPS()))
	if c.fps, err = gui.AddSlider(folder, "FPS", minFPS, maxFPS, fpsStep, fps); err != nil {
		return err
	}

	c.timestep.OnUpdate(func(ctx context.Context, v int) error {
		return c.transition(ctx, v)
	})
	c.next.OnClick(func(ctx context.Context) error {
		return c.step(ctx, 1)
	})
	c.prev.OnClick(func(ctx context.Context) error {
		return c.step(ctx, -1)
	})
	c.playing.OnUpdate(func(_ context.Context, on bool) error {
		c.timestep.SetDisabled(on)
		c.next.SetDisabled(on)
		c.prev.SetDisabled(on)
		select {
		case c.wake <- struct{}{}:
		default:
		}
		c.logger.Debug("Playback toggled", "playing", on)
		return nil
	})
	return nil
}

// transition makes frame requested mod n the visible one.
func (c *Controller) transition(ctx context.Context, requested int) error {
	to := mod(requested, c.numFrames)
	from := -1
	err := c.scene.Atomic(ctx, func(ctx context.Context, tx *scene.Tx) error {
		old := int(c.current.Load())
		if old == to {
			return nil
		}
		if err := tx.SetField(FramePath(old), domain.FieldVisible, false); err != nil {
			return err
		}
		if err := tx.SetField(FramePath(to), domain.FieldVisible, true); err != nil {
			return err
		}
		tx.OnCommit(func() {
			c.current.Store(int64(to))
			from = old
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("transition to frame %d: %w", to, err)
	}
	if from < 0 {
		return nil
	}

	c.logger.Debug("Frame transition", "from", from, "to", to)
	if c.hooks.OnTransition != nil {
		c.hooks.OnTransition(ctx, &domain.TransitionEvent{From: from, To: to})
	}
	return nil
}

// step moves delta frames from the visible one. It does nothing while playing.
func (c *Controller) step(ctx context.Context, delta int) error {
	if c.playing.Value() {
		return nil
	}
	return c.timestep.SetValue(ctx, mod(int(c.current.Load())+delta, c.numFrames))
}

func (c *Controller) ready() error {
	if !c.initialized.Load() || c.fps == nil {
		return errNotInitialized
	}
	return nil
}

// State returns the current playback state.
func (c *Controller) State() domain.PlaybackState {
	if c.ready() != nil {
		return domain.PlaybackState{}
	}
	return domain.PlaybackState{
		CurrentIndex: int(c.current.Load()),
		Playing:      c.playing.Value(),
		FPS:          c.fps.Value(),
		NumFrames:    c.numFrames,
	}
}

// Seek shows frame index mod n, as if the timestep slider were dragged.
// It fails with domain.ErrControlDisabled while playing.
func (c *Controller) Seek(ctx context.Context, index int) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.timestep.Input(ctx, mod(index, c.numFrames))
}

// Next shows the following frame, wrapping around. No-op while playing.
func (c *Controller) Next(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.next.Activate(ctx)
}

// Prev shows the preceding frame, wrapping around. No-op while playing.
func (c *Controller) Prev(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.prev.Activate(ctx)
}

// Play starts advancing one frame per tick.
func (c *Controller) Play(ctx context.Context) error {
	return c.SetPlaying(ctx, true)
}

// Pause stops the ticks.
func (c *Controller) Pause(ctx context.Context) error {
	return c.SetPlaying(ctx, false)
}

// SetPlaying sets the Playing checkbox.
func (c *Controller) SetPlaying(ctx context.Context, playing bool) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.playing.SetValue(ctx, playing)
}

// SetFPS sets the playback rate. The wait already in progress keeps its period.
func (c *Controller) SetFPS(ctx context.Context, fps float64) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.fps.SetValue(ctx, fps)
}

// Tick advances one frame if playing.
func (c *Controller) Tick(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !c.playing.Value() {
		return nil
	}
	if c.hooks.OnTick != nil {
		c.hooks.OnTick(ctx)
	}
	return c.timestep.SetValue(ctx, mod(int(c.current.Load())+1, c.numFrames))
}

// Run ticks every 1/fps seconds while playing, reading fps at each wake,
// until ctx is canceled. A failed tick is logged and skipped.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	for {
		if !c.playing.Value() {
			select {
			case <-ctx.Done():
				return nil
			case <-c.wake:
				continue
			}
		}

		fired, stop := c.newTimer(c.period())
		select {
		case <-ctx.Done():
			stop()
			return nil
		case <-c.wake:
			stop()
		case <-fired:
			if err := c.Tick(ctx); err != nil {
				c.logger.Warn("Tick skipped", "err", err)
			}
		}
	}
}

func realTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

func (c *Controller) period() time.Duration {
	return time.Duration(float64(time.Second) / c.fps.Value())
}

// NumFrames returns the number of frames loaded by Initialize.
func (c *Controller) NumFrames() int {
	return c.numFrames
}

// Panel returns the panel holding the playback controls.
func (c *Controller) Panel() *gui.Panel {
	return c.panel
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}
