package gui

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// element holds what every control has: a label, a disabled flag and the
// panel that is told about state changes.
type element struct {
	panel    *Panel
	label    string
	mu       sync.RWMutex
	disabled bool
}

// Label returns the folder-qualified label.
func (e *element) Label() string { return e.label }

// Disabled reports whether interactive writes are rejected.
func (e *element) Disabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.disabled
}

func (e *element) checkEnabled() error {
	if e.Disabled() {
		return fmt.Errorf("%w: %s", domain.ErrControlDisabled, e.label)
	}
	return nil
}

// run invokes callbacks in order and stops at the first error.
func run[T any](ctx context.Context, label string, callbacks []func(context.Context, T) error, v T) error {
	for _, fn := range callbacks {
		if err := fn(ctx, v); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
	return nil
}

// decode converts an untyped viewer payload into out.
func decode(label string, raw, out any) error {
	if raw == nil {
		return fmt.Errorf("%w: %s: missing value", domain.ErrValidation, label)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(rejectFraction),
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrValidation, label, err)
	}
	return nil
}

// rejectFraction stops a weak decode from truncating 3.7 into an integer.
func rejectFraction(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if k := from.Kind(); k != reflect.Float32 && k != reflect.Float64 {
		return data, nil
	}
	if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not an integer", data)
	}
	return data, nil
}

// Number is the value type of a slider.
type Number interface {
	~int | ~float64
}

// Slider is a numeric control bounded to [min, max] and snapped to step.
type Slider[T Number] struct {
	element
	value     T
	min       T
	max       T
	step      T
	callbacks []func(context.Context, T) error
}

// AddSlider registers a slider on p. initial is validated like any write.
func AddSlider[T Number](p *Panel, label string, min, max, step, initial T) (*Slider[T], error) {
	if min > max || step <= 0 {
		return nil, fmt.Errorf("%w: slider %q: invalid range [%v, %v] step %v", domain.ErrValidation, label, min, max, step)
	}
	s := &Slider[T]{
		element: element{panel: p, label: p.qualify(label)},
		min:     min,
		max:     max,
		step:    step,
	}
	v, err := s.normalize(initial)
	if err != nil {
		return nil, err
	}
	s.value = v
	if err := p.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Value returns the current value.
func (s *Slider[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// OnUpdate appends a change callback.
func (s *Slider[T]) OnUpdate(fn func(ctx context.Context, v T) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// SetValue writes v programmatically, even while the slider is disabled.
// Callbacks run for every accepted write, including one that repeats the
// current value.
func (s *Slider[T]) SetValue(ctx context.Context, v T) error {
	v, err := s.normalize(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.value = v
	callbacks := append([]func(context.Context, T) error{}, s.callbacks...)
	s.mu.Unlock()

	s.panel.notify(s.State())
	return run(ctx, s.label, callbacks, v)
}

// Input writes v as a viewer would. It fails with domain.ErrControlDisabled
// while the slider is disabled.
func (s *Slider[T]) Input(ctx context.Context, v T) error {
	if err := s.checkEnabled(); err != nil {
		return err
	}
	return s.SetValue(ctx, v)
}

// SetDisabled enables or disables interactive writes.
func (s *Slider[T]) SetDisabled(disabled bool) {
	s.mu.Lock()
	changed := s.disabled != disabled
	s.disabled = disabled
	s.mu.Unlock()
	if changed {
		s.panel.notify(s.State())
	}
}

// Bounds returns min, max and step.
func (s *Slider[T]) Bounds() (min, max, step T) {
	return s.min, s.max, s.step
}

// State implements the panel view of the slider.
func (s *Slider[T]) State() domain.ControlState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kind := domain.ControlFloat
	if _, isInt := any(s.value).(int); isInt {
		kind = domain.ControlInt
	}
	min, max, step := float64(s.min), float64(s.max), float64(s.step)
	return domain.ControlState{
		Label:    s.label,
		Kind:     kind,
		Value:    s.value,
		Min:      &min,
		Max:      &max,
		Step:     &step,
		Disabled: s.disabled,
	}
}

func (s *Slider[T]) dispatch(ctx context.Context, raw any) error {
	var v T
	if err := decode(s.label, raw, &v); err != nil {
		return err
	}
	return s.Input(ctx, v)
}

// normalize rejects values outside [min, max] and snaps the rest to the
// nearest step counted from min.
func (s *Slider[T]) normalize(v T) (T, error) {
	f := float64(v)
	if math.IsNaN(f) || v < s.min || v > s.max {
		return v, fmt.Errorf("%w: %s: %v outside [%v, %v]", domain.ErrValidation, s.label, v, s.min, s.max)
	}
	lo, step := float64(s.min), float64(s.step)
	snapped := lo + math.Round((f-lo)/step)*step
	snapped = math.Round(snapped*1e9) / 1e9
	if snapped > float64(s.max) {
		snapped -= step
	}
	return T(snapped), nil
}

// Checkbox is a boolean control.
type Checkbox struct {
	element
	value     bool
	callbacks []func(context.Context, bool) error
}

// AddCheckbox registers a checkbox on p.
func AddCheckbox(p *Panel, label string, initial bool) (*Checkbox, error) {
	c := &Checkbox{
		element: element{panel: p, label: p.qualify(label)},
		value:   initial,
	}
	if err := p.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Value returns the current value.
func (c *Checkbox) Value() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// OnUpdate appends a change callback.
func (c *Checkbox) OnUpdate(fn func(ctx context.Context, v bool) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

// SetValue writes v programmatically.
func (c *Checkbox) SetValue(ctx context.Context, v bool) error {
	c.mu.Lock()
	c.value = v
	callbacks := append([]func(context.Context, bool) error{}, c.callbacks...)
	c.mu.Unlock()

	c.panel.notify(c.State())
	return run(ctx, c.label, callbacks, v)
}

// Input writes v as a viewer would.
func (c *Checkbox) Input(ctx context.Context, v bool) error {
	if err := c.checkEnabled(); err != nil {
		return err
	}
	return c.SetValue(ctx, v)
}

// SetDisabled enables or disables interactive writes.
func (c *Checkbox) SetDisabled(disabled bool) {
	c.mu.Lock()
	changed := c.disabled != disabled
	c.disabled = disabled
	c.mu.Unlock()
	if changed {
		c.panel.notify(c.State())
	}
}

// State implements the panel view of the checkbox.
func (c *Checkbox) State() domain.ControlState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ControlState{Label: c.label, Kind: domain.ControlCheckbox, Value: c.value, Disabled: c.disabled}
}

func (c *Checkbox) dispatch(ctx context.Context, raw any) error {
	var v bool
	if err := decode(c.label, raw, &v); err != nil {
		return err
	}
	return c.Input(ctx, v)
}

// Button is a momentary control. Activation carries no value.
type Button struct {
	element
	callbacks []func(context.Context) error
}

// AddButton registers a button on p.
func AddButton(p *Panel, label string) (*Button, error) {
	b := &Button{element: element{panel: p, label: p.qualify(label)}}
	if err := p.register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// OnClick appends an activation callback.
func (b *Button) OnClick(fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, fn)
}

// Activate runs the click callbacks programmatically, even while disabled.
func (b *Button) Activate(ctx context.Context) error {
	b.mu.RLock()
	callbacks := append([]func(context.Context) error{}, b.callbacks...)
	b.mu.RUnlock()

	for _, fn := range callbacks {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", b.label, err)
		}
	}
	return nil
}

// Click activates the button as a viewer would.
func (b *Button) Click(ctx context.Context) error {
	if err := b.checkEnabled(); err != nil {
		return err
	}
	return b.Activate(ctx)
}

// SetDisabled enables or disables clicks.
func (b *Button) SetDisabled(disabled bool) {
	b.mu.Lock()
	changed := b.disabled != disabled
	b.disabled = disabled
	b.mu.Unlock()
	if changed {
		b.panel.notify(b.State())
	}
}

// State implements the panel view of the button.
func (b *Button) State() domain.ControlState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.ControlState{Label: b.label, Kind: domain.ControlButton, Disabled: b.disabled}
}

func (b *Button) dispatch(ctx context.Context, _ any) error {
	return b.Click(ctx)
}
