package gui

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/domain"
)

// control is the panel-side view of a registered element.
type control interface {
	Label() string
	State() domain.ControlState
	dispatch(ctx context.Context, raw any) error
}

// controls is the storage shared by a panel and its folders.
type controls struct {
	mu        sync.RWMutex
	byLabel   map[string]control
	order     []string
	observers []func(domain.ControlState)
	logger    *slog.Logger
}

// Panel is an ordered collection of controls, addressed by folder-qualified
// labels such as "Playback/Timestep".
type Panel struct {
	prefix string
	c      *controls
}

// Option configures a Panel.
type Option func(*controls)

// WithLogger configures a logger for the Panel.
func WithLogger(logger *slog.Logger) Option {
	return func(c *controls) {
		c.logger = logger
	}
}

// NewPanel creates an empty panel.
func NewPanel(opts ...Option) *Panel {
	c := &controls{
		byLabel: make(map[string]control),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &Panel{c: c}
}

// Folder returns a view of the panel whose labels are prefixed with name.
func (p *Panel) Folder(name string) *Panel {
	return &Panel{prefix: p.qualify(name), c: p.c}
}

func (p *Panel) qualify(label string) string {
	if p.prefix == "" {
		return label
	}
	return path.Join(p.prefix, label)
}

func (p *Panel) register(ctl control) error {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()

	label := ctl.Label()
	if _, exists := p.c.byLabel[label]; exists {
		return fmt.Errorf("%w: control %q already registered", domain.ErrValidation, label)
	}
	p.c.byLabel[label] = ctl
	p.c.order = append(p.c.order, label)
	p.c.logger.Debug("Control registered", "label", label)
	return nil
}

func (p *Panel) lookup(label string) (control, error) {
	p.c.mu.RLock()
	defer p.c.mu.RUnlock()

	ctl, ok := p.c.byLabel[p.qualify(label)]
	if !ok {
		return nil, fmt.Errorf("%w: control %q", domain.ErrNotFound, p.qualify(label))
	}
	return ctl, nil
}

// Dispatch delivers an interactive event to the control with the given label.
// raw is decoded into the control's value type (a JSON number, string or
// bool is accepted where it converts cleanly). Buttons ignore raw and are
// clicked.
func (p *Panel) Dispatch(ctx context.Context, label string, raw any) error {
	ctl, err := p.lookup(label)
	if err != nil {
		return err
	}
	return ctl.dispatch(ctx, raw)
}

// Click clicks the button with the given label, as a viewer would.
func (p *Panel) Click(ctx context.Context, label string) error {
	ctl, err := p.lookup(label)
	if err != nil {
		return err
	}
	btn, ok := ctl.(*Button)
	if !ok {
		return fmt.Errorf("%w: control %q is not a button", domain.ErrTypeMismatch, ctl.Label())
	}
	return btn.Click(ctx)
}

// State returns the state of a single control.
func (p *Panel) State(label string) (domain.ControlState, error) {
	ctl, err := p.lookup(label)
	if err != nil {
		return domain.ControlState{}, err
	}
	return ctl.State(), nil
}

// Snapshot returns the state of every control, in registration order.
func (p *Panel) Snapshot() []domain.ControlState {
	p.c.mu.RLock()
	defer p.c.mu.RUnlock()

	out := make([]domain.ControlState, 0, len(p.c.order))
	for _, label := range p.c.order {
		out = append(out, p.c.byLabel[label].State())
	}
	return out
}

// OnStateChange registers fn to observe value and disabled changes of every
// control. fn runs synchronously after the control's store is updated and
// before its change callbacks.
func (p *Panel) OnStateChange(fn func(domain.ControlState)) {
	p.c.mu.Lock()
	defer p.c.mu.Unlock()
	p.c.observers = append(p.c.observers, fn)
}

func (p *Panel) notify(state domain.ControlState) {
	p.c.mu.RLock()
	observers := append([]func(domain.ControlState){}, p.c.observers...)
	p.c.mu.RUnlock()

	for _, fn := range observers {
		fn(state)
	}
}
