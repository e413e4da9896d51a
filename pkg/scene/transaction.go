package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errTxClosed = errors.New("transaction already finished")

type txKey struct{}

// Manager serializes all mutation of a Registry.
// It owns a single exclusive scope: one transaction runs at a time, and the
// registry is only written while that scope is held.
type Manager struct {
	scope    sync.Mutex
	registry *Registry
	sink     ports.Sink
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Manager (and the Scene built around it).
type Option func(*Manager)

// WithSink sets the publish sink. Use Fanout to publish to several sinks.
func WithSink(sink ports.Sink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// WithLifecycleHooks registers commit/rollback observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTracer overrides the OpenTelemetry tracer (default: the global provider).
func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		m.tracer = tracer
	}
}

// NewManager creates a transaction manager for reg.
func NewManager(reg *Registry, opts ...Option) *Manager {
	m := &Manager{
		registry: reg,
		logger:   logging.NewNop(),
		tracer:   otel.Tracer("github.com/aretw0/tableau/pkg/scene"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the managed registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// WithTransaction runs fn inside the exclusive scope.
//
// If fn returns nil, the collected mutations are validated, handed to the sink
// as one Batch, and applied to the registry. If fn fails (or panics), or the
// sink rejects the batch, nothing is applied and nothing is published.
//
// The context passed to fn carries the transaction: handle setters called with
// it join the transaction, and a nested WithTransaction call with it fails with
// domain.ErrReentrantTransaction.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if active := activeTx(ctx, m); active != nil {
		return fmt.Errorf("%w: %d mutations pending in the enclosing transaction", domain.ErrReentrantTransaction, len(active.muts))
	}

	ctx, span := m.tracer.Start(ctx, "scene.transaction")
	defer span.End()

	m.scope.Lock()
	defer m.scope.Unlock()

	start := time.Now()
	tx := &Tx{m: m, staged: make(map[string]stagedNode)}
	defer tx.close()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		m.rollback(ctx, span, tx, start, err)
		return err
	}
	return m.commit(ctx, span, tx, start)
}

func (m *Manager) commit(ctx context.Context, span trace.Span, tx *Tx, start time.Time) error {
	span.SetAttributes(attribute.Int("scene.mutations", len(tx.muts)))
	if len(tx.muts) == 0 {
		tx.runCommitted()
		return nil
	}

	if err := tx.validate(); err != nil {
		m.rollback(ctx, span, tx, start, err)
		return err
	}

	batch := domain.Batch{
		Seq:       m.registry.Seq() + 1,
		Mutations: tx.muts,
	}
	if m.sink != nil {
		if err := m.sink.Publish(ctx, batch); err != nil {
			err = fmt.Errorf("publish batch %d: %w", batch.Seq, err)
			m.rollback(ctx, span, tx, start, err)
			return err
		}
	}

	m.registry.apply(tx.staged, batch.Seq)
	tx.runCommitted()

	span.SetAttributes(attribute.Int64("scene.seq", int64(batch.Seq)))
	m.logger.Debug("Transaction committed", "seq", batch.Seq, "mutations", len(batch.Mutations))
	if m.hooks.OnCommit != nil {
		m.hooks.OnCommit(ctx, &domain.TransactionEvent{
			Seq:       batch.Seq,
			Mutations: len(batch.Mutations),
			Duration:  time.Since(start),
		})
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, span trace.Span, tx *Tx, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	m.logger.Debug("Transaction rolled back", "mutations", len(tx.muts), "err", err)
	if m.hooks.OnRollback != nil {
		m.hooks.OnRollback(ctx, &domain.TransactionEvent{
			Mutations: len(tx.muts),
			Duration:  time.Since(start),
			Err:       err,
		})
	}
}

// activeTx returns the open transaction of m carried by ctx, if any.
func activeTx(ctx context.Context, m *Manager) *Tx {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok || tx.m != m || tx.closed.Load() {
		return nil
	}
	return tx
}

type stagedNode struct {
	node    domain.Node
	removed bool
}

// Tx collects the mutations of one transaction.
// Reads through a Tx observe its own pending mutations; every other reader
// keeps seeing the last committed state until the transaction commits.
// A Tx is only valid inside the function passed to WithTransaction.
type Tx struct {
	m        *Manager
	staged   map[string]stagedNode
	muts     []domain.Mutation
	onCommit []func()
	closed   atomic.Bool
}

// Get returns the node at path as seen by this transaction.
func (tx *Tx) Get(path string) (domain.Node, error) {
	clean, err := domain.CleanPath(path)
	if err != nil {
		return domain.Node{}, err
	}
	n, ok := tx.lookup(clean)
	if !ok {
		return domain.Node{}, fmt.Errorf("%w: node %s", domain.ErrNotFound, clean)
	}
	return n, nil
}

// Upsert creates or replaces the node at path with a visible, untransformed
// node of the given type. A nil payload selects the type's defaults.
func (tx *Tx) Upsert(path string, typ domain.NodeType, payload domain.Payload) error {
	n, err := domain.NewNode(path, typ, payload)
	if err != nil {
		return err
	}
	return tx.UpsertNode(n)
}

// UpsertNode creates or replaces n.Path with n. The parent path must exist.
// Children of a replaced node are kept.
func (tx *Tx) UpsertNode(n domain.Node) error {
	if err := tx.check(); err != nil {
		return err
	}
	clean, err := domain.CleanPath(n.Path)
	if err != nil {
		return err
	}
	if clean == domain.RootPath {
		return fmt.Errorf("%w: the root cannot be replaced", domain.ErrInvalidPath)
	}
	if _, ok := tx.lookup(domain.ParentPath(clean)); !ok {
		return fmt.Errorf("%w: parent of %s does not exist", domain.ErrInvalidPath, clean)
	}
	n.Path = clean
	if err := n.Validate(); err != nil {
		return err
	}

	tx.staged[clean] = stagedNode{node: n}
	tx.muts = append(tx.muts, domain.Mutation{Op: domain.OpUpsert, Path: clean, Value: n})
	return nil
}

// SetField assigns value to field of the node at path.
func (tx *Tx) SetField(path string, field domain.Field, value any) error {
	if err := tx.check(); err != nil {
		return err
	}
	n, err := tx.Get(path)
	if err != nil {
		return err
	}
	value = cloneValue(value)
	updated, err := n.WithField(field, value)
	if err != nil {
		return fmt.Errorf("%s: %w", n.Path, err)
	}

	tx.staged[n.Path] = stagedNode{node: updated}
	tx.muts = append(tx.muts, domain.Mutation{Op: domain.OpSet, Path: n.Path, Field: field, Value: value})
	return nil
}

// Remove deletes the node at path together with its subtree.
func (tx *Tx) Remove(path string) error {
	if err := tx.check(); err != nil {
		return err
	}
	n, err := tx.Get(path)
	if err != nil {
		return err
	}
	if n.Path == domain.RootPath {
		return fmt.Errorf("%w: the root cannot be removed", domain.ErrInvalidPath)
	}

	doomed := tx.m.registry.descendants(n.Path)
	for p, s := range tx.staged {
		if !s.removed && domain.IsDescendant(p, n.Path) {
			doomed = append(doomed, p)
		}
	}
	doomed = append(doomed, n.Path)
	for _, p := range doomed {
		tx.staged[p] = stagedNode{removed: true}
	}
	tx.muts = append(tx.muts, domain.Mutation{Op: domain.OpRemove, Path: n.Path})
	return nil
}

// OnCommit registers fn to run after the batch has been published and applied,
// while the scope is still held. fn must not open transactions.
func (tx *Tx) OnCommit(fn func()) {
	tx.onCommit = append(tx.onCommit, fn)
}

// Mutations returns a copy of the mutations queued so far.
func (tx *Tx) Mutations() []domain.Mutation {
	out := make([]domain.Mutation, len(tx.muts))
	copy(out, tx.muts)
	return out
}

// Len returns the number of queued mutations.
func (tx *Tx) Len() int {
	return len(tx.muts)
}

func (tx *Tx) check() error {
	if tx.closed.Load() {
		return errTxClosed
	}
	return nil
}

func (tx *Tx) close() {
	tx.closed.Store(true)
}

func (tx *Tx) lookup(path string) (domain.Node, bool) {
	if s, ok := tx.staged[path]; ok {
		if s.removed {
			return domain.Node{}, false
		}
		return s.node, true
	}
	return tx.m.registry.lookup(path)
}

// validate checks every node the transaction touched, in path order so the
// reported error is deterministic.
func (tx *Tx) validate() error {
	paths := make([]string, 0, len(tx.staged))
	for p, s := range tx.staged {
		if !s.removed {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := tx.staged[p].node.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) runCommitted() {
	for _, fn := range tx.onCommit {
		fn()
	}
}

// cloneValue copies slice-backed values so later changes by the caller
// cannot reach committed nodes.
func cloneValue(v any) any {
	switch t := v.(type) {
	case [][3]float32:
		return append([][3]float32(nil), t...)
	case [][3]uint8:
		return append([][3]uint8(nil), t...)
	case domain.EncodedImage:
		t.Data = append([]byte(nil), t.Data...)
		return t
	}
	return v
}
