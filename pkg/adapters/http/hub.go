package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/tableau/internal/logging"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/google/uuid"
)

const defaultViewerBuffer = 64

// Event is one server-sent event, already encoded.
type Event struct {
	Name string
	Seq  uint64
	Data []byte
}

// Viewer is a connected stream. Its channel is closed when the viewer is
// evicted or unsubscribed.
type Viewer struct {
	ID     string
	Events <-chan Event
	ch     chan Event
}

// Hub fans committed batches and GUI changes out to SSE viewers.
// It implements ports.Sink. A viewer that cannot keep up is evicted rather
// than skipped: it reconnects and starts again from a fresh snapshot, so no
// viewer ever applies a batch stream with a hole in it.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]*Viewer
	buffer  int
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets how many events may queue per viewer before it is evicted.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		h.buffer = n
	}
}

// WithHubHooks registers viewer join/leave observers.
func WithHubHooks(hooks domain.LifecycleHooks) HubOption {
	return func(h *Hub) {
		h.hooks = hooks
	}
}

// WithHubLogger configures a logger for the Hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates a hub with no viewers.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		viewers: make(map[string]*Viewer),
		buffer:  defaultViewerBuffer,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a viewer. The returned function unsubscribes it.
func (h *Hub) Subscribe(ctx context.Context) (*Viewer, func()) {
	ch := make(chan Event, h.buffer)
	v := &Viewer{ID: uuid.NewString(), Events: ch, ch: ch}

	h.mu.Lock()
	h.viewers[v.ID] = v
	h.mu.Unlock()

	h.logger.Info("Viewer connected", "viewer_id", v.ID)
	if h.hooks.OnViewerJoin != nil {
		h.hooks.OnViewerJoin(ctx, &domain.ViewerEvent{ViewerID: v.ID, Transport: "sse"})
	}

	return v, func() {
		h.mu.Lock()
		_, ok := h.viewers[v.ID]
		if ok {
			delete(h.viewers, v.ID)
			close(v.ch)
		}
		h.mu.Unlock()
		if !ok {
			return
		}
		h.logger.Info("Viewer disconnected", "viewer_id", v.ID)
		if h.hooks.OnViewerLeave != nil {
			h.hooks.OnViewerLeave(ctx, &domain.ViewerEvent{ViewerID: v.ID, Transport: "sse"})
		}
	}
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Publish sends the batch to every viewer. It never fails the commit.
func (h *Hub) Publish(ctx context.Context, b domain.Batch) error {
	data, err := codec.JSON{}.Marshal(codec.BatchMessage(b))
	if err != nil {
		return err
	}
	h.broadcast(ctx, Event{Name: string(codec.KindBatch), Seq: b.Seq, Data: data})
	return nil
}

// PublishGUI sends a control state change to every viewer.
func (h *Hub) PublishGUI(state domain.ControlState) {
	data, err := codec.JSON{}.Marshal(codec.GUIMessage(state))
	if err != nil {
		h.logger.Error("GUI state encode failed", "label", state.Label, "err", err)
		return
	}
	h.broadcast(context.Background(), Event{Name: string(codec.KindGUI), Data: data})
}

func (h *Hub) broadcast(ctx context.Context, ev Event) {
	var evicted []string

	h.mu.Lock()
	for id, v := range h.viewers {
		select {
		case v.ch <- ev:
		default:
			delete(h.viewers, id)
			close(v.ch)
			evicted = append(evicted, id)
		}
	}
	h.mu.Unlock()

	for _, id := range evicted {
		h.logger.Warn("SSE: Viewer buffer full, evicting", "viewer_id", id, "event", ev.Name)
		if h.hooks.OnViewerLeave != nil {
			h.hooks.OnViewerLeave(ctx, &domain.ViewerEvent{ViewerID: id, Transport: "sse", Evicted: true})
		}
	}
}
