package tableau

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/tableau/internal/logging"
	httpAdapter "github.com/aretw0/tableau/pkg/adapters/http"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/observability"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/ports"
	"github.com/aretw0/tableau/pkg/scene"
)

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/aretw0/tableau.Version=...".
var Version = "v0.1.0-dev"

// Server is the high-level entry point: a scene, its GUI panel, the SSE
// viewer hub and a playback controller over one frame source, wired together.
type Server struct {
	Scene    *scene.Scene
	Panel    *gui.Panel
	Hub      *httpAdapter.Hub
	Playback *playback.Controller

	hooks        domain.LifecycleHooks
	metrics      *observability.Metrics
	mirrors      []ports.Sink
	guiObservers []func(domain.ControlState)
	viewerBuffer int
	playbackOpts []playback.Option
	logger       *slog.Logger
}

// Option defines a functional option for configuring the Server.
type Option func(*Server)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Server) {
		s.hooks = hooks
	}
}

// WithMetrics records lifecycle events in m and serves them at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMirror adds a best-effort sink: its failures are logged and never
// abort a commit. Viewers connected to the Hub are unaffected by it.
func WithMirror(sink ports.Sink) Option {
	return func(s *Server) {
		s.mirrors = append(s.mirrors, sink)
	}
}

// WithGUIObserver registers fn to receive every control state change.
func WithGUIObserver(fn func(domain.ControlState)) Option {
	return func(s *Server) {
		s.guiObservers = append(s.guiObservers, fn)
	}
}

// WithViewerBuffer sets how many events may queue per SSE viewer.
func WithViewerBuffer(n int) Option {
	return func(s *Server) {
		s.viewerBuffer = n
	}
}

// WithPlaybackOptions forwards options to the playback controller.
func WithPlaybackOptions(opts ...playback.Option) Option {
	return func(s *Server) {
		s.playbackOpts = append(s.playbackOpts, opts...)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New wires a server over source. Call Start to build the scene.
func New(source ports.FrameSource, opts ...Option) *Server {
	s := &Server{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	hooks := s.hooks
	if s.metrics != nil {
		hooks = observability.Merge(hooks, s.metrics.Hooks())
	}

	hubOpts := []httpAdapter.HubOption{
		httpAdapter.WithHubHooks(hooks),
		httpAdapter.WithHubLogger(s.logger),
	}
	if s.viewerBuffer > 0 {
		hubOpts = append(hubOpts, httpAdapter.WithBuffer(s.viewerBuffer))
	}
	s.Hub = httpAdapter.NewHub(hubOpts...)

	sinks := []ports.Sink{s.Hub}
	for _, m := range s.mirrors {
		sinks = append(sinks, scene.BestEffort(m, s.logger))
	}
	s.Scene = scene.New(
		scene.WithSink(scene.Fanout(sinks...)),
		scene.WithLifecycleHooks(hooks),
		scene.WithLogger(s.logger),
	)

	s.Panel = gui.NewPanel(gui.WithLogger(s.logger))
	s.Panel.OnStateChange(s.Hub.PublishGUI)
	for _, fn := range s.guiObservers {
		s.Panel.OnStateChange(fn)
	}

	pbOpts := append([]playback.Option{
		playback.WithLifecycleHooks(hooks),
		playback.WithLogger(s.logger),
	}, s.playbackOpts...)
	s.Playback = playback.New(s.Scene, s.Panel, source, pbOpts...)
	return s
}

// Start registers the playback controls and builds every frame subtree.
func (s *Server) Start(ctx context.Context) error {
	return s.Playback.Initialize(ctx)
}

// Run drives playback until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	return s.Playback.Run(ctx)
}

// Handler returns the HTTP API and viewer stream.
func (s *Server) Handler() http.Handler {
	srv := &httpAdapter.Server{
		Scene:    s.Scene,
		Panel:    s.Panel,
		Playback: s.Playback,
		Streams:  s.Hub,
		Version:  Version,
	}
	if s.metrics != nil {
		srv.Metrics = s.metrics.Handler()
	}
	return httpAdapter.NewHandler(srv)
}
