package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/tableau/internal/presentation/graph"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/scene"
	"github.com/go-chi/chi/v5"
)

// Playback is the transport-control surface exposed over HTTP.
type Playback interface {
	State() domain.PlaybackState
	Seek(ctx context.Context, index int) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetFPS(ctx context.Context, fps float64) error
}

// Server serves the scene, its controls and the viewer event stream.
type Server struct {
	Scene    *scene.Scene
	Panel    *gui.Panel
	Playback Playback
	Streams  *Hub
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Version string
}

// NewHandler creates the HTTP handler for s.
// s.Streams must be the Hub registered as a sink of s.Scene for viewers to
// receive batches.
func NewHandler(s *Server) http.Handler {
	return enableCORS(s.routes())
}

func (s *Server) routes() chi.Router {
	if s.Streams == nil {
		s.Streams = NewHub()
	}
	if _, err := loadedSpec(); err != nil {
		slog.Error("OpenAPI document rejected", "error", err)
	}
	r := chi.NewRouter()

	// Swagger UI
	r.Get("/openapi.yaml", serveSpec)
	r.Get("/openapi.json", s.serveSpecJSON)
	r.Get("/swagger", serveSwagger)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/scene", func(r chi.Router) {
		r.Get("/", s.GetScene)
		r.Get("/graph", s.GetSceneGraph)
	})

	if s.Panel != nil {
		r.Route("/gui", func(r chi.Router) {
			r.Get("/", s.GetGUI)
			r.Post("/input", s.PostGUIInput)
			r.Post("/click", s.PostGUIClick)
		})
	}

	if s.Playback != nil {
		r.Route("/playback", func(r chi.Router) {
			r.Get("/", s.GetPlayback)
			r.Post("/seek", s.PostSeek)
			r.Post("/fps", s.PostFPS)
			r.Post("/{action}", s.PostPlaybackAction)
		})
	}

	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "tableau-http",
		"version": s.Version,
		"nodes":   s.Scene.Registry().Len(),
		"seq":     s.Scene.Registry().Seq(),
		"viewers": s.Streams.Len(),
	})
}

// GetScene handles the GET /scene request. The snapshot is encoded as
// MessagePack when the Accept header asks for it.
func (s *Server) GetScene(w http.ResponseWriter, r *http.Request) {
	c := codec.Negotiate(r.Header.Get("Accept"))
	data, err := c.Marshal(codec.SnapshotMessage(s.Scene.Snapshot()))
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot encode error: %v", err), http.StatusInternalServerError)
		slog.Error("GetScene: encode failed", "codec", c.Name(), "error", err)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.Write(data)
}

// GetSceneGraph handles the GET /scene/graph request (Mermaid text).
func (s *Server) GetSceneGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if s.Playback != nil {
		if st := s.Playback.State(); st.NumFrames > 0 {
			overlay = &graph.GraphOverlay{Current: playback.FramePath(st.CurrentIndex)}
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.GenerateMermaid(s.Scene.Snapshot().Nodes, overlay)))
}

// GetGUI handles the GET /gui request.
func (s *Server) GetGUI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Panel.Snapshot())
}

type guiInputRequest struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// PostGUIInput handles the POST /gui/input request: an interactive write.
func (s *Server) PostGUIInput(w http.ResponseWriter, r *http.Request) {
	var body guiInputRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.Panel.Dispatch(r.Context(), body.Label, body.Value); err != nil {
		writeError(w, "GUI input", err)
		return
	}
	state, err := s.Panel.State(body.Label)
	if err != nil {
		writeError(w, "GUI input", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// PostGUIClick handles the POST /gui/click request.
func (s *Server) PostGUIClick(w http.ResponseWriter, r *http.Request) {
	var body guiInputRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.Panel.Click(r.Context(), body.Label); err != nil {
		writeError(w, "GUI click", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPlayback handles the GET /playback request.
func (s *Server) GetPlayback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Playback.State())
}

// PostSeek handles the POST /playback/seek request.
func (s *Server) PostSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.respondPlayback(w, "Seek", s.Playback.Seek(r.Context(), body.Index))
}

// PostFPS handles the POST /playback/fps request.
func (s *Server) PostFPS(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FPS float64 `json:"fps"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.respondPlayback(w, "SetFPS", s.Playback.SetFPS(r.Context(), body.FPS))
}

// PostPlaybackAction handles POST /playback/{play,pause,next,prev}.
func (s *Server) PostPlaybackAction(w http.ResponseWriter, r *http.Request) {
	actions := map[string]func(context.Context) error{
		"play":  s.Playback.Play,
		"pause": s.Playback.Pause,
		"next":  s.Playback.Next,
		"prev":  s.Playback.Prev,
	}
	action := chi.URLParam(r, "action")
	fn, ok := actions[action]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown playback action %q", action), http.StatusNotFound)
		return
	}
	s.respondPlayback(w, action, fn(r.Context()))
}

func (s *Server) respondPlayback(w http.ResponseWriter, op string, err error) {
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Playback.State())
}

// SubscribeEvents handles the GET /events request (SSE).
//
// The viewer first receives the full scene as an "event: snapshot", then
// the GUI state as an "event: gui", then every batch committed after the
// snapshot, in order, as "event: batch" (the SSE id is the batch seq).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: Streaming not supported")
		return
	}

	// Subscribing and taking the snapshot inside the transaction scope means
	// no batch can commit in between.
	var (
		viewer *Viewer
		cancel func()
		snap   domain.Snapshot
	)
	err := s.Scene.Atomic(r.Context(), func(ctx context.Context, _ *scene.Tx) error {
		viewer, cancel = s.Streams.Subscribe(r.Context())
		snap = s.Scene.Snapshot()
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Subscribe error: %v", err), http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	data, err := codec.JSON{}.Marshal(codec.SnapshotMessage(snap))
	if err != nil {
		slog.Error("SubscribeEvents: snapshot encode failed", "error", err)
		return
	}
	writeEvent(w, Event{Name: string(codec.KindSnapshot), Seq: snap.Seq, Data: data})
	if s.Panel != nil {
		if data, err := (codec.JSON{}).Marshal(codec.GUIMessage(s.Panel.Snapshot()...)); err == nil {
			writeEvent(w, Event{Name: string(codec.KindGUI), Data: data})
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SSE Client Disconnected", "viewer_id", viewer.ID)
			return
		case ev, ok := <-viewer.Events:
			if !ok {
				fmt.Fprint(w, ": evicted\n\n")
				flusher.Flush()
				return
			}
			if ev.Name == string(codec.KindBatch) && ev.Seq <= snap.Seq {
				continue
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	fmt.Fprintf(w, "event: %s\n", ev.Name)
	if ev.Seq > 0 {
		fmt.Fprintf(w, "id: %d\n", ev.Seq)
	}
	fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}

// -- Helpers --

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
	} else {
		slog.Warn(op+" rejected", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrControlDisabled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrIndexOutOfRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
