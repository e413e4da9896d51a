package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tableau/internal/presentation/graph"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/scene"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	SceneURI = "tableau://scene"
	GUIURI   = "tableau://gui"
)

// Playback defines the transport controls the MCP server drives.
type Playback interface {
	State() domain.PlaybackState
	Seek(ctx context.Context, index int) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetFPS(ctx context.Context, fps float64) error
}

// Server exposes a scene and its playback as an MCP Server.
type Server struct {
	scene     *scene.Scene
	panel     *gui.Panel
	playback  Playback
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sc *scene.Scene, panel *gui.Panel, pb Playback, version string) *Server {
	s := &Server{
		scene:     sc,
		panel:     panel,
		playback:  pb,
		mcpServer: server.NewMCPServer("tableau-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type noArgs struct{}

type seekArgs struct {
	Index int `json:"index"`
}

type stepArgs struct {
	Direction string `json:"direction"`
}

type fpsArgs struct {
	FPS float64 `json:"fps"`
}

type guiInputArgs struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("playback_status",
		mcp.WithDescription("Get the visible frame index, the frame count, the rate and whether playback is running."),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handleStatus))

	s.mcpServer.AddTool(mcp.NewTool("play",
		mcp.WithDescription("Start advancing one frame per tick."),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handlePlay))

	s.mcpServer.AddTool(mcp.NewTool("pause",
		mcp.WithDescription("Stop playback on the visible frame."),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handlePause))

	s.mcpServer.AddTool(mcp.NewTool("seek",
		mcp.WithDescription("Show the given frame (wraps around). Rejected while playing."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Frame index")),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handleSeek))

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Show the next or previous frame. Ignored while playing."),
		mcp.WithString("direction", mcp.Required(), mcp.Enum("next", "prev")),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("set_fps",
		mcp.WithDescription("Set the playback rate in frames per second."),
		mcp.WithNumber("fps", mcp.Required(), mcp.Description("Frames per second, 1 to 60")),
		mcp.WithOutputSchema[domain.PlaybackState](),
	), mcp.NewStructuredToolHandler(s.handleSetFPS))

	s.mcpServer.AddTool(mcp.NewTool("gui_input",
		mcp.WithDescription("Set a GUI control as a user would. The value is converted to the control's type."),
		mcp.WithString("label", mcp.Required(), mcp.Description("Control label, e.g. Playback/FPS")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value, e.g. 12.5 or true")),
		mcp.WithOutputSchema[domain.ControlState](),
	), mcp.NewStructuredToolHandler(s.handleGUIInput))

	s.mcpServer.AddTool(mcp.NewTool("get_scene_graph",
		mcp.WithDescription("Get the scene tree as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.sceneGraph()), nil
	})
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest, _ noArgs) (domain.PlaybackState, error) {
	return s.playback.State(), nil
}

func (s *Server) handlePlay(ctx context.Context, request mcp.CallToolRequest, _ noArgs) (domain.PlaybackState, error) {
	return s.respond("play", s.playback.Play(ctx))
}

func (s *Server) handlePause(ctx context.Context, request mcp.CallToolRequest, _ noArgs) (domain.PlaybackState, error) {
	return s.respond("pause", s.playback.Pause(ctx))
}

func (s *Server) handleSeek(ctx context.Context, request mcp.CallToolRequest, args seekArgs) (domain.PlaybackState, error) {
	return s.respond("seek", s.playback.Seek(ctx, args.Index))
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args stepArgs) (domain.PlaybackState, error) {
	switch args.Direction {
	case "next":
		return s.respond("step", s.playback.Next(ctx))
	case "prev":
		return s.respond("step", s.playback.Prev(ctx))
	}
	return domain.PlaybackState{}, fmt.Errorf("%w: direction must be next or prev, got %q", domain.ErrValidation, args.Direction)
}

func (s *Server) handleSetFPS(ctx context.Context, request mcp.CallToolRequest, args fpsArgs) (domain.PlaybackState, error) {
	return s.respond("set_fps", s.playback.SetFPS(ctx, args.FPS))
}

func (s *Server) handleGUIInput(ctx context.Context, request mcp.CallToolRequest, args guiInputArgs) (domain.ControlState, error) {
	if err := s.panel.Dispatch(ctx, args.Label, args.Value); err != nil {
		slog.Warn("MCP GUI input rejected", "label", args.Label, "error", err)
		return domain.ControlState{}, fmt.Errorf("gui input failed: %w", err)
	}
	return s.panel.State(args.Label)
}

func (s *Server) respond(op string, err error) (domain.PlaybackState, error) {
	if err != nil {
		slog.Warn("MCP playback command rejected", "op", op, "error", err)
		return domain.PlaybackState{}, fmt.Errorf("%s failed: %w", op, err)
	}
	return s.playback.State(), nil
}

func (s *Server) sceneGraph() string {
	var overlay *graph.GraphOverlay
	if st := s.playback.State(); st.NumFrames > 0 {
		overlay = &graph.GraphOverlay{Current: playback.FramePath(st.CurrentIndex)}
	}
	return graph.GenerateMermaid(s.scene.Snapshot().Nodes, overlay)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(SceneURI, "Scene Snapshot",
		mcp.WithMIMEType("application/json"),
	), s.readScene)

	s.mcpServer.AddResource(mcp.NewResource(GUIURI, "GUI Controls",
		mcp.WithMIMEType("application/json"),
	), s.readGUI)
}

func (s *Server) readScene(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := codec.JSON{}.Marshal(codec.SnapshotMessage(s.scene.Snapshot()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode scene: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SceneURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readGUI(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.panel.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to encode controls: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GUIURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
