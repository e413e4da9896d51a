package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tableau/internal/testutils"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/scene"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	scene   *scene.Scene
	panel   *gui.Panel
	ctrl    *playback.Controller
	hub     *Hub
	handler http.Handler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{hub: NewHub()}
	p := testutils.SetupPlayback(t, 4, f.hub)
	f.scene, f.panel, f.ctrl = p.Scene, p.Panel, p.Controller
	f.panel.OnStateChange(f.hub.PublishGUI)

	f.handler = NewHandler(&Server{
		Scene:    f.scene,
		Panel:    f.panel,
		Playback: f.ctrl,
		Streams:  f.hub,
		Version:  "test",
	})
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = f.do(t, "GET", "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "test", info["version"])
	assert.EqualValues(t, f.scene.Registry().Len(), info["nodes"])
	assert.EqualValues(t, f.scene.Registry().Seq(), info["seq"])
}

func TestGetScene_Negotiates(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/scene", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "snapshot", got["kind"])
	assert.Len(t, got["nodes"], f.scene.Registry().Len()-1)

	req := httptest.NewRequest("GET", "/scene", nil)
	req.Header.Set("Accept", "application/msgpack")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, codec.MsgPack{}.ContentType(), rec.Header().Get("Content-Type"))

	var packed map[string]any
	require.NoError(t, codec.MsgPack{}.Unmarshal(rec.Body.Bytes(), &packed))
	assert.Equal(t, "snapshot", packed["kind"])
	assert.Less(t, rec.Body.Len(), w.Body.Len())
}

func TestGetSceneGraph(t *testing.T) {
	f := setup(t)
	w := f.do(t, "GET", "/scene/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "graph TD"))
	assert.Contains(t, body, "class n_frames_t0 current")
}

func TestGUI_InputAndClick(t *testing.T) {
	f := setup(t)

	w := f.do(t, "POST", "/gui/input", map[string]any{"label": playback.LabelTimestep, "value": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 2, f.ctrl.State().CurrentIndex)

	w = f.do(t, "POST", "/gui/click", map[string]any{"label": playback.LabelNext})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 3, f.ctrl.State().CurrentIndex)

	w = f.do(t, "GET", "/gui", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var controls []domain.ControlState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &controls))
	assert.Len(t, controls, 5)

	tests := []struct {
		name   string
		target string
		body   any
		status int
	}{
		{"unknown label", "/gui/input", map[string]any{"label": "nope", "value": 1}, http.StatusNotFound},
		{"bad value", "/gui/input", map[string]any{"label": playback.LabelTimestep, "value": "x"}, http.StatusBadRequest},
		{"out of range", "/gui/input", map[string]any{"label": playback.LabelTimestep, "value": 99}, http.StatusBadRequest},
		{"click a slider", "/gui/click", map[string]any{"label": playback.LabelFPS}, http.StatusBadRequest},
		{"malformed body", "/gui/input", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestPlaybackRoutes(t *testing.T) {
	f := setup(t)

	decode := func(w *httptest.ResponseRecorder) domain.PlaybackState {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var st domain.PlaybackState
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		return st
	}

	st := decode(f.do(t, "GET", "/playback", nil))
	assert.Equal(t, 4, st.NumFrames)
	assert.Equal(t, 0, st.CurrentIndex)

	assert.Equal(t, 3, decode(f.do(t, "POST", "/playback/prev", nil)).CurrentIndex)
	assert.Equal(t, 0, decode(f.do(t, "POST", "/playback/next", nil)).CurrentIndex)
	assert.Equal(t, 2, decode(f.do(t, "POST", "/playback/seek", map[string]int{"index": 6})).CurrentIndex)
	assert.InDelta(t, 12.5, decode(f.do(t, "POST", "/playback/fps", map[string]float64{"fps": 12.5})).FPS, 1e-9)

	assert.True(t, decode(f.do(t, "POST", "/playback/play", nil)).Playing)
	w := f.do(t, "POST", "/playback/seek", map[string]int{"index": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 2, decode(f.do(t, "POST", "/playback/next", nil)).CurrentIndex)
	assert.False(t, decode(f.do(t, "POST", "/playback/pause", nil)).Playing)

	w = f.do(t, "POST", "/playback/rewind", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "POST", "/playback/fps", map[string]float64{"fps": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type sseEvent struct {
	name string
	id   uint64
	data string
}

func readEvent(t *testing.T, sc *bufio.Scanner) sseEvent {
	t.Helper()
	var ev sseEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			id, err := strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
			require.NoError(t, err)
			ev.id = id
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NoError(t, sc.Err())
	t.Fatal("stream ended before a complete event")
	return ev
}

func TestSubscribeEvents_SnapshotThenBatches(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)

	snap := readEvent(t, sc)
	require.Equal(t, "snapshot", snap.name)
	assert.Equal(t, f.scene.Registry().Seq(), snap.id)
	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(snap.data), &msg))
	assert.Len(t, msg["nodes"], f.scene.Registry().Len()-1)

	guiEv := readEvent(t, sc)
	assert.Equal(t, "gui", guiEv.name)

	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, f.ctrl.Seek(context.Background(), 1))

	var batch sseEvent
	for batch.name != "batch" {
		batch = readEvent(t, sc)
	}
	assert.Equal(t, snap.id+1, batch.id)
	require.NoError(t, json.Unmarshal([]byte(batch.data), &msg))
	muts := msg["mutations"].([]any)
	require.Len(t, muts, 2)
	assert.Equal(t, "/frames/t0", muts[0].(map[string]any)["path"])
	assert.Equal(t, false, muts[0].(map[string]any)["value"])
	assert.Equal(t, "/frames/t1", muts[1].(map[string]any)["path"])

	cancel()
	assert.Eventually(t, func() bool { return f.hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_EvictsSlowViewer(t *testing.T) {
	var left []*domain.ViewerEvent
	hub := NewHub(WithBuffer(1), WithHubHooks(domain.LifecycleHooks{
		OnViewerLeave: func(_ context.Context, ev *domain.ViewerEvent) { left = append(left, ev) },
	}))
	ctx := context.Background()

	slow, unsubscribe := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.Len())

	require.NoError(t, hub.Publish(ctx, domain.Batch{Seq: 1}))
	require.NoError(t, hub.Publish(ctx, domain.Batch{Seq: 2}))
	assert.Equal(t, 0, hub.Len())

	ev, ok := <-slow.Events
	require.True(t, ok)
	assert.EqualValues(t, 1, ev.Seq)
	_, ok = <-slow.Events
	assert.False(t, ok, "channel closed on eviction")

	require.Len(t, left, 1)
	assert.True(t, left[0].Evicted)
	assert.Equal(t, slow.ID, left[0].ViewerID)

	unsubscribe()
	assert.Len(t, left, 1, "unsubscribe after eviction is a no-op")
}

func TestHub_PublishGUI(t *testing.T) {
	hub := NewHub()
	v, unsubscribe := hub.Subscribe(context.Background())
	defer unsubscribe()

	hub.PublishGUI(domain.ControlState{Label: "Playback/Playing", Kind: domain.ControlCheckbox, Value: true})
	ev := <-v.Events
	assert.Equal(t, "gui", ev.Name)
	assert.Contains(t, string(ev.Data), `"label":"Playback/Playing"`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrControlDisabled, http.StatusConflict},
		{domain.ErrValidation, http.StatusBadRequest},
		{domain.ErrTypeMismatch, http.StatusBadRequest},
		{domain.ErrInvalidPath, http.StatusBadRequest},
		{domain.ErrIndexOutOfRange, http.StatusBadRequest},
		{domain.ErrReentrantTransaction, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestOpenAPI_DocumentsEveryRoute(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)

	f := setup(t)
	s := &Server{Scene: f.scene, Panel: f.panel, Playback: f.ctrl, Streams: f.hub, Metrics: http.NotFoundHandler()}
	err = chi.Walk(s.routes(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		item := doc.Paths.Value(route)
		if !assert.NotNil(t, item, "undocumented route %s", route) {
			return nil
		}
		assert.NotNil(t, item.GetOperation(method), "undocumented operation %s %s", method, route)
		return nil
	})
	require.NoError(t, err)

	w := f.do(t, "GET", "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "title: Tableau API")
}

func TestOpenAPI_ServesValidatedDocument(t *testing.T) {
	f := setup(t)
	w := f.do(t, "GET", "/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var served openapi3.T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &served))
	require.NotNil(t, served.Info)
	assert.Equal(t, "test", served.Info.Version, "versioned by the running build")
	assert.NotNil(t, served.Paths.Value("/scene"))

	// The cached document itself is left untouched.
	doc, err := loadedSpec()
	require.NoError(t, err)
	assert.NotEqual(t, "test", doc.Info.Version)
}
