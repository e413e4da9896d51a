package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tableau/pkg/adapters/memory"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/gui"
	"github.com/aretw0/tableau/pkg/observability"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/aretw0/tableau/pkg/scene"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordSceneAndPlayback(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()

	sc := scene.New(scene.WithLifecycleHooks(hooks))
	ctrl := playback.New(sc, gui.NewPanel(), memory.NewSynthetic(memory.SyntheticConfig{Frames: 3, Points: 4, FPS: 10}),
		playback.WithLifecycleHooks(hooks))
	ctx := context.Background()
	require.NoError(t, ctrl.Initialize(ctx))

	// One transaction for /frames plus one per frame.
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Commits))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Seq))

	require.NoError(t, ctrl.Seek(ctx, 2))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CurrentFrame))

	_, err := sc.AddGeneric(ctx, "/missing/child")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rollbacks))

	require.NoError(t, ctrl.Play(ctx))
	require.NoError(t, ctrl.Tick(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CurrentFrame))
}

func TestMetrics_Viewers(t *testing.T) {
	m := observability.NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnViewerJoin(ctx, &domain.ViewerEvent{ViewerID: "a", Transport: "sse"})
	h.OnViewerJoin(ctx, &domain.ViewerEvent{ViewerID: "b", Transport: "sse"})
	h.OnViewerLeave(ctx, &domain.ViewerEvent{ViewerID: "a", Transport: "sse", Evicted: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Viewers.WithLabelValues("sse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues("sse")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `tableau_viewers{transport="sse"} 1`)
}

func TestMerge_CallsInOrder(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{
		OnCommit: func(context.Context, *domain.TransactionEvent) { calls = append(calls, "a") },
		OnTick:   func(context.Context) { calls = append(calls, "a-tick") },
	}
	b := domain.LifecycleHooks{
		OnCommit: func(context.Context, *domain.TransactionEvent) { calls = append(calls, "b") },
	}
	merged := observability.Merge(a, domain.LifecycleHooks{}, b)

	merged.OnCommit(context.Background(), &domain.TransactionEvent{})
	merged.OnTick(context.Background())
	assert.Equal(t, []string{"a", "b", "a-tick"}, calls)
	assert.Nil(t, merged.OnRollback)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := observability.LoggingHooks(logger)

	h.OnCommit(context.Background(), &domain.TransactionEvent{Seq: 9, Mutations: 2, Duration: time.Millisecond})
	h.OnViewerLeave(context.Background(), &domain.ViewerEvent{ViewerID: "v1", Transport: "sse", Evicted: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"tx_commit"`)
	assert.Contains(t, lines[0], `"seq":9`)
	assert.Contains(t, lines[1], `"evicted":true`)
}
