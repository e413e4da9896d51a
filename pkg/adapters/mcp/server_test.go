package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/tableau/internal/testutils"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/playback"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *playback.Controller) {
	t.Helper()
	p := testutils.SetupPlayback(t, 5)
	return NewServer(p.Scene, p.Panel, p.Controller, "v-test\n"), p.Controller
}

func TestPlaybackTools(t *testing.T) {
	s, ctrl := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	st, err := s.handleStatus(ctx, req, noArgs{})
	require.NoError(t, err)
	assert.Equal(t, 5, st.NumFrames)

	st, err = s.handleSeek(ctx, req, seekArgs{Index: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentIndex)

	st, err = s.handleStep(ctx, req, stepArgs{Direction: "next"})
	require.NoError(t, err)
	assert.Equal(t, 4, st.CurrentIndex)
	st, err = s.handleStep(ctx, req, stepArgs{Direction: "next"})
	require.NoError(t, err)
	assert.Equal(t, 0, st.CurrentIndex)
	st, err = s.handleStep(ctx, req, stepArgs{Direction: "prev"})
	require.NoError(t, err)
	assert.Equal(t, 4, st.CurrentIndex)

	_, err = s.handleStep(ctx, req, stepArgs{Direction: "sideways"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	st, err = s.handleSetFPS(ctx, req, fpsArgs{FPS: 24})
	require.NoError(t, err)
	assert.InDelta(t, 24, st.FPS, 1e-9)

	st, err = s.handlePlay(ctx, req, noArgs{})
	require.NoError(t, err)
	assert.True(t, st.Playing)
	_, err = s.handleSeek(ctx, req, seekArgs{Index: 1})
	assert.ErrorIs(t, err, domain.ErrControlDisabled)

	st, err = s.handlePause(ctx, req, noArgs{})
	require.NoError(t, err)
	assert.False(t, st.Playing)
	assert.Equal(t, 4, ctrl.State().CurrentIndex)
}

func TestGUIInputTool_ConvertsStrings(t *testing.T) {
	s, ctrl := newTestServer(t)
	ctx := context.Background()

	state, err := s.handleGUIInput(ctx, mcp.CallToolRequest{}, guiInputArgs{Label: playback.LabelTimestep, Value: "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, state.Value)
	assert.Equal(t, 2, ctrl.State().CurrentIndex)

	state, err = s.handleGUIInput(ctx, mcp.CallToolRequest{}, guiInputArgs{Label: playback.LabelPlaying, Value: "true"})
	require.NoError(t, err)
	assert.Equal(t, true, state.Value)
	assert.True(t, ctrl.State().Playing)

	_, err = s.handleGUIInput(ctx, mcp.CallToolRequest{}, guiInputArgs{Label: "Playback/Missing", Value: "1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResources(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	contents, err := s.readScene(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, SceneURI, text.URI)
	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &msg))
	assert.Equal(t, "snapshot", msg["kind"])

	contents, err = s.readGUI(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	var controls []domain.ControlState
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &controls))
	assert.Len(t, controls, 5)

	assert.Contains(t, s.sceneGraph(), "class n_frames_t0 current")
}
