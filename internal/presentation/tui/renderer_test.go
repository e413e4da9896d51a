package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/tableau/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneReport(t *testing.T) {
	frame, err := domain.NewNode("/frames", domain.NodeTypeFrame, nil)
	require.NoError(t, err)
	cloud, err := domain.NewNode("/frames/t0/point_cloud", domain.NodeTypePointCloud, nil)
	require.NoError(t, err)

	report := SceneReport(
		domain.Snapshot{Seq: 3, Nodes: []domain.Node{frame, cloud}},
		domain.PlaybackState{CurrentIndex: 1, NumFrames: 4, FPS: 30},
		[]domain.ControlState{{Label: "Playback/Playing", Kind: domain.ControlCheckbox, Value: false}},
	)

	assert.Contains(t, report, "Sequence **3**, 2 nodes.")
	assert.Contains(t, report, "| frame | 1 |")
	assert.Contains(t, report, "| point_cloud | 1 |")
	assert.Contains(t, report, "- Frame: 1 / 4")
	assert.Contains(t, report, "| Playback/Playing | checkbox | false | false |")

	out, err := NewRenderer()(report)
	require.NoError(t, err)
	assert.Contains(t, out, "Playback/Playing")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3", ":8080")
	out := buf.String()
	assert.Contains(t, out, "v1.2.3")
	assert.Contains(t, out, "http://localhost:8080")
}
