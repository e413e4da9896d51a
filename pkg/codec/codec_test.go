package codec_test

import (
	"testing"

	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch(t *testing.T) domain.Batch {
	t.Helper()
	n, err := domain.NewNode("/pc", domain.NodeTypePointCloud, domain.PointCloudPayload{
		Points:    [][3]float32{{1, 2, 3}},
		Colors:    [][3]uint8{{255, 0, 0}},
		PointSize: 0.01,
	})
	require.NoError(t, err)
	return domain.Batch{
		Seq: 7,
		Mutations: []domain.Mutation{
			{Op: domain.OpUpsert, Path: "/pc", Value: n},
			{Op: domain.OpSet, Path: "/pc", Field: domain.FieldVisible, Value: false},
		},
	}
}

func TestCodecs_UseJSONFieldNames(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.MsgPack{}} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(codec.BatchMessage(sampleBatch(t)))
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, c.Unmarshal(data, &got))
			assert.Equal(t, "batch", got["kind"])
			assert.EqualValues(t, 7, got["seq"])

			muts := got["mutations"].([]any)
			require.Len(t, muts, 2)
			first := muts[0].(map[string]any)
			assert.Equal(t, "upsert", first["op"])
			node := first["value"].(map[string]any)
			assert.Equal(t, "point_cloud", node["type"])
			payload := node["payload"].(map[string]any)
			assert.Contains(t, payload, "point_size")

			second := muts[1].(map[string]any)
			assert.Equal(t, "visible", second["field"])
			assert.Equal(t, false, second["value"])
		})
	}
}

func TestMsgPack_IsSmallerForPointClouds(t *testing.T) {
	pts := make([][3]float32, 500)
	cols := make([][3]uint8, 500)
	for i := range pts {
		pts[i] = [3]float32{float32(i) * 0.123, 1.5, -2.25}
	}
	n, err := domain.NewNode("/pc", domain.NodeTypePointCloud, domain.PointCloudPayload{Points: pts, Colors: cols, PointSize: 1})
	require.NoError(t, err)
	snap := codec.SnapshotMessage(domain.Snapshot{Seq: 1, Nodes: []domain.Node{n}})

	j, err := codec.JSON{}.Marshal(snap)
	require.NoError(t, err)
	m, err := codec.MsgPack{}.Marshal(snap)
	require.NoError(t, err)
	assert.Less(t, len(m), len(j))
}

func TestByNameAndNegotiate(t *testing.T) {
	c, err := codec.ByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, "application/msgpack", c.ContentType())

	c, err = codec.ByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	_, err = codec.ByName("xml")
	assert.Error(t, err)

	assert.Equal(t, "msgpack", codec.Negotiate("application/msgpack").Name())
	assert.Equal(t, "json", codec.Negotiate("text/event-stream").Name())
}
