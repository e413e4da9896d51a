package mqtt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/tableau/pkg/adapters/mqtt"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/scene"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(paho.Token)
}

// token is an already completed paho.Token.
type token struct {
	err     error
	pending bool
}

func (t *token) Wait() bool                     { return !t.pending }
func (t *token) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *token) Error() error                   { return t.err }
func (t *token) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

func TestPublisher_SendsCommittedBatches(t *testing.T) {
	client := new(MockClient)
	var payload []byte
	client.On("Publish", "lab/batches", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) { payload = args.Get(3).([]byte) }).
		Return(&token{})

	pub := mqtt.NewPublisher(client, mqtt.Config{Topic: "lab", QoS: 1})
	sc := scene.New(scene.WithSink(pub))
	_, err := sc.AddGeneric(context.Background(), "/a")
	require.NoError(t, err)

	client.AssertNumberOfCalls(t, "Publish", 1)
	var msg map[string]any
	require.NoError(t, codec.MsgPack{}.Unmarshal(payload, &msg))
	assert.Equal(t, "batch", msg["kind"])
	assert.EqualValues(t, 1, msg["seq"])

	published, failed := pub.Stats()
	assert.EqualValues(t, 1, published)
	assert.Zero(t, failed)
}

func TestPublisher_Failures(t *testing.T) {
	tests := []struct {
		name  string
		tok   *token
		check func(t *testing.T, err error)
	}{
		{"broker error", &token{err: errors.New("not authorized")}, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "not authorized")
		}},
		{"timeout", &token{pending: true}, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, mqtt.ErrPublishTimeout)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockClient)
			client.On("Publish", "tableau/batches", byte(0), false, mock.Anything).Return(tt.tok)
			pub := mqtt.NewPublisher(client, mqtt.Config{})

			err := pub.Publish(context.Background(), domain.Batch{Seq: 3})
			tt.check(t, err)
			_, failed := pub.Stats()
			assert.EqualValues(t, 1, failed)
		})
	}
}

func TestPublisher_RetainedTopics(t *testing.T) {
	client := new(MockClient)
	client.On("Publish", "tableau/snapshot", byte(0), true, mock.Anything).Return(&token{})
	client.On("Publish", "tableau/gui/Playback/FPS", byte(0), true, mock.Anything).Return(&token{})

	pub := mqtt.NewPublisher(client, mqtt.Config{}, mqtt.WithCodec(codec.JSON{}))
	require.NoError(t, pub.PublishSnapshot(domain.Snapshot{Seq: 4}))
	pub.PublishGUI(domain.ControlState{Label: "Playback/FPS", Kind: domain.ControlFloat, Value: 12.5})

	client.AssertExpectations(t)
	payload := client.Calls[1].Arguments.Get(3).([]byte)
	assert.Contains(t, string(payload), `"label":"Playback/FPS"`)
}
