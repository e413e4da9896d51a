package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tableau/pkg/adapters/redis"
	"github.com/aretw0/tableau/pkg/codec"
	"github.com/aretw0/tableau/pkg/domain"
	"github.com/aretw0/tableau/pkg/scene"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestPublisher_MirrorsCommits(t *testing.T) {
	for _, c := range []codec.Codec{codec.MsgPack{}, codec.JSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			mr, client := newClient(t)
			ctx := context.Background()
			pub := redis.NewPublisher(client, redis.WithCodec(c), redis.WithPrefix("test:"))
			assert.Equal(t, "test:batches", pub.Channel())

			sub := client.Subscribe(ctx, pub.Channel())
			defer sub.Close()
			_, err := sub.Receive(ctx)
			require.NoError(t, err)

			sc := scene.New(scene.WithSink(pub))
			_, err = sc.AddFrame(ctx, "/world", domain.FramePayload{ShowAxes: true})
			require.NoError(t, err)

			select {
			case m := <-sub.Channel():
				msg, err := pub.Decode([]byte(m.Payload))
				require.NoError(t, err)
				assert.Equal(t, "batch", msg["kind"])
				assert.EqualValues(t, 1, msg["seq"])
				require.Len(t, msg["mutations"], 1)
			case <-time.After(2 * time.Second):
				t.Fatal("no batch received")
			}

			seq, err := mr.Get("test:seq")
			require.NoError(t, err)
			assert.Equal(t, "1", seq)

			require.NoError(t, pub.SaveSnapshot(ctx, sc.Snapshot()))
			raw, err := mr.Get(pub.SnapshotKey())
			require.NoError(t, err)
			snap, err := pub.Decode([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, "snapshot", snap["kind"])
			assert.Len(t, snap["nodes"], 1)
		})
	}
}

func TestPublisher_FailureRollsBackCommit(t *testing.T) {
	mr, client := newClient(t)
	pub := redis.NewPublisher(client)
	sc := scene.New(scene.WithSink(pub))

	mr.Close()
	_, err := sc.AddGeneric(context.Background(), "/a")
	require.Error(t, err)
	_, err = sc.Registry().Get("/a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, sc.Registry().Seq())
}

func TestLocker_Exclusive(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "scene", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:scene"))

	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "scene", time.Minute)
	assert.True(t, errors.Is(err, redis.ErrLockAcquire))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:scene"))

	unlock2, err := locker.Lock(ctx, "scene", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_StaleUnlockKeepsNewHolder(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "scene", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := locker.Lock(ctx, "scene", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("lock:scene"), "stale holder must not release the new lock")
	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("lock:scene"))
}

func TestLocker_HoldRefreshes(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()

	unlock, err := locker.Hold(ctx, "scene", 300*time.Millisecond)
	require.NoError(t, err)

	mr.SetTTL("lock:scene", 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("lock:scene") > 100*time.Millisecond
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("lock:scene"))
}
