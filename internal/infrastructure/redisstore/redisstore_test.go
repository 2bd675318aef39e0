package redisstore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/prestamos-api/internal/domain/entity"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIdempotency_SecondAcquireFails(t *testing.T) {
	client := getRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	ok, err := store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, key))
	ok, err = store.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotency_ConcurrentAcquireSingleWinner(t *testing.T) {
	client := getRedisClient(t)
	store := NewIdempotencyStore(client)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.Acquire(ctx, key, time.Minute); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestPubSubSink_PublishesJSON(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	channel := "test.events." + uuid.NewString()

	sub := client.Subscribe(ctx, channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	evt := entity.DomainEvent{
		ID:        uuid.NewString(),
		Type:      entity.EventRequestReturned,
		RequestID: "req-1",
		Lines:     []entity.EventLine{{ItemID: "it-1", Quantity: 2}},
	}
	require.NoError(t, NewPubSubSink(client, channel).Deliver(ctx, evt))

	select {
	case msg := <-sub.Channel():
		got, err := DecodeEvent([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, evt.ID, got.ID)
		assert.Equal(t, evt.Lines, got.Lines)
	case <-time.After(2 * time.Second):
		t.Fatal("evento no recibido")
	}
}

func TestDecodeEvent_RejectsGarbage(t *testing.T) {
	_, err := DecodeEvent([]byte("{no es json"))
	assert.Error(t, err)
}
