package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()

	// one shard keeps the stream name predictable
	pub := NewRedisPublisher("localhost:6379", 0, "test_stockchanges", 1, 100)
	defer pub.Close()

	if err := pub.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	err := client.XGroupCreateMkStream(ctx, "test_stockchanges:0", "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		panic(err)
	}

	messages := make(chan string, 1)

	go func() {
		message, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{"test_stockchanges:0", ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		assert.NoError(t, err)
		messages <- message[0].Messages[0].Values["b64_stockchange"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	err = pub.Publish(ctx, "b64_stockchange", []byte("test_message"))
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		// The message should be base64 encoded
		assert.Equal(t, "dGVzdF9tZXNzYWdl", msg) // base64 of "test_message"
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}
}

func TestRedisPublisherTrimStreams(t *testing.T) {
	ctx := context.Background()

	pub := NewRedisPublisher("localhost:6379", 0, "test_trim", 1, 2)
	defer pub.Close()

	if err := pub.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()
	defer client.Del(ctx, "test_trim:0")

	for i := 0; i < 5; i++ {
		err := pub.Publish(ctx, "b64_stockchange", []byte("message"))
		assert.NoError(t, err)
	}

	err := pub.TrimStreams(ctx)
	assert.NoError(t, err)

	length, err := client.XLen(ctx, "test_trim:0").Result()
	assert.NoError(t, err)
	assert.LessOrEqual(t, length, int64(2))
}
