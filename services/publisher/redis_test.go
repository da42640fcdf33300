package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	pub := NewRedisPublisher(ctx, "localhost:6379", 0, "test_stream_r", 1, 100)
	defer pub.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	// Test if Redis is available
	_, err := client.Ping(ctx).Result()
	if err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	err = client.XGroupCreateMkStream(ctx, "test_stream_r:0", "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		panic(err)
	}

	messages := make(chan string, 1)

	go func() {
		message, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{"test_stream_r:0", ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		assert.NoError(t, err)
		messages <- message[0].Messages[0].Values["b64_message"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	err = pub.Publish(KindProductDetected, map[string]interface{}{"title": "Ceramic Coffee Mug", "price": 14.99})
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		decoded, err := base64.StdEncoding.DecodeString(msg)
		require.NoError(t, err)

		var envelope Envelope
		require.NoError(t, json.Unmarshal(decoded, &envelope))
		assert.Equal(t, KindProductDetected, envelope.Kind)
		assert.False(t, envelope.PublishedAt.IsZero())

		payload := envelope.Payload.(map[string]interface{})
		assert.Equal(t, "Ceramic Coffee Mug", payload["title"])
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}
}
