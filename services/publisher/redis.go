package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"math/rand"

	"github.com/redis/go-redis/v9"

	"owlprice/priceworker/logger"
)

// RedisPublisher implements Publisher over Redis streams
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamCount     int
	streamMaxLength int
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher(),
	}
}

// Publish wraps the payload in an envelope and publishes it to a
// Redis stream. The envelope is base64 encoded before publishing.
func (p *RedisPublisher) Publish(kind Kind, payload interface{}) error {
	envelope := Envelope{
		Kind:        kind,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}
	message, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	// random stream name by streamCount
	// if streamCount is 10, stream name will be stream:0 ~ stream:9
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.Intn(p.streamCount))

	if err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"b64_message": encodedMessage,
		},
	}).Err(); err != nil {
		return err
	}

	p.log.Debug().Str("kind", string(kind)).Str("stream", stream).Msg("published message")
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return err
	}

	for _, stream := range streams {
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return err
		}
	}

	p.log.Debug().Int("streams", len(streams)).Msg("trimmed streams")
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
