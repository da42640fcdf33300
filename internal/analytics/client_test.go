package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	user string
	body map[string]interface{}
}

type collector struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func (c *collector) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _, _ := r.BasicAuth()
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{path: r.URL.Path, user: user, body: body})
		status := c.status
		c.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type stubSettings struct{ enabled bool }

func (s stubSettings) AnalyticsEnabled() bool { return s.enabled }

type memoryLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *memoryLog) Append(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func TestTrackPostsSegmentShapedBody(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", nil, nil)
	err := c.Track(context.Background(), "", "Product Viewed", map[string]interface{}{
		"title": "Ceramic Coffee Mug",
		"price": 14.99,
		"site":  "Shopsite",
	})
	require.NoError(t, err)

	require.Equal(t, 1, col.count())
	req := col.requests[0]
	assert.Equal(t, "/track", req.path)
	assert.Equal(t, "wk_test", req.user)
	assert.Equal(t, "Product Viewed", req.body["event"])
	assert.Equal(t, c.AnonymousID(), req.body["anonymousId"])
	assert.NotEmpty(t, req.body["timestamp"])

	props := req.body["properties"].(map[string]interface{})
	assert.Equal(t, 14.99, props["price"])
	assert.Equal(t, 14.99, props["revenue"])
	assert.Equal(t, "USD", props["currency"])

	evctx := req.body["context"].(map[string]interface{})
	assert.Equal(t, "owl-price-watcher", evctx["app"].(map[string]interface{})["name"])
	assert.NotEmpty(t, evctx["session"].(map[string]interface{})["id"])
}

func TestIdentifyCarriesUserIDAndTraits(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", nil, nil)
	err := c.Identify(context.Background(), "user-1", map[string]interface{}{"loginCount": 3})
	require.NoError(t, err)

	require.Equal(t, 1, col.count())
	req := col.requests[0]
	assert.Equal(t, "/identify", req.path)
	assert.Equal(t, "user-1", req.body["userId"])
	assert.Nil(t, req.body["anonymousId"])
	assert.Equal(t, float64(3), req.body["traits"].(map[string]interface{})["loginCount"])
}

func TestRepeatedTrackIsSuppressed(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", nil, nil)
	props := map[string]interface{}{"title": "Desk Lamp", "price": 30.0}
	require.NoError(t, c.Track(context.Background(), "", "Product Viewed", props))
	require.NoError(t, c.Track(context.Background(), "", "Product Viewed", props))

	assert.Equal(t, 1, col.count())
}

func TestDisabledSettingsSendNothing(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", stubSettings{enabled: false}, nil)
	require.NoError(t, c.Track(context.Background(), "", "Product Viewed", nil))
	require.NoError(t, c.Identify(context.Background(), "user-1", nil))
	require.NoError(t, c.Page(context.Background(), "", "product", nil))

	assert.Equal(t, 0, col.count())
}

func TestRejectedRequestIsDroppedNotRetried(t *testing.T) {
	col := &collector{status: http.StatusForbidden}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	log := &memoryLog{}
	c := New(srv.URL, "wk_bad", nil, log)
	err := c.Track(context.Background(), "", "Product Viewed", map[string]interface{}{"title": "Desk Lamp"})

	assert.Error(t, err)
	assert.Equal(t, 1, col.count())
	assert.Empty(t, log.entries, "rejected calls must not reach the local log")
}

func TestEventLogReceivesSentCalls(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	log := &memoryLog{}
	c := New(srv.URL, "wk_test", nil, log)
	require.NoError(t, c.Track(context.Background(), "", "Product Viewed", map[string]interface{}{"title": "Desk Lamp"}))
	require.NoError(t, c.Screen(context.Background(), "", "product", nil))

	require.Len(t, log.entries, 2)
	assert.Equal(t, "track", log.entries[0].Kind)
	assert.Equal(t, "Product Viewed", log.entries[0].Event)
	assert.Equal(t, "screen", log.entries[1].Kind)
}

func TestBatchFillsMissingIdsAndContext(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", nil, nil)
	err := c.Batch(context.Background(), []Message{
		{Type: "track", Event: "Coupons Generated"},
		{Type: "identify", UserID: "user-1", Traits: map[string]interface{}{"plan": "free"}},
	})
	require.NoError(t, err)

	require.Equal(t, 1, col.count())
	req := col.requests[0]
	assert.Equal(t, "/batch", req.path)

	batch := req.body["batch"].([]interface{})
	require.Len(t, batch, 2)
	first := batch[0].(map[string]interface{})
	assert.Equal(t, c.AnonymousID(), first["anonymousId"])
	assert.NotNil(t, first["context"])
	second := batch[1].(map[string]interface{})
	assert.Equal(t, "user-1", second["userId"])
	assert.Nil(t, second["anonymousId"])
}

func TestAliasAndGroupEndpoints(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler())
	defer srv.Close()

	c := New(srv.URL, "wk_test", nil, nil)
	require.NoError(t, c.Alias(context.Background(), c.AnonymousID(), "user-1"))
	require.NoError(t, c.Group(context.Background(), "user-1", "team-owl", map[string]interface{}{"plan": "free"}))

	require.Equal(t, 2, col.count())
	assert.Equal(t, "/alias", col.requests[0].path)
	assert.Equal(t, c.AnonymousID(), col.requests[0].body["previousId"])
	assert.Equal(t, "/group", col.requests[1].path)
	assert.Equal(t, "team-owl", col.requests[1].body["groupId"])
}
