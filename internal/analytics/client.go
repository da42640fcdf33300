// Package analytics sends Segment-shaped events and suppresses
// redundant repeats of identical calls.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"owlprice/priceworker/logger"
	werrors "owlprice/priceworker/pkg/errors"
)

// Settings exposes the user-controlled flags the client honors.
type Settings interface {
	AnalyticsEnabled() bool
}

// EventLog receives a local copy of every call that went out.
type EventLog interface {
	Append(entry LogEntry)
}

// LogEntry is one line of the local analytics log.
type LogEntry struct {
	Kind      string    `json:"kind"`
	Event     string    `json:"event,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventContext is the context object attached to every call.
type EventContext struct {
	App      AppInfo     `json:"app"`
	Library  LibraryInfo `json:"library"`
	Locale   string      `json:"locale"`
	Timezone string      `json:"timezone"`
	Screen   ScreenInfo  `json:"screen"`
	Session  SessionInfo `json:"session"`
}

type AppInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type LibraryInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ScreenInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type SessionInfo struct {
	ID string `json:"id"`
}

// Message is the wire body shared by all call types.
type Message struct {
	Type        string                 `json:"type,omitempty"`
	AnonymousID string                 `json:"anonymousId,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	PreviousID  string                 `json:"previousId,omitempty"`
	GroupID     string                 `json:"groupId,omitempty"`
	Event       string                 `json:"event,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Traits      map[string]interface{} `json:"traits,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Context     *EventContext          `json:"context,omitempty"`
	Timestamp   string                 `json:"timestamp"`
}

type batchBody struct {
	Batch []Message `json:"batch"`
}

// Client posts analytics calls to a Segment-compatible collector.
// Failures are logged and dropped; nothing here retries.
type Client struct {
	http        *resty.Client
	endpoint    string
	writeKey    string
	anonymousID string
	sessionID   string

	dedup    *Deduper
	settings Settings
	eventLog EventLog
	log      *logger.Logger
	now      func() time.Time
}

// New creates a client. settings and eventLog may be nil; a nil
// settings means analytics is always on.
func New(endpoint, writeKey string, settings Settings, eventLog EventLog) *Client {
	httpClient := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:        httpClient,
		endpoint:    endpoint,
		writeKey:    writeKey,
		anonymousID: uuid.NewString(),
		sessionID:   uuid.NewString(),
		dedup:       NewDeduper(),
		settings:    settings,
		eventLog:    eventLog,
		log:         logger.ForAnalytics(),
		now:         time.Now,
	}
}

// AnonymousID returns the id this client stamps on unauthenticated calls.
func (c *Client) AnonymousID() string {
	return c.anonymousID
}

// Deduper exposes the suppression state for the maintenance sweep.
func (c *Client) Deduper() *Deduper {
	return c.dedup
}

// Identify sends user traits. userID may be empty for anonymous users.
func (c *Client) Identify(ctx context.Context, userID string, traits map[string]interface{}) error {
	if !c.enabled() {
		return nil
	}
	subject := c.subject(userID)
	if !c.dedup.ShouldSend(KindIdentify, subject, traits) {
		c.log.Debug().Str("subject", subject).Msg("identify suppressed")
		return nil
	}
	msg := c.base(userID)
	msg.Traits = traits
	return c.post(ctx, "identify", "", msg)
}

// Track sends a named event. Properties carrying a price gain a
// revenue field, and currency defaults to USD.
func (c *Client) Track(ctx context.Context, userID, event string, properties map[string]interface{}) error {
	if !c.enabled() {
		return nil
	}
	properties = enhance(properties)
	payload := map[string]interface{}{"event": event, "properties": properties}
	if !c.dedup.ShouldSend(KindTrack, c.subject(userID), payload) {
		c.log.Debug().Str("event", event).Msg("track suppressed")
		return nil
	}
	msg := c.base(userID)
	msg.Event = event
	msg.Properties = properties
	return c.post(ctx, "track", event, msg)
}

// Page records a page view.
func (c *Client) Page(ctx context.Context, userID, name string, properties map[string]interface{}) error {
	if !c.enabled() {
		return nil
	}
	msg := c.base(userID)
	msg.Name = name
	msg.Properties = properties
	return c.post(ctx, "page", name, msg)
}

// Screen records a screen view.
func (c *Client) Screen(ctx context.Context, userID, name string, properties map[string]interface{}) error {
	if !c.enabled() {
		return nil
	}
	payload := map[string]interface{}{"name": name, "properties": properties}
	if !c.dedup.ShouldSend(KindScreen, c.subject(userID), payload) {
		c.log.Debug().Str("name", name).Msg("screen suppressed")
		return nil
	}
	msg := c.base(userID)
	msg.Name = name
	msg.Properties = properties
	return c.post(ctx, "screen", name, msg)
}

// Alias links a previous id to a user id after sign-in.
func (c *Client) Alias(ctx context.Context, previousID, userID string) error {
	if !c.enabled() {
		return nil
	}
	msg := c.base(userID)
	msg.PreviousID = previousID
	return c.post(ctx, "alias", "", msg)
}

// Group attaches the user to a group.
func (c *Client) Group(ctx context.Context, userID, groupID string, traits map[string]interface{}) error {
	if !c.enabled() {
		return nil
	}
	msg := c.base(userID)
	msg.GroupID = groupID
	msg.Traits = traits
	return c.post(ctx, "group", "", msg)
}

// Batch sends several messages in one request. Each message must carry
// its own type; ids and context are filled in where missing.
func (c *Client) Batch(ctx context.Context, messages []Message) error {
	if !c.enabled() || len(messages) == 0 {
		return nil
	}
	for i := range messages {
		if messages[i].AnonymousID == "" && messages[i].UserID == "" {
			messages[i].AnonymousID = c.anonymousID
		}
		if messages[i].Context == nil {
			messages[i].Context = c.context()
		}
		if messages[i].Timestamp == "" {
			messages[i].Timestamp = c.now().UTC().Format(time.RFC3339)
		}
	}
	return c.send(ctx, "batch", "batch", batchBody{Batch: messages})
}

func (c *Client) enabled() bool {
	return c.settings == nil || c.settings.AnalyticsEnabled()
}

func (c *Client) subject(userID string) string {
	if userID != "" {
		return userID
	}
	return c.anonymousID
}

func (c *Client) base(userID string) Message {
	msg := Message{
		UserID:    userID,
		Context:   c.context(),
		Timestamp: c.now().UTC().Format(time.RFC3339),
	}
	if userID == "" {
		msg.AnonymousID = c.anonymousID
	}
	return msg
}

func (c *Client) context() *EventContext {
	return &EventContext{
		App:      AppInfo{Name: "owl-price-watcher", Version: "1.0.0"},
		Library:  LibraryInfo{Name: "priceworker-go", Version: "1.0.0"},
		Locale:   "en-US",
		Timezone: c.now().Location().String(),
		Screen:   ScreenInfo{Width: 1920, Height: 1080},
		Session:  SessionInfo{ID: c.sessionID},
	}
}

func (c *Client) post(ctx context.Context, call, event string, msg Message) error {
	return c.send(ctx, call, event, msg)
}

func (c *Client) send(ctx context.Context, call, event string, body interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.writeKey, "").
		SetBody(body).
		Post(c.endpoint + "/" + call)
	if err != nil {
		c.log.Warn().Err(err).Str("call", call).Msg("analytics request failed")
		return werrors.NewNetwork("analytics", fmt.Sprintf("%s request failed", call), err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		c.log.Warn().Int("status", resp.StatusCode()).Str("call", call).Msg("analytics collector rejected request")
		return werrors.NewAnalytics(fmt.Sprintf("%s rejected with status %d", call, resp.StatusCode()), nil)
	}
	if c.eventLog != nil {
		c.eventLog.Append(LogEntry{Kind: call, Event: event, Timestamp: c.now()})
	}
	return nil
}

func enhance(properties map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(properties)+2)
	for k, v := range properties {
		out[k] = v
	}
	if price, ok := out["price"]; ok {
		if _, has := out["revenue"]; !has {
			out["revenue"] = price
		}
	}
	if _, ok := out["currency"]; !ok {
		out["currency"] = "USD"
	}
	return out
}
