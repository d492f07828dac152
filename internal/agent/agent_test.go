package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"fixam/internal/analytics"
	"fixam/internal/cache"
	"fixam/internal/config"
	"fixam/internal/database"
	"fixam/internal/events"
	"fixam/internal/outbox"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	status   int
	requests []*http.Request
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	c.requests = append(c.requests, req)
	return &http.Response{
		StatusCode: c.status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

type fixture struct {
	agent  *Agent
	store  *database.LocalStore
	redis  *redis.Client
	client *recordingClient
	bus    *events.EventBus
}

func setupAgent(t *testing.T) *fixture {
	logger := zerolog.New(os.Stdout)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	store, err := database.NewLocalStore(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	client := &recordingClient{status: http.StatusOK}
	bus := events.NewEventBus()

	cfg := config.AgentConfig{
		APIBase:      "https://fixam.ng",
		CacheVersion: "v3",
		APIPrefixes:  []string{"/api/"},
	}
	router := cache.NewRouter(redisClient, client, cfg, &logger)
	queue := outbox.NewQueue(store, client, bus, 50, &logger)
	recorder := analytics.NewRecorder(store, client, cfg.APIBase+"/api/analytics", 50, &logger)

	return &fixture{
		agent:  New(router, queue, recorder, bus, cfg.APIBase, &logger),
		store:  store,
		redis:  redisClient,
		client: client,
		bus:    bus,
	}
}

func activate(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.agent.Install(ctx))
	require.NoError(t, f.agent.Activate(ctx))
}

func TestLifecycle(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()

	assert.Equal(t, StateInstalling, f.agent.State())

	var activated int
	f.bus.Subscribe(events.EventAgentActivated, func(*events.Event) error { activated++; return nil })

	require.NoError(t, f.agent.Install(ctx))
	assert.Equal(t, StateWaiting, f.agent.State())

	require.NoError(t, f.agent.Activate(ctx))
	assert.Equal(t, StateActive, f.agent.State())
	assert.Equal(t, 1, activated)

	// The lifecycle only moves forward.
	assert.Error(t, f.agent.Install(ctx))
	assert.Error(t, f.agent.Activate(ctx))

	require.NoError(t, f.agent.Retire())
	assert.Equal(t, StateRedundant, f.agent.State())

	_, err := f.agent.HandleMessage(ctx, Message{Command: CmdGetVersion})
	assert.Error(t, err)
}

func TestActivateDropsStaleCacheVersions(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()

	require.NoError(t, f.redis.Set(ctx, "cache:api:v2:https://fixam.ng/api/bookings", "stale", 0).Err())

	activate(t, f)

	keys, err := f.redis.Keys(ctx, "cache:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestGetVersion(t *testing.T) {
	f := setupAgent(t)
	activate(t, f)

	reply, err := f.agent.HandleMessage(context.Background(), Message{Command: CmdGetVersion})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, []string{"cache:static:v3", "cache:api:v3", "cache:image:v3"}, reply.Version)
}

func TestClearCacheCommand(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()
	activate(t, f)

	require.NoError(t, f.redis.Set(ctx, "cache:api:v3:https://fixam.ng/api/bookings", "x", 0).Err())

	var cleared int
	f.bus.Subscribe(events.EventCachesCleared, func(*events.Event) error { cleared++; return nil })

	reply, err := f.agent.HandleMessage(ctx, Message{Command: CmdClearCache})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, 1, cleared)

	keys, err := f.redis.Keys(ctx, "cache:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientOnlineDrainsQueues(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()
	activate(t, f)

	// One deferred mutation and one queued analytics event.
	_, err := f.agent.queue.Enqueue(ctx, http.MethodPost, "https://fixam.ng/api/bookings", nil, []byte(`{"artisan_id":2}`))
	require.NoError(t, err)
	require.NoError(t, f.agent.analytics.Record(ctx, "booking_created", json.RawMessage(`{"offline":true}`)))

	reply, err := f.agent.HandleMessage(ctx, Message{Command: CmdClientOnline})
	require.NoError(t, err)
	assert.True(t, reply.OK)

	count, err := f.store.CountOutboxEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	queued, err := f.store.ListAnalyticsEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, queued)

	// One replayed mutation plus one analytics post.
	assert.Len(t, f.client.requests, 2)
}

func TestAnalyticsEventCommand(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()
	activate(t, f)

	payload, _ := json.Marshal(map[string]interface{}{
		"name":    "page_view",
		"payload": map[string]string{"screen": "bookings"},
	})
	reply, err := f.agent.HandleMessage(ctx, Message{Command: CmdAnalyticsEvent, Payload: payload})
	require.NoError(t, err)
	assert.True(t, reply.OK)

	queued, err := f.store.ListAnalyticsEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "page_view", queued[0].Name)
}

func TestAnalyticsEventRequiresName(t *testing.T) {
	f := setupAgent(t)
	activate(t, f)

	_, err := f.agent.HandleMessage(context.Background(), Message{Command: CmdAnalyticsEvent, Payload: json.RawMessage(`{"payload":{}}`)})
	assert.Error(t, err)
}

func TestForceReloadBroadcasts(t *testing.T) {
	f := setupAgent(t)
	activate(t, f)

	var reloads int
	f.bus.Subscribe(EventForceReload, func(*events.Event) error { reloads++; return nil })

	reply, err := f.agent.HandleMessage(context.Background(), Message{Command: CmdForceReload})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, 1, reloads)
}

func TestSkipWaitingActivates(t *testing.T) {
	f := setupAgent(t)
	ctx := context.Background()
	require.NoError(t, f.agent.Install(ctx))

	reply, err := f.agent.HandleMessage(ctx, Message{Command: CmdSkipWaiting})
	require.NoError(t, err)
	assert.True(t, reply.OK)
	assert.Equal(t, StateActive, f.agent.State())
}

func TestNotifyClickBroadcasts(t *testing.T) {
	f := setupAgent(t)
	activate(t, f)

	var ref string
	f.bus.Subscribe(events.EventNotifyClick, func(e *events.Event) error {
		var payload map[string]string
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		ref = payload["booking_reference"]
		return nil
	})

	require.NoError(t, f.agent.NotifyClick("FXM-ABCD12345"))
	assert.Equal(t, "FXM-ABCD12345", ref)
}

func TestUnknownCommand(t *testing.T) {
	f := setupAgent(t)
	activate(t, f)

	_, err := f.agent.HandleMessage(context.Background(), Message{Command: Command("SELF_DESTRUCT")})
	assert.Error(t, err)
}
