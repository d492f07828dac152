package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fixam/internal/analytics"
	"fixam/internal/cache"
	"fixam/internal/domain"
	"fixam/internal/events"
	"fixam/internal/outbox"

	"github.com/rs/zerolog"
)

// State is the agent's lifecycle phase.
type State int

const (
	StateInstalling State = iota
	StateWaiting
	StateActive
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	}
	return "unknown"
}

// Command is the closed set of messages the foreground page can send.
type Command string

const (
	CmdSkipWaiting    Command = "SKIP_WAITING"
	CmdClearCache     Command = "CLEAR_CACHE"
	CmdGetVersion     Command = "GET_VERSION"
	CmdForceReload    Command = "FORCE_RELOAD"
	CmdClientOnline   Command = "CLIENT_ONLINE"
	CmdAnalyticsEvent Command = "ANALYTICS_EVENT"
)

// EventForceReload tells subscribed pages to reload themselves.
const EventForceReload = "FORCE_RELOAD"

// Message is one command from the page; Payload is command-specific.
type Message struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Reply is the agent's answer to a command.
type Reply struct {
	OK      bool        `json:"ok"`
	Version []string    `json:"version,omitempty"`
	Detail  interface{} `json:"detail,omitempty"`
}

type handlerFunc func(ctx context.Context, payload json.RawMessage) (Reply, error)

// Agent is the offline sync worker: it owns the cache router, the outbox and
// the analytics queue, and exposes a command surface to the page. Its
// lifecycle moves installing → waiting → active → redundant, never backward.
type Agent struct {
	mu        sync.Mutex
	state     State
	handlers  map[Command]handlerFunc
	router    *cache.Router
	queue     *outbox.Queue
	analytics *analytics.Recorder
	bus       domain.EventPublisher
	origin    string
	logger    *zerolog.Logger
}

func New(router *cache.Router, queue *outbox.Queue, recorder *analytics.Recorder, bus domain.EventPublisher, origin string, logger *zerolog.Logger) *Agent {
	a := &Agent{
		state:     StateInstalling,
		router:    router,
		queue:     queue,
		analytics: recorder,
		bus:       bus,
		origin:    origin,
		logger:    logger,
	}
	a.handlers = map[Command]handlerFunc{
		CmdSkipWaiting:    a.handleSkipWaiting,
		CmdClearCache:     a.handleClearCache,
		CmdGetVersion:     a.handleGetVersion,
		CmdForceReload:    a.handleForceReload,
		CmdClientOnline:   a.handleClientOnline,
		CmdAnalyticsEvent: a.handleAnalyticsEvent,
	}
	return a
}

// State returns the current lifecycle phase.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// transition enforces forward-only lifecycle moves.
func (a *Agent) transition(from, to State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != from {
		return fmt.Errorf("cannot move %s -> %s while %s", from, to, a.state)
	}
	a.state = to
	a.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("agent lifecycle transition")
	return nil
}

// Install precaches the app shell and parks the agent in waiting.
func (a *Agent) Install(ctx context.Context) error {
	a.router.Precache(ctx, a.origin)
	return a.transition(StateInstalling, StateWaiting)
}

// Activate promotes the agent: stale cache versions are purged and pages are
// told the new worker owns them.
func (a *Agent) Activate(ctx context.Context) error {
	if err := a.transition(StateWaiting, StateActive); err != nil {
		return err
	}

	deleted, err := a.router.Activate(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("cache version cleanup failed")
	} else if deleted > 0 {
		a.logger.Info().Int("deleted", deleted).Msg("stale cache partitions removed")
	}

	return a.bus.PublishJSON(events.EventAgentActivated, map[string]interface{}{
		"partitions": a.router.PartitionNames(),
	})
}

// Retire marks the agent redundant; no commands are handled afterwards.
func (a *Agent) Retire() error {
	return a.transition(StateActive, StateRedundant)
}

// NotifyClick tells subscribed pages that the user opened a notification,
// so the foreground can route to the referenced booking.
func (a *Agent) NotifyClick(bookingReference string) error {
	return a.bus.PublishJSON(events.EventNotifyClick, map[string]string{
		"booking_reference": bookingReference,
	})
}

// HandleMessage dispatches one page command through the handler map.
func (a *Agent) HandleMessage(ctx context.Context, msg Message) (Reply, error) {
	if a.State() == StateRedundant {
		return Reply{}, fmt.Errorf("agent is redundant")
	}

	handler, ok := a.handlers[msg.Command]
	if !ok {
		return Reply{}, fmt.Errorf("unknown command: %s", msg.Command)
	}
	return handler(ctx, msg.Payload)
}

func (a *Agent) handleSkipWaiting(ctx context.Context, _ json.RawMessage) (Reply, error) {
	if err := a.Activate(ctx); err != nil {
		return Reply{}, err
	}
	return Reply{OK: true}, nil
}

func (a *Agent) handleClearCache(ctx context.Context, _ json.RawMessage) (Reply, error) {
	if err := a.router.ClearAll(ctx); err != nil {
		return Reply{}, err
	}
	if err := a.bus.PublishJSON(events.EventCachesCleared, map[string]interface{}{
		"partitions": a.router.PartitionNames(),
	}); err != nil {
		a.logger.Error().Err(err).Msg("broadcast caches cleared")
	}
	return Reply{OK: true}, nil
}

func (a *Agent) handleGetVersion(_ context.Context, _ json.RawMessage) (Reply, error) {
	return Reply{OK: true, Version: a.router.PartitionNames()}, nil
}

func (a *Agent) handleForceReload(_ context.Context, _ json.RawMessage) (Reply, error) {
	if err := a.bus.PublishJSON(EventForceReload, map[string]interface{}{}); err != nil {
		return Reply{}, err
	}
	return Reply{OK: true}, nil
}

// handleClientOnline replays the outbox and flushes analytics; connectivity
// is back, so deferred work drains now.
func (a *Agent) handleClientOnline(ctx context.Context, _ json.RawMessage) (Reply, error) {
	if err := a.queue.Replay(ctx); err != nil {
		return Reply{}, err
	}
	if err := a.analytics.Flush(ctx); err != nil {
		return Reply{}, err
	}
	return Reply{OK: true}, nil
}

func (a *Agent) handleAnalyticsEvent(ctx context.Context, payload json.RawMessage) (Reply, error) {
	var event struct {
		Name    string          `json:"name"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return Reply{}, fmt.Errorf("invalid analytics payload: %w", err)
	}
	if event.Name == "" {
		return Reply{}, fmt.Errorf("analytics event name is required")
	}

	if err := a.analytics.Record(ctx, event.Name, event.Payload); err != nil {
		return Reply{}, err
	}
	return Reply{OK: true}, nil
}
