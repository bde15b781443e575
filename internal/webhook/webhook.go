// Package webhook delivers event notifications to registered HTTP
// endpoints.
package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ericksa/contractiq/internal/metrics"
)

// Event names notified to subscribers.
const (
	EventDocumentIngested = "document.ingested"
	EventExtractComplete  = "extract.complete"
	EventAuditComplete    = "audit.complete"
	EventAskComplete      = "ask.complete"
)

// Config is one registered webhook.
type Config struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Registry holds webhook registrations and fans events out to
// subscribers. Deliveries run in their own goroutines so callers
// never wait on subscriber endpoints.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[string]Config
	client *http.Client
	log    *zap.Logger
}

func NewRegistry(timeout time.Duration, log *zap.Logger) *Registry {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		hooks:  make(map[string]Config),
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Register adds a webhook and returns it with its assigned id.
func (r *Registry) Register(url string, events []string) Config {
	hook := Config{ID: uuid.NewString(), URL: url, Events: events}
	r.mu.Lock()
	r.hooks[hook.ID] = hook
	r.mu.Unlock()

	r.log.Info("webhook_registered",
		zap.String("webhook_id", hook.ID),
		zap.Strings("events", events))
	return hook
}

// Unregister removes a webhook, reporting whether it existed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, ok := r.hooks[id]
	delete(r.hooks, id)
	r.mu.Unlock()

	if ok {
		r.log.Info("webhook_unregistered", zap.String("webhook_id", id))
	}
	return ok
}

// List returns every registration, ordered by id.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]Config, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].ID < hooks[j].ID })
	return hooks
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Every delivery wraps its payload in this envelope.
type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Trigger sends the event to every subscriber and returns how many
// deliveries were started.
func (r *Registry) Trigger(event string, payload any) int {
	r.mu.RLock()
	var targets []Config
	for _, h := range r.hooks {
		for _, e := range h.Events {
			if e == event {
				targets = append(targets, h)
				break
			}
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}
	r.log.Info("webhook_event_triggered",
		zap.String("event_type", event),
		zap.Int("subscribed_webhooks", len(targets)))

	body, err := json.Marshal(envelope{Event: event, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		r.log.Warn("webhook_payload_marshal_failed",
			zap.String("event_type", event), zap.Error(err))
		return 0
	}
	for _, hook := range targets {
		go r.deliver(hook, event, body)
	}
	return len(targets)
}

func (r *Registry) deliver(hook Config, event string, body []byte) {
	resp, err := r.client.Post(hook.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		r.log.Warn("webhook_delivery_failed",
			zap.String("webhook_id", hook.ID),
			zap.String("event_type", event),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.WebhookDeliveries.WithLabelValues("success").Inc()
		r.log.Info("webhook_delivery_sent",
			zap.String("webhook_id", hook.ID),
			zap.String("event_type", event),
			zap.Int("status_code", resp.StatusCode))
		return
	}

	metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
	r.log.Warn("webhook_delivery_rejected",
		zap.String("webhook_id", hook.ID),
		zap.String("event_type", event),
		zap.Int("status_code", resp.StatusCode))
}
