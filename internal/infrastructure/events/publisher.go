package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fenrislabs/auth-service/internal/infrastructure/config"
	"github.com/fenrislabs/auth-service/internal/infrastructure/logging"
)

const (
	// topicPrefix roots every topic this service publishes.
	topicPrefix = "authsvc"

	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second
)

// Event is the payload published for every auth lifecycle event.
//
// UserID is the decimal subject of the affected user. Detail carries
// event-specific context such as the revocation record id. Payloads
// never include tokens or credentials.
type Event struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id,omitempty"`
	Tenant    string `json:"tenant,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher announces auth events to an MQTT broker.
//
// All methods are safe for concurrent use. A nil *Publisher is valid and
// drops every publish, so callers never branch on whether events are
// enabled.
type Publisher struct {
	client pahomqtt.Client
	cfg    config.EventsConfig
	logger *logging.Logger

	connected bool
	connMu    sync.RWMutex
}

// Connect establishes a connection to the MQTT broker and publishes the
// service's online status. The broker marks the service offline via LWT
// on an unexpected disconnect.
func Connect(cfg config.EventsConfig, logger *logging.Logger) (*Publisher, error) {
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(statusTopic(), statusPayload(cfg.ClientID, "offline", "unexpected_disconnect"), 1, true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		p.setConnected(true)
		p.publishStatus("online", "")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("event broker connection lost", "error", err)
	})

	p.client = pahomqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have fired yet.
	p.setConnected(true)

	return p, nil
}

// Publish announces an event on authsvc/events/<type>.
//
// Nil-safe: a nil Publisher silently drops the event.
func (p *Publisher) Publish(eventType string, event Event) error {
	if p == nil {
		return nil
	}
	if !p.IsConnected() {
		return ErrNotConnected
	}

	event.Type = eventType
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}

	topic := topicPrefix + "/events/" + eventType
	token := p.client.Publish(topic, byte(p.cfg.QoS), false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close publishes a graceful offline status and disconnects.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}

	if p.IsConnected() {
		p.publishStatus("offline", "graceful_shutdown")
	}

	p.client.Disconnect(defaultDisconnectQuiesce)
	p.setConnected(false)
	return nil
}

// HealthCheck reports whether the broker connection is alive.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("events health check: %w", ctx.Err())
	default:
	}
	if !p.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the current connection state.
func (p *Publisher) IsConnected() bool {
	if p == nil {
		return false
	}
	p.connMu.RLock()
	defer p.connMu.RUnlock()
	return p.connected && p.client.IsConnected()
}

func (p *Publisher) setConnected(state bool) {
	p.connMu.Lock()
	p.connected = state
	p.connMu.Unlock()
}

// publishStatus publishes a retained service status message.
func (p *Publisher) publishStatus(status, reason string) {
	token := p.client.Publish(statusTopic(), 1, true, statusPayload(p.cfg.ClientID, status, reason))
	token.WaitTimeout(defaultPublishTimeout)
}

func statusTopic() string {
	return topicPrefix + "/system/status"
}

func statusPayload(clientID, status, reason string) string {
	payload := map[string]string{
		"status":    status,
		"client_id": clientID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		payload["reason"] = reason
	}
	data, _ := json.Marshal(payload)
	return string(data)
}
