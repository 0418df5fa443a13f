package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pissten/SMARTi-EMS/internal/logger"
	"github.com/pissten/SMARTi-EMS/internal/models"
)

// MQTTConfig configures the statestream/Node-RED gateway.
type MQTTConfig struct {
	Broker            string // host:port or URL
	Username          string
	Password          string
	ClientID          string
	StatestreamPrefix string // HA mqtt_statestream base_topic
	CallServiceTopic  string // Node-RED proxy topic
	PublishTimeout    time.Duration
}

// Defaults for MQTTConfig.
const (
	DefaultStatestreamPrefix = "homeassistant"
	DefaultCallServiceTopic  = "nodered/proxy/call_service"
	DefaultClientID          = "smarti-ems"
	defaultPublishTimeout    = 10 * time.Second
)

var errNotConnected = errors.New("mqtt gateway is not connected")

// MQTTClient mirrors Home Assistant state from mqtt_statestream and sends
// service calls through a Node-RED proxy flow.
type MQTTClient struct {
	cfg MQTTConfig
	log *logger.Logger

	mu     sync.RWMutex
	states map[string]*models.EntityState

	client  mqtt.Client
	publish func(topic string, payload []byte) error
}

func NewMQTTClient(cfg MQTTConfig, log *logger.Logger) *MQTTClient {
	if cfg.StatestreamPrefix == "" {
		cfg.StatestreamPrefix = DefaultStatestreamPrefix
	}
	if cfg.CallServiceTopic == "" {
		cfg.CallServiceTopic = DefaultCallServiceTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	cfg.StatestreamPrefix = strings.TrimSuffix(cfg.StatestreamPrefix, "/")
	return &MQTTClient{
		cfg:    cfg,
		log:    log,
		states: map[string]*models.EntityState{},
	}
}

var _ Gateway = (*MQTTClient)(nil)

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	if !strings.Contains(broker, ":") {
		broker += ":1883"
	}
	return "tcp://" + broker
}

// Connect dials the broker and subscribes to the statestream. Subscriptions are
// renewed on every reconnect.
func (c *MQTTClient) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(c.cfg.Broker))
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logw("mqtt_connection_lost", "err", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logw("mqtt_connected", "broker", c.cfg.Broker)
		topic := c.cfg.StatestreamPrefix + "/#"
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			c.handleMessage(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			c.logw("mqtt_subscribe_failed", "topic", topic, "err", token.Error())
		}
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", c.cfg.Broker, err)
	}

	c.mu.Lock()
	c.client = client
	c.publish = func(topic string, payload []byte) error {
		t := client.Publish(topic, 1, false, payload)
		if !t.WaitTimeout(c.cfg.PublishTimeout) {
			return fmt.Errorf("publish to %s timed out", topic)
		}
		return t.Error()
	}
	c.mu.Unlock()
	return nil
}

// Close disconnects from the broker.
func (c *MQTTClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

// handleMessage applies one statestream message to the cache. Topics look like
// <prefix>/<domain>/<object_id>/<state|attribute>.
func (c *MQTTClient) handleMessage(topic string, payload []byte) {
	rest, ok := strings.CutPrefix(topic, c.cfg.StatestreamPrefix+"/")
	if !ok {
		return
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return
	}
	entityID := parts[0] + "." + parts[1]
	field := parts[2]

	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[entityID]
	if !ok {
		st = &models.EntityState{EntityID: entityID, Attributes: map[string]any{}}
		c.states[entityID] = st
	}

	switch field {
	case "state":
		st.State = string(payload)
	case "last_changed":
		st.LastChanged = decodeString(payload)
	case "last_updated":
		st.LastUpdated = decodeString(payload)
	default:
		var v any
		if err := json.Unmarshal(payload, &v); err != nil {
			v = string(payload)
		}
		st.Attributes[field] = v
	}
}

func decodeString(payload []byte) string {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return s
	}
	return string(payload)
}

// State returns the cached entity. Entities that never reported a state, or
// whose last state was unavailable, are ErrNotFound.
func (c *MQTTClient) State(_ context.Context, entityID string) (*models.EntityState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st, ok := c.states[entityID]
	if !ok || !st.Available() {
		return nil, ErrNotFound
	}
	cp := *st
	cp.Attributes = maps.Clone(st.Attributes)
	return &cp, nil
}

// States returns a snapshot of every cached entity, sorted by id.
func (c *MQTTClient) States(_ context.Context) ([]models.EntityState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.EntityState, 0, len(c.states))
	for _, id := range slices.Sorted(maps.Keys(c.states)) {
		st := *c.states[id]
		st.Attributes = maps.Clone(st.Attributes)
		out = append(out, st)
	}
	return out, nil
}

// CallService publishes {"domain","service","entity_id","data"} to the proxy topic.
func (c *MQTTClient) CallService(_ context.Context, domain, service string, data map[string]any) error {
	c.mu.RLock()
	publish := c.publish
	c.mu.RUnlock()
	if publish == nil {
		return errNotConnected
	}

	body := map[string]any{
		"domain":  domain,
		"service": service,
	}
	rest := map[string]any{}
	for k, v := range data {
		if k == "entity_id" {
			body["entity_id"] = v
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		body["data"] = rest
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode service call: %w", err)
	}
	if err := publish(c.cfg.CallServiceTopic, payload); err != nil {
		return fmt.Errorf("call %s.%s: %w", domain, service, err)
	}
	return nil
}

func (c *MQTTClient) logw(msg string, kv ...any) {
	if c.log != nil {
		c.log.Infow(msg, kv...)
	}
}
