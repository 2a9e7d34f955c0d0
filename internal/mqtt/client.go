// Package mqtt bridges the device to an MQTT broker: command payloads on
// <prefix>/set are passed to setLight and the latest state is published,
// retained, on <prefix>/state.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/controller"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/light"
)

const (
	qos         byte = 1
	callTimeout      = 5 * time.Second
)

// ErrConnectPending means the first connection attempt has not finished yet.
var ErrConnectPending = errors.New("connection still pending")

// Caller is the device surface the bridge needs.
type Caller interface {
	Call(ctx context.Context, name, arg string) (int, error)
}

// CommandTopic is where commands are received.
func CommandTopic(prefix string) string { return prefix + "/set" }

// StateTopic is where state is published.
func StateTopic(prefix string) string { return prefix + "/state" }

// State is the retained state message.
type State struct {
	light.State
	Seq     uint64    `json:"seq"`
	On      bool      `json:"on"`
	Color   string    `json:"color"`
	Source  string    `json:"source"`
	Command string    `json:"command"`
	At      time.Time `json:"at"`
}

// StatePayload encodes a state_changed event for the state topic.
func StatePayload(e eventbus.Event) ([]byte, error) {
	return json.Marshal(State{
		State:   e.State,
		Seq:     e.Seq,
		On:      e.State.LightLevel > 0,
		Color:   e.Color,
		Source:  e.Source,
		Command: e.Command,
		At:      e.At.UTC(),
	})
}

// Client owns the broker connection.
type Client struct {
	cfg    config.MQTTConfig
	dev    Caller
	client paho.Client

	mu       sync.Mutex
	pending  *eventbus.Event
	lastSent uint64
	wake     chan struct{}
}

// New creates a client. It does not connect until Connect.
func New(cfg config.MQTTConfig, dev Caller) *Client {
	c := &Client{cfg: cfg, dev: dev, wake: make(chan struct{}, 1)}
	c.client = paho.NewClient(c.options())
	return c
}

func (c *Client) options() *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetConnectTimeout(c.cfg.ConnectTimeout.Duration()).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true).
		SetOnConnectHandler(func(client paho.Client) {
			log.Info().Str("broker", c.cfg.Broker).Msg("MQTT connected")
			// Runs again after every reconnect; the broker may have dropped the session.
			if err := c.subscribe(client); err != nil {
				log.Error().Err(err).Msg("MQTT subscribe failed")
			}
		}).
		SetConnectionLostHandler(func(client paho.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetReconnectingHandler(func(client paho.Client, opts *paho.ClientOptions) {
			log.Info().Str("broker", c.cfg.Broker).Msg("MQTT reconnecting")
		})
}

// Connect dials the broker and waits up to the configured timeout. On
// timeout the client keeps retrying in the background.
func (c *Client) Connect() error {
	t := c.client.Connect()
	if !t.WaitTimeout(c.cfg.ConnectTimeout.Duration()) {
		return fmt.Errorf("mqtt connect to %s: %w", c.cfg.Broker, ErrConnectPending)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", c.cfg.Broker, err)
	}
	return nil
}

func (c *Client) subscribe(client paho.Client) error {
	topic := CommandTopic(c.cfg.TopicPrefix)
	if t := client.Subscribe(topic, qos, c.handleMessage); t.Wait() && t.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, t.Error())
	}
	log.Debug().Str("topic", topic).Msg("MQTT subscribed")
	return nil
}

func (c *Client) handleMessage(_ paho.Client, msg paho.Message) {
	arg := strings.TrimSpace(string(msg.Payload()))

	ctx, cancel := context.WithTimeout(controller.WithSource(context.Background(), "mqtt"), callTimeout)
	defer cancel()

	level, err := c.dev.Call(ctx, controller.FunctionSetLight, arg)
	if err != nil {
		log.Error().Err(err).Str("topic", msg.Topic()).Str("payload", arg).Msg("MQTT command failed")
		return
	}
	log.Debug().Str("topic", msg.Topic()).Str("payload", arg).Int("level", level).Msg("MQTT command applied")
}

// Notify queues e for publishing and returns immediately. Only the newest
// pending event is kept, so a slow broker never sees an older state after a
// newer one.
func (c *Client) Notify(e eventbus.Event) {
	c.mu.Lock()
	if c.pending == nil || e.Seq > c.pending.Seq {
		c.pending = &e
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run publishes notified states one at a time until ctx is done.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			c.mu.Lock()
			e := c.pending
			c.pending = nil
			c.mu.Unlock()
			if e != nil {
				c.PublishState(*e)
			}
		}
	}
}

// PublishState publishes e as the retained state. Events with a sequence at
// or below the last published one are skipped; zero means unsequenced.
func (c *Client) PublishState(e eventbus.Event) {
	c.mu.Lock()
	if e.Seq != 0 && e.Seq <= c.lastSent {
		c.mu.Unlock()
		log.Debug().Uint64("seq", e.Seq).Msg("Skipping stale MQTT state")
		return
	}
	if e.Seq != 0 {
		c.lastSent = e.Seq
	}
	c.mu.Unlock()

	payload, err := StatePayload(e)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode MQTT state")
		return
	}

	topic := StateTopic(c.cfg.TopicPrefix)
	t := c.client.Publish(topic, qos, true, payload)
	if !t.WaitTimeout(callTimeout) {
		log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
		return
	}
	if err := t.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("MQTT publish failed")
	}
}

// Close disconnects and stops any pending connect retries.
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Info().Msg("MQTT disconnected")
}
