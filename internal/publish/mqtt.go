// Package publish pushes countdown frames to MQTT so wall screens and
// home-automation dashboards can follow the countdown without polling.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"countdown/internal/config"
	appLog "countdown/internal/log"
	"countdown/internal/model"
	"countdown/internal/theme"
)

const publishTimeout = 10 * time.Second

// Client is the subset of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends retained JSON messages under a topic prefix:
//
//	<prefix>/state  the full output frame
//	<prefix>/theme  theme key, daypart and effect plan
type Publisher struct {
	client Client
	prefix string
}

// Connect dials the broker from cfg.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("publish: broker is required")
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		appLog.Info("connected to MQTT broker", "broker", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		appLog.Warn("MQTT connection lost", "broker", cfg.Broker, "err", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("publish: connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("publish: failed to connect to MQTT broker: %w", err)
	}
	return NewPublisher(client, cfg.TopicPrefix), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(c Client, prefix string) *Publisher {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = "countdown"
	}
	return &Publisher{client: c, prefix: prefix}
}

// themeMessage is the payload on <prefix>/theme.
type themeMessage struct {
	Theme   string         `json:"theme"`
	Daypart string         `json:"daypart"`
	Effects []model.Effect `json:"effects"`
}

// Publish sends the frame on <prefix>/state.
func (p *Publisher) Publish(ctx context.Context, out model.Output) error {
	return p.send(ctx, p.prefix+"/state", out)
}

// RenderTheme sends the theme change on <prefix>/theme.
func (p *Publisher) RenderTheme(ctx context.Context, key string, dp theme.Daypart) error {
	effects := theme.Effects(key, dp)
	if effects == nil {
		effects = []model.Effect{}
	}
	return p.send(ctx, p.prefix+"/theme", themeMessage{Theme: key, Daypart: string(dp), Effects: effects})
}

func (p *Publisher) send(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish: %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %s: %w", topic, err)
	}
	appLog.Debug("mqtt message published", "topic", topic, "bytes", len(payload))
	return nil
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
