// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport wraps the MQTT client shared by producers and
// subscribers. Payloads are JSON.
package transport

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/geonav/internal/metrics"
)

const publishTimeout = 5 * time.Second

// Publisher is the subset of Bus used by sinks and producers.
type Publisher interface {
	PublishJSON(topic string, retained bool, v any) error
}

// Bus is a connected MQTT client.
type Bus struct {
	client mqtt.Client
	logger *zap.Logger
	broker string
}

// Connect opens a connection to broker. The client reconnects on its own
// after a lost connection.
func Connect(broker, clientID string, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.String("broker", broker), zap.Error(err))
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, token.Error())
	}
	logger.Info("connected to MQTT broker", zap.String("broker", broker), zap.String("client_id", clientID))
	return &Bus{client: client, logger: logger, broker: broker}, nil
}

// PublishJSON marshals v and publishes it with QoS 0.
func (b *Bus) PublishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	token := b.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe decodes every message on topic into T and calls fn. Payloads
// that fail to decode are logged and counted, not delivered.
func Subscribe[T any](b *Bus, topic string, fn func(T)) error {
	token := b.client.Subscribe(topic, 0, JSONHandler(topic, b.logger, fn))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	b.logger.Info("subscribed to MQTT topic", zap.String("topic", topic))
	return nil
}

// JSONHandler adapts fn to an mqtt.MessageHandler.
func JSONHandler[T any](topic string, logger *zap.Logger, fn func(T)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		metrics.MessagesReceived.WithLabelValues(topic).Inc()
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			metrics.DecodeErrors.WithLabelValues(topic).Inc()
			logger.Warn("payload unmarshal error", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		fn(v)
	}
}

// Close disconnects, waiting up to 250ms for in-flight work.
func (b *Bus) Close() {
	b.client.Disconnect(250)
	b.logger.Info("disconnected from MQTT broker", zap.String("broker", b.broker))
}
