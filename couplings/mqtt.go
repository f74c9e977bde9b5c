/* Copyright 2023 The Proofpad Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package couplings connects a session to remote observers.  The MQTT
// coupling publishes proof events on <topic>/out and forwards remote
// user actions arriving on <topic>/in.
package couplings

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT is an optional coupling to an MQTT broker.
type MQTT struct {
	// Broker is the broker URL ("tcp://localhost:1883").
	Broker string

	// ClientID identifies this session to the broker.
	ClientID string

	// Topic is the base topic.  Events go out on Topic/out;
	// actions arrive on Topic/in.
	Topic string

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// InTimeout bounds in-bound queuing; a stalled consumer drops
	// messages rather than wedging the broker callback.
	InTimeout time.Duration

	Logf func(format string, args ...interface{})

	client   mqtt.Client
	incoming chan map[string]interface{}
}

// NewMQTT prepares (but does not connect) a coupling.
func NewMQTT(broker, clientID, topic string) *MQTT {
	return &MQTT{
		Broker:    broker,
		ClientID:  clientID,
		Topic:     topic,
		Quiesce:   100,
		InTimeout: time.Second,
		Logf:      log.Printf,
		incoming:  make(chan map[string]interface{}, 16),
	}
}

// Start connects to the broker and subscribes to the action topic.
func (c *MQTT) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.Broker)
	opts.SetClientID(c.ClientID)
	opts.SetKeepAlive(10 * time.Second)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		c.Logf("mqtt: connection lost: %s", err)
	}
	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		c.deliver(ctx, msg.Topic(), msg.Payload())
	}

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	in := c.Topic + "/in"
	if t := c.client.Subscribe(in, 0, nil); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	c.Logf("mqtt: subscribed to %s", in)
	return nil
}

// deliver parses one in-bound payload and queues it, tagging it with
// the topic it arrived on.  Non-JSON payloads are wrapped.
func (c *MQTT) deliver(ctx context.Context, topic string, payload []byte) {
	var x interface{}
	if err := json.Unmarshal(payload, &x); err != nil {
		x = string(payload)
	}
	m, is := x.(map[string]interface{})
	if !is {
		m = map[string]interface{}{"payload": x}
	}
	m["topic"] = topic

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()
	select {
	case <-ctx.Done():
		c.Logf("mqtt: dropping in-bound message, context done")
	case c.incoming <- m:
	case <-to.C:
		c.Logf("mqtt: dropping in-bound message, consumer stalled")
	}
}

// Incoming returns the channel of remote actions.
func (c *MQTT) Incoming() <-chan map[string]interface{} {
	return c.incoming
}

// Publish sends one proof event on the out topic.
func (c *MQTT) Publish(ctx context.Context, event interface{}) error {
	js, err := json.Marshal(event)
	if err != nil {
		return err
	}
	t := c.client.Publish(c.Topic+"/out", 0, false, js)
	t.Wait()
	return t.Error()
}

// Stop disconnects from the broker.
func (c *MQTT) Stop(ctx context.Context) error {
	if c.client != nil {
		c.client.Disconnect(c.Quiesce)
	}
	return nil
}
