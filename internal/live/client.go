// Package live drives the detector from an MQTT sample topic and publishes
// violations back out. The broker client sits behind a small interface so
// the runner can be tested without a broker.
package live

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Default topics. The producer side publishes samples; a delivery
// collaborator subscribes to violations.
const (
	DefaultSampleTopic    = "driving/samples"
	DefaultViolationTopic = "driving/violations"
)

// MessageHandler receives one inbound payload.
type MessageHandler func(topic string, payload []byte)

// Client is the broker surface the runner needs.
type Client interface {
	Connect() error
	Subscribe(topic string, handler MessageHandler) error
	Publish(topic string, payload []byte) error
	Disconnect()
}

// PahoClient adapts the Eclipse Paho client to the Client interface.
type PahoClient struct {
	client mqtt.Client
}

// NewPahoClient builds a client for the given broker URL (tcp://host:1883)
// and client ID.
func NewPahoClient(broker, clientID string) *PahoClient {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	return &PahoClient{client: mqtt.NewClient(opts)}
}

func (c *PahoClient) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

func (c *PahoClient) Subscribe(topic string, handler MessageHandler) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (c *PahoClient) Publish(topic string, payload []byte) error {
	if token := c.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

func (c *PahoClient) Disconnect() {
	c.client.Disconnect(250)
}
