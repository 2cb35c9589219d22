package consumers

import (
	"context"
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// publishTimeout bounds how long Run waits for the broker to acknowledge one
// message.
const publishTimeout = 100 * time.Millisecond

// Publisher is the part of mqtt.Client the publisher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes every corrected orientation as JSON.
//
// ReceiveOrientation only encodes the message and leaves it in a slot of
// depth 1; Run does the network I/O. While the broker is slow, newer
// orientations replace the one waiting in the slot.
type MQTTPublisher struct {
	client Publisher
	topic  string
	now    func() time.Time
	slot   chan []byte
}

func NewMQTTPublisher(client Publisher, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		now:    time.Now,
		slot:   make(chan []byte, 1),
	}
}

func (p *MQTTPublisher) ReceiveOrientation(t orientation.Transform) {
	payload, err := json.Marshal(NewOrientationMessage(t, p.now()))
	if err != nil {
		Logf("mqtt publisher: marshal error: %v", err)
		return
	}

	for {
		select {
		case p.slot <- payload:
			return
		default:
		}
		select {
		case <-p.slot:
		default:
		}
	}
}

// Run publishes queued messages until ctx is cancelled.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-p.slot:
			p.publish(payload)
		}
	}
}

func (p *MQTTPublisher) publish(payload []byte) {
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		Logf("mqtt publisher: publish to %s timed out", p.topic)
		return
	}
	if err := token.Error(); err != nil {
		Logf("mqtt publisher: publish error: %v", err)
	}
}
