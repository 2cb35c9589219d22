package motion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// Status payloads on the source status topic.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusUnsupported  = "unsupported"
)

// MQTTSource receives raw samples published by a remote producer.
//
// The sample topic carries orientation.RawSample JSON; an empty or "null"
// payload is a no-data tick. The status topic carries one of "connected",
// "disconnected" or "unsupported".
type MQTTSource struct {
	client      mqtt.Client
	sampleTopic string
	statusTopic string
}

// NewMQTTSource uses an already connected client.
func NewMQTTSource(client mqtt.Client, sampleTopic, statusTopic string) *MQTTSource {
	return &MQTTSource{client: client, sampleTopic: sampleTopic, statusTopic: statusTopic}
}

func (s *MQTTSource) Stream(ctx context.Context, q *pipeline.Queue) error {
	token := s.client.Subscribe(s.sampleTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		HandleSamplePayload(q, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.sampleTopic, token.Error())
	}
	Logf("motion: subscribed to %s", s.sampleTopic)

	if s.statusTopic != "" {
		token = s.client.Subscribe(s.statusTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			HandleStatusPayload(q, msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", s.statusTopic, token.Error())
		}
		Logf("motion: subscribed to %s", s.statusTopic)
	}

	<-ctx.Done()

	topics := []string{s.sampleTopic}
	if s.statusTopic != "" {
		topics = append(topics, s.statusTopic)
	}
	s.client.Unsubscribe(topics...).Wait()
	return ctx.Err()
}

// HandleSamplePayload decodes one sample message into the queue.
func HandleSamplePayload(q *pipeline.Queue, payload []byte) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		q.PushNoData()
		return
	}

	var s orientation.RawSample
	if err := json.Unmarshal(payload, &s); err != nil {
		Logf("motion: sample unmarshal error: %v", err)
		q.PushNoData()
		return
	}
	q.PushSample(s)
}

// HandleStatusPayload maps a status message to a lifecycle event.
func HandleStatusPayload(q *pipeline.Queue, payload []byte) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case StatusConnected:
		q.Push(pipeline.Event{Kind: pipeline.ConnectedEvent})
	case StatusDisconnected:
		q.Push(pipeline.Event{Kind: pipeline.DisconnectedEvent, Err: ErrDisconnected})
	case StatusUnsupported:
		q.Push(pipeline.Event{Kind: pipeline.UnsupportedEvent, Err: ErrUnsupported})
	default:
		Logf("motion: unknown source status %q", payload)
	}
}
