package app

import (
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/calibration"
	"github.com/relabs-tech/head_tracker/internal/consumers"
)

// connectMQTT connects to the broker. The session is kept across reconnects
// so subscriptions survive a broker restart. onLost may be nil.
func connectMQTT(broker, clientID string, onLost func(error), configure ...func(*mqtt.ClientOptions)) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
			if onLost != nil {
				onLost(err)
			}
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			log.Printf("mqtt: reconnecting to %s", broker)
		})
	for _, fn := range configure {
		fn(opts)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to broker at %s as %s", broker, clientID)
	return client, nil
}

// commandPublisher forwards calibration commands to the tracker over MQTT.
type commandPublisher struct {
	client mqtt.Client
	topic  string
}

func (c *commandPublisher) Submit(cmd calibration.Command) {
	token := c.client.Publish(c.topic, 1, false, cmd.String())
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish %s to %s: %v", cmd, c.topic, err)
		return
	}
	log.Printf("mqtt: sent %s", cmd)
}

// subscribeCommands feeds commands arriving on topic into sink.
func subscribeCommands(client mqtt.Client, topic string, sink consumers.CommandSink) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handleCommandPayload(sink, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: subscribed to %s", topic)
	return nil
}

func handleCommandPayload(sink consumers.CommandSink, payload []byte) {
	cmd, err := calibration.ParseCommand(strings.TrimSpace(string(payload)))
	if err != nil {
		log.Printf("mqtt: %v", err)
		return
	}
	log.Printf("mqtt: received %s", cmd)
	sink.Submit(cmd)
}
