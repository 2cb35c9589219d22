package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/consumers"
)

// RunConsoleMQTT prints the tracker's corrected orientation from MQTT and
// sends calibration keys back to it.
func RunConsoleMQTT(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, nil)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	out = &lockedWriter{w: out}
	token := client.Subscribe(cfg.TopicOrientation, 0, func(_ mqtt.Client, msg mqtt.Message) {
		printOrientation(out, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicOrientation)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(out, keyHelp)
	go readKeys(in, out, &commandPublisher{client: client, topic: cfg.TopicCalibration}, cancel)

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func printOrientation(out io.Writer, payload []byte) {
	var m consumers.OrientationMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("console: orientation unmarshal error: %v", err)
		return
	}
	fmt.Fprintf(out,
		"[POSE]  ROLL=%6.2f  PITCH=%6.2f  YAW=%6.2f\n",
		m.Pose.Roll, m.Pose.Pitch, m.Pose.Yaw,
	)
}
