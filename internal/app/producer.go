package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/motion"
)

// producerLogEvery controls how often the producer logs a published sample.
const producerLogEvery = 50

type publishFunc func(topic string, payload []byte) error

// RunProducer publishes raw samples over MQTT for a tracker running with
// MOTION_SOURCE=mqtt. kind is config.SourceMock for synthetic head motion or
// config.SourceIMU for a locally attached MPU9250.
func RunProducer(ctx context.Context, kind string) error {
	cfg := config.Get()

	var src motion.Poller
	switch kind {
	case config.SourceMock:
		src = motion.NewMockSource(cfg.SampleEvery())
	case config.SourceIMU:
		imu, err := motion.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.SampleEvery())
		if err != nil {
			return err
		}
		src = imu
	default:
		return fmt.Errorf("producer: unsupported source %q", kind)
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, nil, func(o *mqtt.ClientOptions) {
		o.SetWill(cfg.TopicSourceStatus, motion.StatusDisconnected, 1, true)
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	publish := func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		return token.Error()
	}
	setStatus := func(status string) {
		token := client.Publish(cfg.TopicSourceStatus, 1, true, status)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("producer: status publish error: %v", err)
		}
	}

	setStatus(motion.StatusConnected)
	defer setStatus(motion.StatusDisconnected)

	log.Printf("producer: publishing %s samples to %s every %v", kind, cfg.TopicRawSample, cfg.SampleEvery())
	return produce(ctx, src, cfg.SampleEvery(), cfg.TopicRawSample, publish)
}

// produce publishes one sample per tick until ctx is done.
func produce(ctx context.Context, src motion.Poller, every time.Duration, topic string, publish publishFunc) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var n int
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if errors.Is(err, motion.ErrNoData) {
			if err := publish(topic, []byte("null")); err != nil {
				log.Printf("producer: publish error: %v", err)
			}
			continue
		}
		if err != nil {
			log.Printf("producer: error from source: %v", err)
			continue
		}

		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}

		if err := publish(topic, payload); err != nil {
			log.Printf("producer: publish error: %v", err)
			continue
		}

		n++
		if n%producerLogEvery == 1 {
			log.Printf("producer: %s published sample %d", s.Timestamp.Format(time.RFC3339), n)
		}
	}
}
