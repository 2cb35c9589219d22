// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/head_tracker/internal/audio"
	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/consumers"
	"github.com/relabs-tech/head_tracker/internal/motion"
	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// readoutPeriodMs is roughly how often the console readout prints.
const readoutPeriodMs = 500

// BasisTransform maps a BASIS config value to the device → world basis.
func BasisTransform(name string) (orientation.Transform, error) {
	switch name {
	case config.BasisSwapYZ, "":
		return orientation.SwapYZ, nil
	case config.BasisIdentity:
		return orientation.Identity(), nil
	default:
		return orientation.Transform{}, fmt.Errorf("unknown basis %q", name)
	}
}

// newPipeline builds the pipeline for cfg.
func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	basis, err := BasisTransform(cfg.Basis)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{Basis: &basis})
}

// newSource picks the motion source named by MOTION_SOURCE.
func newSource(cfg *config.Config, client mqtt.Client) (motion.Source, error) {
	switch cfg.MotionSource {
	case config.SourceMock:
		return motion.NewMockSource(cfg.SampleEvery()), nil
	case config.SourceMQTT:
		return motion.NewMQTTSource(client, cfg.TopicRawSample, cfg.TopicSourceStatus), nil
	case config.SourceSerial:
		return motion.NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate), nil
	case config.SourceIMU:
		return motion.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.SampleEvery())
	default:
		return nil, fmt.Errorf("unknown motion source %q", cfg.MotionSource)
	}
}

// registerLocalConsumers attaches the consumers that need no network: model
// pose, audio listener and (optionally) the text readout.
func registerLocalConsumers(p *pipeline.Pipeline, cfg *config.Config, listener *audio.Listener, out io.Writer) *consumers.LatestPose {
	model := &consumers.LatestPose{}
	p.Register(consumers.NewModelPose(model, orientation.Identity()))
	p.Register(consumers.NewAudioListener(listener))

	if cfg.ReadoutEnabled && out != nil {
		every := readoutPeriodMs / cfg.SampleInterval
		readout := consumers.NewReadout(out, every)
		p.Register(readout)
		p.Status().OnChange(readout)
	}
	return model
}

// brokerLink reports the broker connection as the motion source's lifecycle
// when samples arrive over MQTT.
type brokerLink struct {
	q    *pipeline.Queue
	lost atomic.Bool
}

func (b *brokerLink) onLost(error) {
	b.lost.Store(true)
	b.q.Push(pipeline.Event{Kind: pipeline.DisconnectedEvent, Err: motion.ErrDisconnected})
}

// onConnect runs on the first connect and on every reconnect; only a
// reconnect after a loss is reported.
func (b *brokerLink) onConnect(mqtt.Client) {
	if b.lost.Swap(false) {
		b.q.Push(pipeline.Event{Kind: pipeline.ConnectedEvent})
	}
}

// streamSource runs src until ctx is done. A failing source is logged and
// leaves the rest of the tracker running.
func streamSource(ctx context.Context, src motion.Source, q *pipeline.Queue) error {
	err := src.Stream(ctx, q)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, motion.ErrUnsupported):
		log.Printf("tracker: motion source unsupported: %v", err)
	default:
		log.Printf("tracker: motion source stopped: %v", err)
	}
	return nil
}

// RunTracker is the main head tracker: motion source → pipeline → consumers,
// with calibration commands taken from MQTT.
func RunTracker(ctx context.Context) error {
	cfg := config.Get()

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	q := pipeline.NewQueue()
	defer q.Close()

	var onLost func(error)
	var mqttOpts []func(*mqtt.ClientOptions)
	if cfg.MotionSource == config.SourceMQTT {
		link := &brokerLink{q: q}
		onLost = link.onLost
		mqttOpts = append(mqttOpts, func(o *mqtt.ClientOptions) {
			o.SetOnConnectHandler(link.onConnect)
		})
	}
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDTracker, onLost, mqttOpts...)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	listener := audio.Open(audio.NopRenderer{}, r3.Vec{X: cfg.AudioSourceX, Y: cfg.AudioSourceY, Z: cfg.AudioSourceZ})
	defer listener.Close()

	registerLocalConsumers(p, cfg, listener, os.Stdout)
	publisher := consumers.NewMQTTPublisher(client, cfg.TopicOrientation)
	p.Register(publisher)

	if err := subscribeCommands(client, cfg.TopicCalibration, p); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(publisher.Run(ctx)) })

	if cfg.DisplayEnabled {
		display, err := openDisplay(cfg)
		if err != nil {
			log.Printf("tracker: display disabled: %v", err)
		} else {
			p.Register(display)
			p.Status().OnChange(display)
			g.Go(func() error { return ignoreCanceled(display.Run(ctx)) })
		}
	}

	src, err := newSource(cfg, client)
	if err != nil {
		log.Printf("tracker: %v", err)
		q.Push(pipeline.Event{Kind: pipeline.UnsupportedEvent, Err: err})
	} else {
		g.Go(func() error { return streamSource(ctx, src, q) })
	}
	log.Printf("tracker: running with %s source", cfg.MotionSource)

	g.Go(func() error { return ignoreCanceled(p.Run(ctx, q)) })
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
