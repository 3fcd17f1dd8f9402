// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_conditioner/internal/alignment"
	"github.com/relabs-tech/gyro_conditioner/internal/calibration"
	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
	"github.com/relabs-tech/gyro_conditioner/internal/pipeline"
	"github.com/relabs-tech/gyro_conditioner/internal/sensors"
)

// Command is a request sent to the producer on the command topic.
type Command struct {
	Action string `json:"action"`         // "calibrate", "debug"
	Mode   string `json:"mode,omitempty"` // debug mode for "debug"
}

// Publisher sends a JSON payload to a topic.
type Publisher interface {
	Publish(topic string, retained bool, v interface{}) error
}

type mqttPublisher struct {
	client mqtt.Client
}

func (p mqttPublisher) Publish(topic string, retained bool, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}

// eventQueue hands calibration events from inside Tick to the producer
// loop without blocking the tick.
type eventQueue chan calibration.Event

func (q eventQueue) Notify(e calibration.Event) {
	select {
	case q <- e:
	default:
	}
}

// Producer owns one gyro pipeline and publishes its outputs.
type Producer struct {
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	pub      Publisher
	events   eventQueue
	commands chan Command
	taps     pipeline.Taps
	source   string
}

// NewProducer wires a pipeline around source using cfg. The pipeline is
// configured immediately, since the source is already initialised and its
// loop time is known.
func NewProducer(cfg *config.Config, source imu.GyroSource, sourceName string, pub Publisher) *Producer {
	events := make(eventQueue, 1)
	aligner := alignment.New(cfg.GyroAlign, alignment.CW0, cfg.BoardAlign)
	p := &Producer{
		cfg:      cfg,
		pipe:     pipeline.New(source, aligner, events),
		pub:      pub,
		events:   events,
		commands: make(chan Command, 8),
		taps:     pipeline.Taps{Mode: cfg.DebugMode},
		source:   sourceName,
	}
	p.pipe.Configure(cfg.Settings())
	return p
}

// Pipeline exposes the underlying pipeline for inspection.
func (p *Producer) Pipeline() *pipeline.Pipeline {
	return p.pipe
}

// Submit queues a command for the loop goroutine. It never blocks; a full
// queue drops the command.
func (p *Producer) Submit(cmd Command) bool {
	select {
	case p.commands <- cmd:
		return true
	default:
		return false
	}
}

// BeginCalibration starts a calibration run and logs the window length.
func (p *Producer) BeginCalibration() {
	p.pipe.BeginCalibration()
	st := p.pipe.Status()
	monitoring.Logf("gyro: calibration started (%d cycles at %dµs, movement threshold %d)",
		st.TotalCycles, p.cfg.LooptimeUs, p.cfg.GyroMoveThreshold)
}

func (p *Producer) handle(cmd Command) {
	switch cmd.Action {
	case "calibrate":
		p.BeginCalibration()
	case "debug":
		mode, err := pipeline.ParseDebugMode(cmd.Mode)
		if err != nil {
			monitoring.Logf("gyro: command rejected: %v", err)
			return
		}
		p.taps = pipeline.Taps{Mode: mode}
		monitoring.Logf("gyro: debug mode set to %s", mode)
	default:
		monitoring.Logf("gyro: unknown command %q", cmd.Action)
	}
}

// Step applies pending commands, runs one tick and publishes any
// calibration event and debug taps it produced.
func (p *Producer) Step() bool {
	for drained := false; !drained; {
		select {
		case cmd := <-p.commands:
			p.handle(cmd)
		default:
			drained = true
		}
	}

	var obs pipeline.Observer
	if p.taps.Mode != pipeline.DebugNone {
		obs = &p.taps
	}
	ok := p.pipe.Tick(obs)

	select {
	case e := <-p.events:
		p.publishEvent(e)
	default:
	}

	if values, fresh := p.taps.Take(); fresh {
		dbg := imu.GyroDebug{Mode: p.taps.Mode.String(), Values: values, Tick: p.pipe.Output().Tick}
		if err := p.pub.Publish(p.cfg.TopicGyroDebug, false, dbg); err != nil {
			monitoring.Logf("MQTT publish error (gyro/debug): %v", err)
		}
	}
	return ok
}

func (p *Producer) publishEvent(e calibration.Event) {
	st := p.pipe.Status()
	monitoring.Logf("gyro: calibration complete, zero offset x=%d y=%d z=%d (restarts: %d)",
		st.ZeroOffset[imu.X], st.ZeroOffset[imu.Y], st.ZeroOffset[imu.Z], st.Restarts)
	ev := imu.GyroEvent{
		Event:      e.String(),
		ZeroOffset: st.ZeroOffset,
		Time:       time.Now().Format(time.RFC3339),
	}
	if err := p.pub.Publish(p.cfg.TopicGyroEvent, false, ev); err != nil {
		monitoring.Logf("MQTT publish error (gyro/event): %v", err)
	}
}

// PublishOutput publishes the latest snapshot.
func (p *Producer) PublishOutput() error {
	out := p.pipe.Output()
	out.Source = p.source
	return p.pub.Publish(p.cfg.TopicGyro, true, out)
}

// PublishStatus publishes the calibration status.
func (p *Producer) PublishStatus() error {
	return p.pub.Publish(p.cfg.TopicGyroStatus, true, p.pipe.Status())
}

// Run ticks every LooptimeUs until ctx is done. Outputs and status are
// published at the slower STATUS_INTERVAL cadence.
func (p *Producer) Run(ctx context.Context) error {
	loop := time.NewTicker(time.Duration(p.cfg.LooptimeUs) * time.Microsecond)
	defer loop.Stop()
	status := time.NewTicker(time.Duration(p.cfg.StatusInterval) * time.Millisecond)
	defer status.Stop()

	lastRestarts := uint32(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-loop.C:
			p.Step()
		case <-status.C:
			if err := p.PublishOutput(); err != nil {
				monitoring.Logf("MQTT publish error (gyro): %v", err)
			}
			if err := p.PublishStatus(); err != nil {
				monitoring.Logf("MQTT publish error (gyro/status): %v", err)
			}
			st := p.pipe.Status()
			if st.Restarts != lastRestarts && !st.Complete {
				monitoring.Logf("gyro: movement during calibration, window restarted (%d so far)", st.Restarts)
			}
			lastRestarts = st.Restarts
		}
	}
}

// openSource builds the configured gyro sample source.
func openSource(cfg *config.Config) (imu.GyroSource, string, error) {
	switch cfg.GyroSource {
	case config.SourceMock:
		monitoring.Logf("using mock gyro source (noise=%.1f, vibration=%.0fHz)", cfg.MockNoise, cfg.MockVibrationHz)
		return sensors.NewMockSource(sensors.MockConfig{
			Bias:         cfg.MockBias,
			NoiseStdDev:  cfg.MockNoise,
			LooptimeUs:   cfg.LooptimeUs,
			VibrationHz:  cfg.MockVibrationHz,
			VibrationAmp: cfg.MockVibrationAmp,
			Seed:         uint64(time.Now().UnixNano()),
		}), config.SourceMock, nil
	default:
		src, err := sensors.NewGyroSource()
		if err != nil {
			return nil, "", err
		}
		return src, config.SourceMPU9250, nil
	}
}

// RunGyroProducer initialises the sensor, calibrates, and publishes the
// conditioned gyro signal until interrupted.
func RunGyroProducer() error {
	monitoring.Logf("starting gyro conditioner producer")

	cfg := config.Get()

	src, name, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize gyro: %w", err)
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)
	monitoring.Logf("connected to MQTT broker at %s", cfg.MQTTBroker)

	producer := NewProducer(cfg, src, name, mqttPublisher{client: client})

	token := client.Subscribe(cfg.TopicGyroCmd, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cmd Command
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			monitoring.Logf("gyro: command unmarshal error: %v", err)
			return
		}
		if !producer.Submit(cmd) {
			monitoring.Logf("gyro: command queue full, dropped %q", cmd.Action)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.TopicGyroCmd, token.Error())
	}
	monitoring.Logf("subscribed to MQTT topic %s", cfg.TopicGyroCmd)

	producer.BeginCalibration()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitoring.Logf("gyro loop running every %dµs", cfg.LooptimeUs)
	err = producer.Run(ctx)
	monitoring.Logf("gyro producer shutting down")
	return err
}
