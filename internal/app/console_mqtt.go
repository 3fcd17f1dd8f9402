// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
)

func formatGyro(o imu.GyroOutput) string {
	state := "CAL"
	if o.Calibrated {
		state = "OK "
	}
	return fmt.Sprintf("[GYRO %s] x=%6d y=%6d z=%6d  (f %8.2f %8.2f %8.2f)  tick=%d",
		state, o.ADC[imu.X], o.ADC[imu.Y], o.ADC[imu.Z],
		o.ADCf[imu.X], o.ADCf[imu.Y], o.ADCf[imu.Z], o.Tick)
}

func formatStatus(s imu.CalibrationStatus) string {
	if !s.Complete {
		return fmt.Sprintf("[STAT] calibrating %5.1f%% (%d/%d cycles left, %d restarts)",
			s.Progress*100, s.Remaining, s.TotalCycles, s.Restarts)
	}
	return fmt.Sprintf("[STAT] calibrated  zero=(%d, %d, %d)  stddev=(%.2f, %.2f, %.2f)  restarts=%d",
		s.ZeroOffset[imu.X], s.ZeroOffset[imu.Y], s.ZeroOffset[imu.Z],
		s.StdDev[imu.X], s.StdDev[imu.Y], s.StdDev[imu.Z], s.Restarts)
}

func formatEvent(e imu.GyroEvent) string {
	return fmt.Sprintf("[EVNT] %s at %s  zero=(%d, %d, %d)",
		e.Event, e.Time, e.ZeroOffset[imu.X], e.ZeroOffset[imu.Y], e.ZeroOffset[imu.Z])
}

func formatDebug(d imu.GyroDebug) string {
	return fmt.Sprintf("[DBG %s] x=%6d y=%6d z=%6d  tick=%d",
		d.Mode, d.Values[imu.X], d.Values[imu.Y], d.Values[imu.Z], d.Tick)
}

// subscribePrint subscribes to topic and prints every message decoded into T.
func subscribePrint[T any](client mqtt.Client, topic string, format func(T) string) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			monitoring.Logf("console: %s unmarshal error: %v", topic, err)
			return
		}
		fmt.Println(format(v))
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	monitoring.Logf("console: subscribed to %s", topic)
	return nil
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	monitoring.Logf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribePrint(client, cfg.TopicGyro, formatGyro); err != nil {
		return err
	}
	if err := subscribePrint(client, cfg.TopicGyroStatus, formatStatus); err != nil {
		return err
	}
	if err := subscribePrint(client, cfg.TopicGyroEvent, formatEvent); err != nil {
		return err
	}
	if err := subscribePrint(client, cfg.TopicGyroDebug, formatDebug); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	monitoring.Logf("console: shutting down")
	return nil
}
