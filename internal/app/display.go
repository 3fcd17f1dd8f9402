// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 13
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	output     imu.GyroOutput
	haveOutput bool
	status     imu.CalibrationStatus
	haveStatus bool
}

func (d *DisplayData) setOutput(o imu.GyroOutput) {
	d.mu.Lock()
	d.output, d.haveOutput = o, true
	d.mu.Unlock()
}

func (d *DisplayData) setStatus(s imu.CalibrationStatus) {
	d.mu.Lock()
	d.status, d.haveStatus = s, true
	d.mu.Unlock()
}

// lines picks the text for the current state: a progress screen while the
// gyro calibrates, rates and offsets afterwards.
func (d *DisplayData) lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.haveStatus && !d.haveOutput {
		return []string{"Gyro", "Waiting..."}
	}
	if d.haveStatus && !d.status.Complete {
		return []string{
			"Calibrating",
			fmt.Sprintf("%5.1f%%", d.status.Progress*100),
			fmt.Sprintf("left: %d", d.status.Remaining),
			fmt.Sprintf("restarts: %d", d.status.Restarts),
		}
	}
	out := []string{"Gyro"}
	if d.haveOutput {
		out = append(out,
			fmt.Sprintf("X:%6d", d.output.ADC[imu.X]),
			fmt.Sprintf("Y:%6d", d.output.ADC[imu.Y]),
			fmt.Sprintf("Z:%6d", d.output.ADC[imu.Z]),
		)
	}
	if d.haveStatus {
		z := d.status.ZeroOffset
		out = append(out, fmt.Sprintf("0:%d %d %d", z[imu.X], z[imu.Y], z[imu.Z]))
	}
	return out
}

// renderLines draws up to four lines of 7x13 text onto a blank frame.
func renderLines(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		y := (i + 1) * lineHeight
		if y > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, y)
		drawer.DrawString(line)
	}
	return img
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	monitoring.Logf("display: initialized at 0x3C")

	data := &DisplayData{}
	if err := dev.Draw(dev.Bounds(), renderLines(data.lines()), image.Point{}); err != nil {
		monitoring.Logf("display: error showing splash: %v", err)
	}

	// Connect to MQTT
	mopts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(mopts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	monitoring.Logf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeInto(client, cfg.TopicGyro, data.setOutput); err != nil {
		return err
	}
	if err := subscribeInto(client, cfg.TopicGyroStatus, data.setStatus); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	monitoring.Logf("display: starting update loop")
	for range ticker.C {
		if err := dev.Draw(dev.Bounds(), renderLines(data.lines()), image.Point{}); err != nil {
			monitoring.Logf("display: error updating display: %v", err)
		}
	}
	return nil
}
