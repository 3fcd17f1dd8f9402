// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
)

func newTestServer(t *testing.T, send func(Command) error) (*httptest.Server, *gyroState) {
	t.Helper()
	state := newGyroState()
	srv := httptest.NewServer(newWebMux(state, send))
	t.Cleanup(srv.Close)
	return srv, state
}

func noSend(Command) error { return nil }

func TestWebGyroEndpoint(t *testing.T) {
	srv, state := newTestServer(t, noSend)

	resp, err := http.Get(srv.URL + "/api/gyro")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	state.setOutput(imu.GyroOutput{ADC: [3]int32{1, 2, 3}, Calibrated: true, Tick: 42})

	resp, err = http.Get(srv.URL + "/api/gyro")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out imu.GyroOutput
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, [3]int32{1, 2, 3}, out.ADC)
	assert.Equal(t, int64(42), out.Tick)
}

func TestWebStatusAndEventEndpoints(t *testing.T) {
	srv, state := newTestServer(t, noSend)

	resp, err := http.Get(srv.URL + "/api/event")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	state.setStatus(imu.CalibrationStatus{Complete: true, ZeroOffset: [3]int32{5, -5, 0}})
	state.setEvent(imu.GyroEvent{Event: "gyro_calibrated", ZeroOffset: [3]int32{5, -5, 0}})

	resp, err = http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	var st imu.CalibrationStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.True(t, st.Complete)
	assert.Equal(t, [3]int32{5, -5, 0}, st.ZeroOffset)

	resp, err = http.Get(srv.URL + "/api/event")
	require.NoError(t, err)
	var ev imu.GyroEvent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ev))
	resp.Body.Close()
	assert.Equal(t, "gyro_calibrated", ev.Event)
}

func TestWebCalibrate(t *testing.T) {
	sent := make(chan Command, 1)
	var fail atomic.Bool
	srv, _ := newTestServer(t, func(c Command) error {
		if fail.Load() {
			return errors.New("broker down")
		}
		sent <- c
		return nil
	})

	resp, err := http.Get(srv.URL + "/api/calibrate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/calibrate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, Command{Action: "calibrate"}, <-sent)

	fail.Store(true)
	resp, err = http.Post(srv.URL+"/api/calibrate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestWebSocketStream(t *testing.T) {
	commands := make(chan Command, 1)
	srv, state := newTestServer(t, func(c Command) error {
		commands <- c
		return nil
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		state.clientsMu.Lock()
		defer state.clientsMu.Unlock()
		return len(state.clients) == 1
	}, time.Second, 5*time.Millisecond)

	state.setStatus(imu.CalibrationStatus{Progress: 0.5, Remaining: 500})

	var msg struct {
		Type string                `json:"type"`
		Data imu.CalibrationStatus `json:"data"`
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, uint32(500), msg.Data.Remaining)

	require.NoError(t, conn.WriteJSON(WSMessage{Action: "debug", Mode: "notch"}))
	select {
	case c := <-commands:
		assert.Equal(t, Command{Action: "debug", Mode: "notch"}, c)
	case <-time.After(time.Second):
		t.Fatal("command not forwarded")
	}
}

func TestWebLogsThroughMonitoring(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	prev := monitoring.Logf
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		lines = append(lines, fmt.Sprintf(format, v...))
		mu.Unlock()
	})
	t.Cleanup(func() { monitoring.Logf = prev })

	srv, _ := newTestServer(t, noSend)

	// A plain GET is not a websocket handshake.
	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "web: websocket upgrade error")
}
