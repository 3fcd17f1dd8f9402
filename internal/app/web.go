// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is sent by websocket clients.
type WSMessage struct {
	Action string `json:"action"` // calibrate, debug
	Mode   string `json:"mode,omitempty"`
}

// WSResponse is pushed to websocket clients.
type WSResponse struct {
	Type    string      `json:"type"` // gyro, status, event, error
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// gyroState keeps the latest messages seen on the gyro topics and fans
// them out to websocket clients.
type gyroState struct {
	mu         sync.RWMutex
	output     imu.GyroOutput
	haveOutput bool
	status     imu.CalibrationStatus
	haveStatus bool
	lastEvent  *imu.GyroEvent

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]*sync.Mutex
}

func newGyroState() *gyroState {
	return &gyroState{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

func (s *gyroState) setOutput(o imu.GyroOutput) {
	s.mu.Lock()
	s.output, s.haveOutput = o, true
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "gyro", Data: o})
}

func (s *gyroState) setStatus(st imu.CalibrationStatus) {
	s.mu.Lock()
	s.status, s.haveStatus = st, true
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "status", Data: st})
}

func (s *gyroState) setEvent(e imu.GyroEvent) {
	s.mu.Lock()
	s.lastEvent = &e
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "event", Data: e})
}

func (s *gyroState) addClient(c *websocket.Conn) *sync.Mutex {
	wmu := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[c] = wmu
	s.clientsMu.Unlock()
	return wmu
}

func (s *gyroState) removeClient(c *websocket.Conn) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()
}

func (s *gyroState) broadcast(msg WSResponse) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c, wmu := range s.clients {
		wmu.Lock()
		c.SetWriteDeadline(time.Now().Add(time.Second))
		err := c.WriteJSON(msg)
		wmu.Unlock()
		if err != nil {
			monitoring.Logf("web: websocket write error: %v", err)
			c.Close()
			delete(s.clients, c)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("json encode error: %v", err)
	}
}

// newWebMux builds the HTTP API. send forwards a command to the producer.
func newWebMux(s *gyroState, send func(Command) error) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/gyro", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveOutput {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.output)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveStatus {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.status)
	})

	mux.HandleFunc("/api/event", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.lastEvent == nil {
			http.Error(w, "no event yet", http.StatusNotFound)
			return
		}
		writeJSON(w, s.lastEvent)
	})

	mux.HandleFunc("/api/calibrate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := send(Command{Action: "calibrate"}); err != nil {
			monitoring.Logf("web: calibrate request failed: %v", err)
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			monitoring.Logf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()
		wmu := s.addClient(conn)
		defer s.removeClient(conn)

		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					monitoring.Logf("web: websocket read error: %v", err)
				}
				return
			}
			if err := send(Command{Action: msg.Action, Mode: msg.Mode}); err != nil {
				wmu.Lock()
				conn.WriteJSON(WSResponse{Type: "error", Message: err.Error()})
				wmu.Unlock()
			}
		}
	})

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// subscribeInto decodes every message on topic into T and hands it to set.
func subscribeInto[T any](client mqtt.Client, topic string, set func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			monitoring.Logf("MQTT payload unmarshal error (%s): %v", topic, err)
			return
		}
		set(v)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	monitoring.Logf("subscribed to MQTT topic %s", topic)
	return nil
}

func RunWeb() error {
	cfg := config.Get()
	state := newGyroState()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	monitoring.Logf("connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeInto(client, cfg.TopicGyro, state.setOutput); err != nil {
		return err
	}
	if err := subscribeInto(client, cfg.TopicGyroStatus, state.setStatus); err != nil {
		return err
	}
	if err := subscribeInto(client, cfg.TopicGyroEvent, state.setEvent); err != nil {
		return err
	}

	pub := mqttPublisher{client: client}
	send := func(cmd Command) error {
		return pub.Publish(cfg.TopicGyroCmd, false, cmd)
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	monitoring.Logf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(state, send))
}
