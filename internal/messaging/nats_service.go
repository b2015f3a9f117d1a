/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-support/internal/config"
	"github.com/loqalabs/loqa-support/internal/events"
	"github.com/loqalabs/loqa-support/internal/logging"
)

// DefaultSubject carries one message per processed interaction
const DefaultSubject = "loqa.support.interactions"

// connection is the subset of *nats.Conn the service publishes through
type connection interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Close()
}

// NATSService publishes interaction events to NATS
type NATSService struct {
	cfg  config.NATSConfig
	mu   sync.RWMutex
	conn connection
}

// NewNATSService creates a new NATS service instance
func NewNATSService(cfg config.NATSConfig) *NATSService {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	return &NATSService{cfg: cfg}
}

// Connect establishes connection to NATS server
func (ns *NATSService) Connect() error {
	logging.LogNATSEvent(ns.cfg.Subject, "connect", zap.String("url", ns.cfg.URL))

	opts := []nats.Option{
		nats.Name("loqa-support"),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("⚠️  NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogInfo("🔄 NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogInfo("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.mu.Lock()
	ns.conn = conn
	ns.mu.Unlock()

	logging.LogInfo("✅ Connected to NATS server", zap.String("url", conn.ConnectedUrl()))
	return nil
}

// PublishInteraction publishes an interaction event as JSON
func (ns *NATSService) PublishInteraction(event *events.InteractionEvent) error {
	ns.mu.RLock()
	conn := ns.conn
	ns.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	if err := conn.Publish(ns.cfg.Subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", ns.cfg.Subject, err)
	}

	logging.LogNATSEvent(ns.cfg.Subject, "publish",
		zap.String("uuid", event.UUID),
		zap.String("intent", event.Intent),
	)
	return nil
}

// Subject returns the subject interactions are published on
func (ns *NATSService) Subject() string {
	return ns.cfg.Subject
}

// Close closes the NATS connection
func (ns *NATSService) Close() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.conn != nil {
		ns.conn.Close()
		ns.conn = nil
	}
}

// IsConnected returns true if connected to NATS
func (ns *NATSService) IsConnected() bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.conn != nil && ns.conn.IsConnected()
}
