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

package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/loqalabs/loqa-support/internal/logging"
)

// ServiceName is the health-checked service name for the support pipeline
const ServiceName = "loqa.support.v1.VoiceSupport"

// HealthServer exposes grpc.health.v1 so orchestrators can probe the service
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer creates a gRPC server with the health service registered.
// Both the overall status and ServiceName start as NOT_SERVING.
func NewHealthServer() *HealthServer {
	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{server: server, health: healthServer}
}

// SetServing flips the overall and pipeline status
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	logging.LogInfo("gRPC health status updated", zap.String("status", status.String()))
}

// Serve accepts connections on lis until Stop is called
func (h *HealthServer) Serve(lis net.Listener) error {
	logging.LogInfo("🩺 gRPC health server listening", zap.String("addr", lis.Addr().String()))
	if err := h.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// ListenAndServe listens on host:port and serves
func (h *HealthServer) ListenAndServe(host string, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %d: %w", port, err)
	}
	return h.Serve(lis)
}

// Stop marks the service as shutting down and stops the server gracefully
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
