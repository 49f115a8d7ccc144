// Package health отдает gRPC health сервис, статус которого следует за движком обработки.
package health

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя health сервиса API сканирования
const ServiceName = "bodyscan.v1.ScanService"

// Checker сообщает, может ли бэкенд обрабатывать сканы.
type Checker interface {
	Ready(ctx context.Context) error
}

// Server gRPC health сервер
type Server struct {
	grpc     *grpc.Server
	health   *grpchealth.Server
	checker  Checker
	interval time.Duration
	logger   *logrus.Logger
}

// NewServer создает health сервер. Статус обновляется каждые interval.
func NewServer(checker Checker, interval time.Duration, logger *logrus.Logger) *Server {
	s := &Server{
		grpc:     grpc.NewServer(),
		health:   grpchealth.NewServer(),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Refresh один раз опрашивает checker и публикует результат.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.checker.Ready(ctx); err != nil {
		s.logger.Warnf("Бэкенд обработки не готов: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.setStatus(status)
	return status
}

// Watch обновляет статус до завершения ctx.
func (s *Server) Watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Serve принимает соединения на lis до вызова Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Infof("gRPC health сервер слушает %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop помечает сервис как NOT_SERVING и плавно останавливает сервер.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
