// Package health reports sync health over the standard gRPC health protocol.
package health

import (
	"context"

	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/metrics"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service key for the replay pipeline. The empty
// service name mirrors it.
const ServiceName = "omnipos.stockagent.v1.Sync"

type Subscriber interface {
	Subscribe() (<-chan model.State, func())
}

// Reporter follows state changes and publishes SERVING while the device is
// online, NOT_SERVING while it is offline.
type Reporter struct {
	server  *grpchealth.Server
	source  Subscriber
	metrics *metrics.Collector
	logger  logger.ZapLogger

	last healthpb.HealthCheckResponse_ServingStatus
}

func NewReporter(source Subscriber, m *metrics.Collector, log logger.ZapLogger) *Reporter {
	return &Reporter{
		server:  grpchealth.NewServer(),
		source:  source,
		metrics: m,
		logger:  log,
	}
}

// Register exposes the health service and reflection on s.
func (r *Reporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.server)
	reflection.Register(s)
}

func (r *Reporter) Server() healthpb.HealthServer {
	return r.server
}

// Start blocks until ctx is done; on return every service reads NOT_SERVING.
func (r *Reporter) Start(ctx context.Context) {
	states, cancel := r.source.Subscribe()
	defer cancel()
	defer r.server.Shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			r.Apply(st)
		}
	}
}

// Apply publishes the health and gauges for one state.
func (r *Reporter) Apply(st model.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if st.Online {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.server.SetServingStatus("", status)
	r.server.SetServingStatus(ServiceName, status)

	counts := map[model.MutationStatus]int{}
	for _, m := range st.Queue {
		counts[m.Status]++
	}
	r.metrics.SetQueue(counts)
	r.metrics.SetOnline(st.Online)

	if status != r.last {
		r.logger.Info("sync health changed",
			zap.String("status", status.String()),
			zap.Int("queue", len(st.Queue)),
			zap.Int("conflicts", len(st.Conflicts)),
		)
		r.last = status
	}
}
