package receiver

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/poslog/poslog/internal/storage"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// GRPCReceiver handles OTLP/gRPC log export requests.
type GRPCReceiver struct {
	collogspb.UnimplementedLogsServiceServer
	store    storage.Storage
	server   *grpc.Server
	listener net.Listener
	addr     string
}

// NewGRPCReceiver creates a new gRPC receiver.
func NewGRPCReceiver(addr string, store storage.Storage) *GRPCReceiver {
	return &GRPCReceiver{
		store: store,
		addr:  addr,
	}
}

// Start starts the gRPC server.
func (r *GRPCReceiver) Start() error {
	lis, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	r.listener = lis

	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, r)

	// Reflection makes the endpoint debuggable with grpcurl.
	reflection.Register(r.server)

	log.Printf("gRPC server listening on %s", r.addr)
	return r.server.Serve(lis)
}

// Shutdown gracefully shuts down the gRPC server.
func (r *GRPCReceiver) Shutdown(ctx context.Context) error {
	if r.server != nil {
		r.server.GracefulStop()
	}
	return nil
}

// Export implements the LogsService Export RPC.
func (r *GRPCReceiver) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	records := convertResourceLogs(req.GetResourceLogs())

	for _, in := range records {
		if _, err := r.store.Insert(ctx, in); err != nil {
			return nil, fmt.Errorf("failed to store log: %w", err)
		}
	}

	return &collogspb.ExportLogsServiceResponse{
		PartialSuccess: &collogspb.ExportLogsPartialSuccess{
			RejectedLogRecords: 0,
		},
	}, nil
}
