package export

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nixlim/mixwatch/internal/alerts"
)

const exportTimeout = 5 * time.Second

// OTLPExporter sends each toast as a log record to an OTLP/gRPC collector.
type OTLPExporter struct {
	conn   *grpc.ClientConn
	client collogspb.LogsServiceClient
	queue  chan alerts.Toast
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewOTLPExporter connects to endpoint (host:port) without TLS. The
// connection is established lazily, so an unreachable collector only
// surfaces as logged export failures.
func NewOTLPExporter(endpoint string, opts ...grpc.DialOption) (*OTLPExporter, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP client for %s: %w", endpoint, err)
	}
	e := &OTLPExporter{
		conn:   conn,
		client: collogspb.NewLogsServiceClient(conn),
		queue:  make(chan alerts.Toast, queueSize),
		done:   make(chan struct{}),
	}
	go e.run()
	return e, nil
}

// Notify queues a toast for export. It never blocks; toasts are dropped
// when the queue is full.
func (e *OTLPExporter) Notify(t alerts.Toast) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- t:
	default:
		log.Printf("WARNING: OTLP export queue full, dropping toast %s", t.ID)
	}
}

func (e *OTLPExporter) run() {
	defer close(e.done)
	for t := range e.queue {
		if err := e.export(t); err != nil {
			log.Printf("WARNING: OTLP export of toast %s: %v", t.ID, err)
		}
	}
}

func (e *OTLPExporter) export(t alerts.Toast) error {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	_, err := e.client.Export(ctx, &collogspb.ExportLogsServiceRequest{
		ResourceLogs: ResourceLogs(LogRecord(t)),
	})
	return err
}

// Close drains queued toasts and closes the connection.
func (e *OTLPExporter) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	<-e.done
	return e.conn.Close()
}
