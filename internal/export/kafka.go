package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/protobuf/proto"

	"github.com/nixlim/mixwatch/internal/alerts"
)

// Kafka message encodings.
const (
	EncodingJSON = "json"
	EncodingOTLP = "otlp"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each toast to a Kafka topic keyed by fingerprint, so
// every event for one reading lands on the same partition.
type KafkaSink struct {
	w        MessageWriter
	encoding string
	queue    chan alerts.Toast
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewKafkaSink creates a sink writing to topic on brokers. encoding is
// EncodingJSON (default) or EncodingOTLP.
func NewKafkaSink(brokers []string, topic, encoding string) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaSink(w, encoding)
}

func newKafkaSink(w MessageWriter, encoding string) *KafkaSink {
	if encoding == "" {
		encoding = EncodingJSON
	}
	s := &KafkaSink{
		w:        w,
		encoding: encoding,
		queue:    make(chan alerts.Toast, queueSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify queues a toast for publishing. It never blocks.
func (s *KafkaSink) Notify(t alerts.Toast) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- t:
	default:
		log.Printf("WARNING: kafka queue full, dropping toast %s", t.ID)
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)
	for t := range s.queue {
		msg, err := s.message(t)
		if err != nil {
			log.Printf("ERROR: encoding toast %s: %v", t.ID, err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		err = s.w.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			log.Printf("WARNING: kafka publish of toast %s: %v", t.ID, err)
		}
	}
}

// toastMessage is the JSON payload of a published toast.
type toastMessage struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Severity    string    `json:"severity"`
	Tier        string    `json:"tier"`
	Fingerprint string    `json:"fingerprint"`
	MachineID   string    `json:"machine_id"`
	ReadingID   string    `json:"reading_id"`
	Ratio       float64   `json:"ratio"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *KafkaSink) message(t alerts.Toast) (kafka.Message, error) {
	var (
		value       []byte
		contentType string
		err         error
	)
	switch s.encoding {
	case EncodingOTLP:
		contentType = "application/x-protobuf"
		value, err = proto.Marshal(&logspb.LogsData{ResourceLogs: ResourceLogs(LogRecord(t))})
	default:
		contentType = "application/json"
		value, err = json.Marshal(toastMessage{
			ID:          t.ID,
			Message:     t.Message,
			Severity:    t.Severity(),
			Tier:        t.Tier.Label(),
			Fingerprint: t.Fingerprint,
			MachineID:   t.MachineID,
			ReadingID:   t.ReadingID,
			Ratio:       t.Ratio,
			CreatedAt:   t.CreatedAt,
		})
	}
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding %s: %w", s.encoding, err)
	}
	return kafka.Message{
		Key:   []byte(t.Fingerprint),
		Value: value,
		Time:  t.CreatedAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(contentType)},
		},
	}, nil
}

// Close flushes queued toasts and closes the writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	return s.w.Close()
}
