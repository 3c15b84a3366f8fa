package kafka

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func kafkaBroker(t *testing.T) string {
	t.Helper()
	broker := os.Getenv("KAFKA_BROKERS")
	if broker == "" {
		broker = "localhost:9092"
	}
	conn, err := net.DialTimeout("tcp", broker, time.Second)
	if err != nil {
		t.Skipf("kafka not available: %v", err)
	}
	conn.Close()
	return broker
}

// Cancelling the context must stop the dispatch loop, drain the workers and
// return nil rather than surfacing the cancellation as a read error.
func TestConsumer_CancelStopsStart(t *testing.T) {
	broker := kafkaBroker(t)

	c := NewConsumer([]string{broker}, "test-group-"+uuid.NewString(), "test.lifecycle", 2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(ctx context.Context, m kafka.Message) error { return nil })
	}()

	time.Sleep(500 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}
