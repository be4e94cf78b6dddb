package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

type Consumer struct {
	r        messageReader
	workers  int
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, workers: workers, attempts: defaultAttempts, backoff: defaultBackoff, log: log}
}

// Start fetches messages until ctx is done. Every partition is served by a
// single worker, so one partition (and so one order) is handled in offset
// order. A failing message is retried in place with backoff; after the last
// attempt it is logged and committed so the partition keeps moving.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 4)
		wg.Add(1)
		go func(jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if ctx.Err() != nil || !c.handle(ctx, h, m) {
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Error("commit offset",
						zap.Int("partition", m.Partition),
						zap.Int64("offset", m.Offset),
						zap.Error(err))
				}
			}
		}(lanes[i])
	}
	defer func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case lanes[laneFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func laneFor(partition, lanes int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % lanes
}

// handle runs h until it succeeds or attempts run out. It reports false
// when ctx ended first, in which case the offset must not be committed.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		fields := []zap.Field{
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if attempt >= c.attempts {
			c.log.Error("giving up on message", fields...)
			return true
		}
		c.log.Warn("handle message", fields...)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		wait *= 2
	}
}
