package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

const (
	bookingLog      = "booking.log"
	notificationLog = "notifications.log"
)

// Consumer listens on every reservation queue.  Guest notices are appended
// to notifications.log; every other event goes to booking.log.  Both live
// in Dir.
type Consumer struct {
	url    string
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewConsumer builds a consumer writing into dir.
func NewConsumer(url, dir string, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = "logs"
	}
	return &Consumer{url: url, dir: dir, logger: logger}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("consumer: dial failed", zap.Error(err), zap.Duration("retryIn", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("consumer: set QoS failed", zap.Error(err))
	}

	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, name := range Queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.logger.Error("consumer: handle message failed",
					zap.String("queue", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, false) // drop rather than requeue in a tight loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle records one message body.
func (c *Consumer) Handle(body []byte) error {
	ev, err := Decode(body)
	if err != nil {
		return err
	}
	if ev.Type == model.EventGuestNotice {
		return c.appendLine(notificationLog, noticeLine(ev))
	}
	return c.appendLine(bookingLog, bookingLine(ev))
}

func (c *Consumer) appendLine(name, line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
