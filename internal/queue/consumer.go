package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer drains the booking queues and appends one line per event to
// <LogDir>/booking.log.
type Consumer struct {
	URL    string
	LogDir string
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff.  Messages that cannot be
// handled are rejected without requeue so a bad payload cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	log := logrus.WithField("component", "booking-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logrus.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	merged := make(chan amqp.Delivery)
	for _, name := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	path := filepath.Join(c.LogDir, "booking.log")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("connection closed")
		case d := <-merged:
			if err := appendEvent(path, d.Body); err != nil {
				logrus.WithError(err).Warn("booking-consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// appendEvent decodes one event and appends its log line to path.
func appendEvent(path string, body []byte) error {
	var ev BookingStatusChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == 0 || ev.Status == "" {
		return errors.New("event missing booking_id or status")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev BookingStatusChangedEvent) string {
	reason := ev.Reason
	if reason == "" {
		reason = "-"
	}
	return fmt.Sprintf("[%s] Booking %s | booking_id=%d | user_id=%d | type=%s | from=%s | total=%s | reason=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), strings.ToLower(ev.Status), ev.BookingID, ev.UserID,
		ev.BookingType, ev.PreviousStatus, ev.TotalPrice, reason)
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
