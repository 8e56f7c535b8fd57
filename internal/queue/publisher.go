package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends booking events to RabbitMQ.  A connection is dialed
// per publish; status changes are rare enough that a pooled channel is
// not worth the reconnect bookkeeping.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishStatusChanged publishes ev to the queue of its new status.
// Events for statuses no queue is interested in are dropped.  Errors
// are logged and returned so callers can ignore them.
func (p *Publisher) PublishStatusChanged(ctx context.Context, ev BookingStatusChangedEvent) error {
	queueName := QueueFor(ev.Status)
	if queueName == "" {
		return nil
	}
	log := logrus.WithFields(logrus.Fields{"queue": queueName, "booking_id": ev.BookingID})

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
