package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/iliyamo/hotel-front-desk/internal/observability"
)

const dialTimeout = 2 * time.Second

// Publisher sends reservation events to RabbitMQ.  It dials per publish,
// so a broker outage costs a failed publish and never a stuck request.
// Errors are logged and returned so callers may ignore them.
type Publisher struct {
    url string
    log zerolog.Logger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log zerolog.Logger) *Publisher {
    return &Publisher{url: url, log: log.With().Str("component", "event-publisher").Logger()}
}

// Publish sends ev to the reservation.events queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) (err error) {
    defer func() { observability.ObservePublish(err) }()

    conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
    if err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so messages survive broker restarts.
    if _, err = ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
        p.log.Warn().Err(err).Msg("rabbitmq queue declare failed")
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err = ch.PublishWithContext(ctx, "", ReservationQueue, false, false, pub); err != nil {
        p.log.Warn().Err(err).Str("event", ev.Type).Uint64("reservation_id", ev.ReservationID).Msg("rabbitmq publish failed")
        return err
    }
    return nil
}
