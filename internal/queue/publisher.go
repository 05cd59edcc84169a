package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/unitimehq/unitime/internal/model"
    "github.com/unitimehq/unitime/internal/scheduling"
)

const eventQueueName = "timetable.events"

// Publisher publishes booking events to the timetable.events queue.  A
// short-lived connection is opened per publish; event volume is low and
// the approach needs no reconnect bookkeeping.  Errors are logged and
// returned so the caller can choose to ignore them without interrupting
// the main request flow.
type Publisher struct {
    url string
}

// NewPublisher constructs a Publisher for the given AMQP broker URL.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url}
}

// PublishBookingEvent publishes the booking change to the broker.  The
// queue is declared durable and messages are marked persistent.
func (p *Publisher) PublishBookingEvent(ctx context.Context, kind scheduling.ChangeKind, b model.ClassBooking) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        eventQueueName, // name
        true,           // durable
        false,          // autoDelete
        false,          // exclusive
        false,          // noWait
        nil,            // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    ev := BookingEvent{
        Kind:          string(kind),
        BookingID:     b.ID,
        CourseCode:    b.CourseCode,
        Title:         b.Title,
        Room:          b.Room,
        LecturerID:    b.LecturerID,
        LecturerEmail: b.LecturerEmail,
        ClassRepID:    b.ClassRepID,
        StartsAt:      b.Start.UTC().Format(time.RFC3339),
        EndsAt:        b.End.UTC().Format(time.RFC3339),
        Status:        string(b.Status),
        OccurredAt:    time.Now().UTC().Format(time.RFC3339),
    }
    if b.PreviousRoom != nil {
        ev.PreviousRoom = *b.PreviousRoom
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",             // default exchange
        eventQueueName, // routing key = queue name
        false,          // mandatory
        false,          // immediate
        pub,
    ); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }

    return nil
}
