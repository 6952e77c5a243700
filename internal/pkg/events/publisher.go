package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const RoutingKeyAbsenceRecorded = "attendance.absence_recorded"

// AbsenceRecorded is the message body published when the reconciler closes a missed check-out.
type AbsenceRecorded struct {
	EventID        string    `json:"event_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	RecordID       string    `json:"record_id"`
	EmployeeID     string    `json:"employee_id"`
	WorkDate       string    `json:"work_date"`
	DayRecordIndex int       `json:"day_record_index"`
	GroupIndex     int       `json:"group_index"`
	ScheduledExit  time.Time `json:"scheduled_exit"`
	Classification string    `json:"classification"`
}

func NewAbsenceRecorded(r attendance.Record, now time.Time) AbsenceRecorded {
	return AbsenceRecorded{
		EventID:        uuid.NewString(),
		OccurredAt:     now.UTC(),
		RecordID:       r.ID,
		EmployeeID:     r.EmployeeID,
		WorkDate:       r.WorkDate.Format("2006-01-02"),
		DayRecordIndex: r.DayRecordIndex,
		GroupIndex:     r.GroupIndex,
		ScheduledExit:  r.Timestamp.UTC(),
		Classification: string(r.Classification),
	}
}

// AMQPPublisher publishes attendance events to a topic exchange.
type AMQPPublisher struct {
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
	mu       sync.Mutex
}

func NewAMQPPublisher(conn *amqp.Connection, exchange string, timeout time.Duration) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQPPublisher{ch: ch, exchange: exchange, timeout: timeout}, nil
}

// PublishAbsenceRecorded implements attendance.EventPublisher.
func (p *AMQPPublisher) PublishAbsenceRecorded(ctx context.Context, record attendance.Record) error {
	event := NewAbsenceRecorded(record, time.Now())
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", RoutingKeyAbsenceRecorded, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		RoutingKeyAbsenceRecorded,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.OccurredAt,
			Type:         RoutingKeyAbsenceRecorded,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyAbsenceRecorded, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.ch.Close()
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct{}

// PublishAbsenceRecorded implements attendance.EventPublisher.
func (LogPublisher) PublishAbsenceRecorded(ctx context.Context, record attendance.Record) error {
	slog.Info("Absence recorded",
		"employee_id", record.EmployeeID,
		"work_date", record.WorkDate.Format("2006-01-02"),
		"record_id", record.ID)
	return nil
}

var (
	_ attendance.EventPublisher = (*AMQPPublisher)(nil)
	_ attendance.EventPublisher = LogPublisher{}
)
