package rabbitmq

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"claim-evaluator/internal/model"
)

type AnalysisPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAnalysisPublisher(conn *amqp.Connection, queueName string) *AnalysisPublisher {
	return &AnalysisPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AnalysisPublisher) PublishCompleted(ctx context.Context, event model.AnalysisCompletedEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal analysis event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         "analysis.completed",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish analysis event failed: %w", err)
	}
	return nil
}
