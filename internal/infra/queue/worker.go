package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dispatcher sends one queued attempt through the messaging collaborator.
type Dispatcher interface {
	Execute(ctx context.Context, attemptID string) error
}

type Worker struct {
	Channel    *amqp.Channel
	Dispatcher Dispatcher
}

func NewWorker(ch *amqp.Channel, dispatcher Dispatcher) *Worker {
	return &Worker{Channel: ch, Dispatcher: dispatcher}
}

func (w *Worker) Start(ctx context.Context, queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("❌ failed to register RabbitMQ consumer: %s", err)
	}

	log.Printf(" [*] dispatch worker waiting on queue '%s'", queueName)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ dispatch worker shutting down")
			return
		case d, ok := <-msgs:
			if !ok {
				log.Println("⚠️ dispatch channel closed")
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var payload DispatchPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		log.Printf("❌ [WORKER] invalid dispatch JSON: %s", err)
		// poison message, reject without requeue so the queue keeps moving
		d.Nack(false, false)
		return
	}

	log.Printf("📥 [WORKER] dispatching outreach attempt %s", payload.AttemptID)

	if err := w.Dispatcher.Execute(ctx, payload.AttemptID); err != nil {
		// dispatch already recorded the cancellation + reason; DLQ keeps the
		// message for the operator
		log.Printf("❌ [WORKER] dispatch failed for %s: %s", payload.AttemptID, err)
		d.Nack(false, false)
		return
	}

	log.Printf("✅ [WORKER] attempt %s sent", payload.AttemptID)
	d.Ack(false)
}
