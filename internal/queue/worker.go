package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxBackoff = 30 * time.Second

// errSend marks a failure of the Mailer. Only those are worth a
// redelivery; a message that fails to decode or render fails the same way
// every time.
var errSend = errors.New("send")

func shouldRequeue(err error) bool { return errors.Is(err, errSend) }

// Worker consumes NotificationQueue, renders each event and hands the
// result to a Mailer.
type Worker struct {
	url      string
	renderer *Renderer
	mailer   Mailer
	log      *zap.Logger
	prefetch int
}

func NewWorker(url string, renderer *Renderer, mailer Mailer, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{url: url, renderer: renderer, mailer: mailer, log: log, prefetch: 20}
}

// Run connects to the broker and consumes until ctx is cancelled. Lost
// connections are re-dialed with exponential backoff capped at 30s.
func (w *Worker) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(w.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			w.log.Warn("notification-worker: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second
		w.log.Info("notification-worker: connected", zap.String("queue", NotificationQueue))

		err = w.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn("notification-worker: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (w *Worker) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		w.log.Warn("notification-worker: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.Handle(ctx, d.Body); err != nil {
				requeue := shouldRequeue(err)
				w.log.Error("notification-worker: handle message failed",
					zap.String("message_id", d.MessageId), zap.Bool("requeue", requeue), zap.Error(err))
				_ = d.Nack(false, requeue)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body, renders it and sends the mail.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Email == "" {
		return errors.New("event without recipient")
	}
	html, err := w.renderer.Render(ev)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := w.mailer.Send(ctx, Mail{ID: ev.ID, To: ev.Email, Subject: ev.Subject, Body: html}); err != nil {
		return fmt.Errorf("%w: %w", errSend, err)
	}
	w.log.Info("notification sent", zap.String("message_id", ev.ID), zap.String("template", ev.Template))
	return nil
}

// sleep waits for d and reports false when ctx ended first.
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
