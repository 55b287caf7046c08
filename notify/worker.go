package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"

	"github.com/rs/zerolog"

	"github.com/phillip/club-events-go/models"
)

type Mailer interface {
	Send(ctx context.Context, to, name, subject, htmlBody string) error
}

type Consumer interface {
	Consume(ctx context.Context, handler func([]byte) error) error
}

// Worker turns confirmation messages into emails.
type Worker struct {
	consumer Consumer
	mailer   Mailer
	log      *zerolog.Logger
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewWorker(consumer Consumer, mailer Mailer, log *zerolog.Logger) *Worker {
	return &Worker{
		consumer: consumer,
		mailer:   mailer,
		log:      log,
		done:     make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	cctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if err := w.consumer.Consume(cctx, func(body []byte) error { return w.handle(cctx, body) }); err != nil {
		cancel()
		close(w.done)
		return err
	}

	go func() {
		defer close(w.done)
		<-cctx.Done()
		w.log.Info().Msg("confirmation worker stopped")
	}()
	return nil
}

func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Worker) handle(ctx context.Context, body []byte) error {
	var msg Confirmation
	if err := json.Unmarshal(body, &msg); err != nil {
		// Malformed messages are dropped; redelivery cannot fix them.
		w.log.Error().Err(err).Str("body", string(body)).Msg("failed to unmarshal confirmation")
		return nil
	}

	if msg.Email == "" {
		w.log.Info().Str("registration_id", msg.RegistrationID).Msg("no email on registration, skipping")
		return nil
	}

	subject, htmlBody := confirmationEmail(msg)
	if err := w.mailer.Send(ctx, msg.Email, msg.Name, subject, htmlBody); err != nil {
		return fmt.Errorf("send confirmation %s: %w", msg.RegistrationID, err)
	}

	w.log.Info().
		Str("registration_id", msg.RegistrationID).
		Str("email", msg.Email).
		Msg("confirmation email sent")
	return nil
}

func confirmationEmail(msg Confirmation) (string, string) {
	event := html.EscapeString(msg.EventName)
	name := html.EscapeString(msg.Name)
	payment := html.EscapeString(msg.PaymentID)

	switch msg.Kind {
	case models.KindHackathon:
		return fmt.Sprintf("Team %s is registered for %s", msg.Name, msg.EventName),
			fmt.Sprintf("<p>Hello!</p><p>Your team <b>%s</b> is registered for <b>%s</b>.</p><p>Payment reference: %s</p>", name, event, payment)
	default:
		return fmt.Sprintf("You're registered for %s", msg.EventName),
			fmt.Sprintf("<p>Hi %s,</p><p>Your registration for <b>%s</b> is confirmed.</p><p>Payment reference: %s</p>", name, event, payment)
	}
}
