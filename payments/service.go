// Package payments creates gateway orders, verifies payment callbacks and
// records the resulting registrations.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phillip/club-events-go/metrics"
	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/notify"
	"github.com/phillip/club-events-go/store"
)

const defaultCurrency = "INR"

type EventReader interface {
	GetEvent(ctx context.Context, id string) (*models.Event, error)
}

type RegistrationWriter interface {
	InsertSuccessful(ctx context.Context, reg *models.Registration) (string, bool, error)
	InsertFailed(ctx context.Context, reg *models.Registration) (string, error)
}

type Notifier interface {
	RegistrationConfirmed(ctx context.Context, msg notify.Confirmation) error
}

type Service struct {
	creds    Credentials
	events   EventReader
	regs     RegistrationWriter
	gateway  Gateway
	notifier Notifier
	log      *zerolog.Logger
	now      func() time.Time
}

func NewService(creds Credentials, events EventReader, regs RegistrationWriter, gateway Gateway, log *zerolog.Logger) *Service {
	return &Service{
		creds:   creds,
		events:  events,
		regs:    regs,
		gateway: gateway,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNotifier enables confirmation messages for new registrations.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

type CreateOrderInput struct {
	EventID string
	// Amount overrides the stored fee when it is a positive number.
	Amount interface{}
}

type OrderResult struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"razorpayKeyId"`
	EventName string `json:"eventName"`
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		return nil, newError(CodeInvalidRequest, "Event ID is required.", nil)
	}

	if !s.creds.Configured() || s.gateway == nil {
		s.log.Error().Msg("payment gateway keys are not configured")
		return nil, newError(CodeConfig, "Payment service is not configured.", nil)
	}

	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Str("event_id", eventID).Msg("event not found")
			return nil, newError(CodeNotFound, "Event not found.", err)
		}
		return nil, newError(CodeStore, "Could not load event.", err)
	}

	amount := ev.RegistrationFee
	if in.Amount != nil {
		custom, err := customAmount(in.Amount)
		if err != nil {
			s.log.Warn().Str("event_id", eventID).Interface("amount", in.Amount).Msg("invalid custom amount")
			return nil, newError(CodeInvalidAmount, "Invalid or missing registration fee.", err)
		}
		if custom > 0 {
			amount = custom
		}
	}
	if amount <= 0 {
		s.log.Error().Str("event_id", eventID).Int64("amount", amount).Msg("invalid final amount")
		return nil, newError(CodeInvalidAmount, "Invalid or missing registration fee.", nil)
	}

	if !ev.IsActive {
		s.log.Warn().Str("event_id", eventID).Msg("order attempt for inactive event")
		return nil, newError(CodeEventClosed, "Registrations for this event are currently closed.", nil)
	}

	currency := ev.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	eventName := orNA(ev.EventName)

	order, err := s.gateway.CreateOrder(ctx, OrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  fmt.Sprintf("rcpt_%s_%d", eventID, s.now().UnixMilli()),
		Notes:    map[string]string{"eventId": eventID, "eventName": eventName},
	})
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("gateway order creation failed")
		msg := err.Error()
		if msg == "" {
			msg = "Failed to create payment order."
		}
		return nil, newError(CodeGateway, msg, err)
	}

	metrics.OrdersCreated.Inc()
	s.log.Info().
		Str("event_id", eventID).
		Str("order_id", order.ID).
		Int64("amount", order.Amount).
		Msg("payment order created")

	return &OrderResult{
		OrderID:   order.ID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		KeyID:     s.creds.KeyID,
		EventName: eventName,
	}, nil
}

// customAmount returns 0 when v is not a positive number, so the stored fee
// applies. A positive amount that is not a whole number of minor units is
// rejected.
func customAmount(v interface{}) (int64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, nil
		}
		f = parsed
	default:
		return 0, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, nil
	}
	if f != math.Trunc(f) || f > math.MaxInt64/2 {
		return 0, fmt.Errorf("amount %v is not a whole number of minor units", f)
	}
	return int64(f), nil
}

type VerifyInput struct {
	PaymentID string
	OrderID   string
	Signature string
	EventID   string
	FormData  map[string]interface{}
}

type VerifyResult struct {
	RegistrationID string `json:"registrationId"`
	PaymentID      string `json:"paymentId"`
	OrderID        string `json:"orderId"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

// VerifyPayment checks the callback signature and stores exactly one
// registration per payment id. Nothing is written unless the signature matches.
func (s *Service) VerifyPayment(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	if in.PaymentID == "" || in.OrderID == "" || in.Signature == "" || in.EventID == "" || in.FormData == nil {
		return nil, newError(CodeInvalidRequest, "Missing required fields.", nil)
	}
	if s.creds.Secret == "" {
		s.log.Error().Msg("payment gateway secret is not configured")
		return nil, newError(CodeConfig, "Payment service is not configured.", nil)
	}

	if !VerifySignature(s.creds.Secret, in.OrderID, in.PaymentID, in.Signature) {
		metrics.PaymentsVerified.WithLabelValues("mismatch").Inc()
		s.log.Warn().
			Str("order_id", in.OrderID).
			Str("payment_id", in.PaymentID).
			Msg("payment signature mismatch")
		return nil, newError(CodeSignatureMismatch, "Payment verification failed.", nil)
	}

	// The payment is already captured; a failed lookup only degrades the name.
	eventName := models.NotAvailable
	kind := models.KindFromForm(in.FormData)
	if ev, err := s.events.GetEvent(ctx, in.EventID); err == nil {
		eventName = orNA(ev.EventName)
		if ev.EventType.Valid() {
			kind = models.RegistrationKind(ev.EventType)
		}
	} else {
		s.log.Warn().Err(err).Str("event_id", in.EventID).Msg("event lookup failed during verification")
	}

	now := s.now()
	reg := &models.Registration{
		Kind:                  kind,
		EventID:               in.EventID,
		EventName:             eventName,
		PaymentStatus:         models.PaymentSuccessful,
		PaymentID:             in.PaymentID,
		OrderID:               in.OrderID,
		RegistrationTimestamp: &now,
		Form:                  models.SanitizeForm(in.FormData),
	}

	id, created, err := s.regs.InsertSuccessful(ctx, reg)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", in.PaymentID).Msg("failed to store registration")
		return nil, newError(CodeStore, "Internal server error.", err)
	}

	if !created {
		metrics.PaymentsVerified.WithLabelValues("duplicate").Inc()
		s.log.Warn().Str("payment_id", in.PaymentID).Msg("registration already stored for payment")
		return &VerifyResult{RegistrationID: id, PaymentID: in.PaymentID, OrderID: in.OrderID, Duplicate: true}, nil
	}

	metrics.PaymentsVerified.WithLabelValues("success").Inc()
	s.log.Info().
		Str("registration_id", id).
		Str("event_id", in.EventID).
		Str("order_id", in.OrderID).
		Msg("payment verified and registration saved")

	if s.notifier != nil {
		msg := notify.Confirmation{
			RegistrationID: id,
			EventID:        in.EventID,
			EventName:      eventName,
			Kind:           kind,
			Email:          reg.Email(),
			Name:           reg.DisplayName(),
			PaymentID:      in.PaymentID,
		}
		if err := s.notifier.RegistrationConfirmed(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("registration_id", id).Msg("failed to publish confirmation")
		}
	}

	return &VerifyResult{RegistrationID: id, PaymentID: in.PaymentID, OrderID: in.OrderID}, nil
}

// GatewayFailure is the error object the checkout widget reports.
type GatewayFailure struct {
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Reason      string           `json:"reason"`
	Source      string           `json:"source"`
	Step        string           `json:"step"`
	Metadata    *FailureMetadata `json:"metadata"`
}

type FailureMetadata struct {
	OrderID   string  `json:"order_id"`
	PaymentID *string `json:"payment_id"`
}

type FailureInput struct {
	EventID   string
	EventName string
	FormData  map[string]interface{}
	Error     *GatewayFailure
}

// LogFailure appends a FAILED registration. Missing details become "N/A".
func (s *Service) LogFailure(ctx context.Context, in FailureInput) (string, error) {
	if in.FormData == nil || in.Error == nil {
		return "", newError(CodeInvalidRequest, "formData and error are required.", nil)
	}

	eventID := orNA(strings.TrimSpace(in.EventID))
	eventName := orNA(in.EventName)
	kind := models.KindFromForm(in.FormData)
	var amount int64
	var currency string

	if eventID != models.NotAvailable {
		if ev, err := s.events.GetEvent(ctx, eventID); err == nil {
			if ev.EventName != "" {
				eventName = ev.EventName
			}
			amount = ev.RegistrationFee
			currency = ev.Currency
			if ev.EventType.Valid() {
				kind = models.RegistrationKind(ev.EventType)
			}
		} else {
			s.log.Warn().Err(err).Str("event_id", eventID).Msg("event lookup failed while logging payment failure")
		}
	}

	form := models.SanitizeForm(in.FormData)
	for _, key := range identityFields(kind) {
		if v, ok := form[key]; !ok || v == nil || v == "" {
			form[key] = models.NotAvailable
		}
	}

	orderID := models.NotAvailable
	var paymentID *string
	if md := in.Error.Metadata; md != nil {
		orderID = orNA(md.OrderID)
		if md.PaymentID != nil && *md.PaymentID != "" {
			paymentID = md.PaymentID
		}
	}

	now := s.now()
	reg := &models.Registration{
		Kind:              kind,
		EventID:           eventID,
		EventName:         eventName,
		PaymentStatus:     models.PaymentFailed,
		Amount:            amount,
		Currency:          currency,
		ErrorCode:         orNA(in.Error.Code),
		ErrorDescription:  orNA(in.Error.Description),
		ErrorReason:       orNA(in.Error.Reason),
		ErrorSource:       orNA(in.Error.Source),
		ErrorStep:         orNA(in.Error.Step),
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		FailureTimestamp:  &now,
		Form:              form,
	}

	id, err := s.regs.InsertFailed(ctx, reg)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to log payment failure")
		return "", newError(CodeStore, "Failed to log payment failure.", err)
	}

	metrics.FailedPaymentsLogged.Inc()
	s.log.Info().
		Str("log_id", id).
		Str("event_id", eventID).
		Str("error_code", reg.ErrorCode).
		Msg("failed payment logged")
	return id, nil
}

func identityFields(kind models.RegistrationKind) []string {
	if kind == models.KindHackathon {
		return []string{"teamName"}
	}
	return []string{"fullName", "email"}
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return models.NotAvailable
	}
	return v
}
