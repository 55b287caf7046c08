package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip/club-events-go/logger"
	"github.com/phillip/club-events-go/models"
)

var testCreds = Credentials{KeyID: "rzp_test_key", Secret: "s3cret"}

func newTestService(events map[string]*models.Event) (*Service, *fakeRegistrations, *fakeGateway) {
	regs := newFakeRegistrations()
	gw := &fakeGateway{}
	svc := NewService(testCreds, &fakeEvents{events: events}, regs, gw, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, regs, gw
}

func sampleEvent(active bool) map[string]*models.Event {
	return map[string]*models.Event{
		"evt1": {
			ID:              "evt1",
			EventName:       "Metaverse Meetup",
			RegistrationFee: 50000,
			Currency:        "INR",
			IsActive:        active,
			EventType:       models.EventTypeIndividual,
		},
	}
}

func TestCreateOrder_UsesStoredFee(t *testing.T) {
	svc, _, gw := newTestService(sampleEvent(true))

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt1"})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), res.Amount)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "rzp_test_key", res.KeyID)
	assert.Equal(t, "Metaverse Meetup", res.EventName)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "rcpt_evt1_1772359200000", gw.calls[0].Receipt)
	assert.Equal(t, map[string]string{"eventId": "evt1", "eventName": "Metaverse Meetup"}, gw.calls[0].Notes)
}

func TestCreateOrder_CustomAmount(t *testing.T) {
	svc, _, gw := newTestService(sampleEvent(true))

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt1", Amount: float64(120000)})
	require.NoError(t, err)
	assert.Equal(t, int64(120000), res.Amount)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, int64(120000), gw.calls[0].Amount)
}

func TestCreateOrder_NonNumericAmountFallsBackToFee(t *testing.T) {
	svc, _, _ := newTestService(sampleEvent(true))

	for _, amount := range []interface{}{"1000", float64(0), float64(-5), true} {
		res, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt1", Amount: amount})
		require.NoError(t, err)
		assert.Equal(t, int64(50000), res.Amount)
	}
}

func TestCreateOrder_DefaultsCurrencyAndName(t *testing.T) {
	svc, _, _ := newTestService(map[string]*models.Event{
		"evt2": {ID: "evt2", RegistrationFee: 100, IsActive: true},
	})

	res, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt2"})
	require.NoError(t, err)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, models.NotAvailable, res.EventName)
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		events map[string]*models.Event
		creds  Credentials
		in     CreateOrderInput
		want   Code
	}{
		{
			name:   "missing event id",
			events: sampleEvent(true),
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "  "},
			want:   CodeInvalidRequest,
		},
		{
			name:   "missing credentials",
			events: sampleEvent(true),
			creds:  Credentials{KeyID: "rzp_test_key"},
			in:     CreateOrderInput{EventID: "evt1"},
			want:   CodeConfig,
		},
		{
			name:   "unknown event",
			events: sampleEvent(true),
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "nope"},
			want:   CodeNotFound,
		},
		{
			name:   "zero fee",
			events: map[string]*models.Event{"evt1": {ID: "evt1", IsActive: true}},
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "evt1"},
			want:   CodeInvalidAmount,
		},
		{
			name:   "fractional custom amount",
			events: sampleEvent(true),
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "evt1", Amount: 10.5},
			want:   CodeInvalidAmount,
		},
		{
			name:   "inactive event",
			events: sampleEvent(false),
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "evt1"},
			want:   CodeEventClosed,
		},
		{
			name:   "inactive event with custom amount",
			events: sampleEvent(false),
			creds:  testCreds,
			in:     CreateOrderInput{EventID: "evt1", Amount: float64(999)},
			want:   CodeEventClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := NewService(tt.creds, &fakeEvents{events: tt.events}, newFakeRegistrations(), gw, logger.Nop())

			_, err := svc.CreateOrder(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.want, CodeOf(err))
			assert.Empty(t, gw.calls, "gateway must not be called")
		})
	}
}

func TestCreateOrder_GatewayError(t *testing.T) {
	svc, _, gw := newTestService(sampleEvent(true))
	gw.err = errors.New("Authentication failed")

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt1"})
	require.Error(t, err)
	assert.Equal(t, CodeGateway, CodeOf(err))

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Authentication failed", pe.Message)
}

func TestCreateOrder_StoreError(t *testing.T) {
	svc := NewService(testCreds, &fakeEvents{err: errStoreDown}, newFakeRegistrations(), &fakeGateway{}, logger.Nop())

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{EventID: "evt1"})
	assert.Equal(t, CodeStore, CodeOf(err))
	assert.ErrorIs(t, err, errStoreDown)
}

func validVerifyInput() VerifyInput {
	return VerifyInput{
		PaymentID: "pay_123",
		OrderID:   "order_abc",
		Signature: Sign("s3cret", "order_abc", "pay_123"),
		EventID:   "evt1",
		FormData: map[string]interface{}{
			"fullName":   "Asha",
			"email":      "asha@example.com",
			"department": "CSE",
		},
	}
}

func TestVerifyPayment_WritesOneRegistration(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	res, err := svc.VerifyPayment(context.Background(), validVerifyInput())
	require.NoError(t, err)

	assert.Equal(t, "pay_123", res.PaymentID)
	assert.Equal(t, "order_abc", res.OrderID)
	assert.False(t, res.Duplicate)
	require.Equal(t, 1, regs.count())

	doc := regs.last()
	assert.Equal(t, res.RegistrationID, doc.ID)
	assert.Equal(t, models.PaymentSuccessful, doc.PaymentStatus)
	assert.Equal(t, "pay_123", doc.PaymentID)
	assert.Equal(t, "order_abc", doc.OrderID)
	assert.Equal(t, "Metaverse Meetup", doc.EventName)
	assert.Equal(t, models.KindIndividual, doc.Kind)
	assert.Equal(t, "Asha", doc.Form["fullName"])
	require.NotNil(t, doc.RegistrationTimestamp)
}

func TestVerifyPayment_TamperedSignatureWritesNothing(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	in := validVerifyInput()
	in.Signature = strings.Repeat("0", 64)

	_, err := svc.VerifyPayment(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, CodeSignatureMismatch, CodeOf(err))
	assert.Equal(t, 0, regs.count())
}

func TestVerifyPayment_SwappedInputOrderRejected(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	in := validVerifyInput()
	in.Signature = Sign("s3cret", in.PaymentID, in.OrderID)

	_, err := svc.VerifyPayment(context.Background(), in)
	assert.Equal(t, CodeSignatureMismatch, CodeOf(err))
	assert.Equal(t, 0, regs.count())
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	mutations := map[string]func(*VerifyInput){
		"payment id": func(in *VerifyInput) { in.PaymentID = "" },
		"order id":   func(in *VerifyInput) { in.OrderID = "" },
		"signature":  func(in *VerifyInput) { in.Signature = "" },
		"event id":   func(in *VerifyInput) { in.EventID = "" },
		"form data":  func(in *VerifyInput) { in.FormData = nil },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			svc, regs, _ := newTestService(sampleEvent(true))
			in := validVerifyInput()
			mutate(&in)

			_, err := svc.VerifyPayment(context.Background(), in)
			assert.Equal(t, CodeInvalidRequest, CodeOf(err))
			assert.Equal(t, 0, regs.count())
		})
	}
}

func TestVerifyPayment_EventLookupFailureStillWrites(t *testing.T) {
	regs := newFakeRegistrations()
	svc := NewService(testCreds, &fakeEvents{err: errStoreDown}, regs, &fakeGateway{}, logger.Nop())

	in := validVerifyInput()
	in.FormData = map[string]interface{}{"teamName": "Null Pointers", "members": []interface{}{}}

	_, err := svc.VerifyPayment(context.Background(), in)
	require.NoError(t, err)

	doc := regs.last()
	require.NotNil(t, doc)
	assert.Equal(t, models.NotAvailable, doc.EventName)
	assert.Equal(t, models.KindHackathon, doc.Kind)
}

func TestVerifyPayment_FormCannotOverrideServerFields(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	in := validVerifyInput()
	in.FormData["paymentStatus"] = "FREE"
	in.FormData["eventName"] = "spoofed"

	_, err := svc.VerifyPayment(context.Background(), in)
	require.NoError(t, err)

	doc := regs.last()
	assert.Equal(t, models.PaymentSuccessful, doc.PaymentStatus)
	assert.Equal(t, "Metaverse Meetup", doc.EventName)
	assert.NotContains(t, doc.Form, "paymentStatus")
}

func TestVerifyPayment_DuplicateCallsWriteOnce(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))
	n := &fakeNotifier{}
	svc.WithNotifier(n)

	var wg sync.WaitGroup
	results := make([]*VerifyResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.VerifyPayment(context.Background(), validVerifyInput())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, regs.count())
	duplicates := 0
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "pay_123", r.RegistrationID)
		if r.Duplicate {
			duplicates++
		}
	}
	assert.Equal(t, len(results)-1, duplicates)
}

func TestVerifyPayment_PublishesConfirmation(t *testing.T) {
	svc, _, _ := newTestService(sampleEvent(true))
	n := &fakeNotifier{err: errors.New("broker down")}
	svc.WithNotifier(n)

	res, err := svc.VerifyPayment(context.Background(), validVerifyInput())
	require.NoError(t, err, "publish failures must not fail verification")

	require.Len(t, n.sent, 1)
	assert.Equal(t, res.RegistrationID, n.sent[0].RegistrationID)
	assert.Equal(t, "asha@example.com", n.sent[0].Email)
	assert.Equal(t, "Asha", n.sent[0].Name)
}

func TestVerifyPayment_StoreError(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))
	regs.failErr = errStoreDown

	_, err := svc.VerifyPayment(context.Background(), validVerifyInput())
	assert.Equal(t, CodeStore, CodeOf(err))
}

func TestLogFailure_WithoutEvent(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	id, err := svc.LogFailure(context.Background(), FailureInput{
		FormData: map[string]interface{}{"fullName": "A"},
		Error:    &GatewayFailure{Code: "E1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, regs.count())

	doc := regs.last()
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, models.PaymentFailed, doc.PaymentStatus)
	assert.Equal(t, models.NotAvailable, doc.EventID)
	assert.Equal(t, models.NotAvailable, doc.EventName)
	assert.Equal(t, "E1", doc.ErrorCode)
	assert.Equal(t, models.NotAvailable, doc.ErrorDescription)
	assert.Equal(t, models.NotAvailable, doc.RazorpayOrderID)
	assert.Nil(t, doc.RazorpayPaymentID)
	assert.Equal(t, "A", doc.Form["fullName"])
	assert.Equal(t, models.NotAvailable, doc.Form["email"])
	require.NotNil(t, doc.FailureTimestamp)
}

func TestLogFailure_EnrichesFromEvent(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))
	paymentID := "pay_failed_1"

	_, err := svc.LogFailure(context.Background(), FailureInput{
		EventID:   "evt1",
		EventName: "client name",
		FormData:  map[string]interface{}{"fullName": "A", "email": "a@example.com"},
		Error: &GatewayFailure{
			Code:        "BAD_REQUEST_ERROR",
			Description: "Payment failed",
			Reason:      "payment_failed",
			Source:      "bank",
			Step:        "payment_authorization",
			Metadata:    &FailureMetadata{OrderID: "order_abc", PaymentID: &paymentID},
		},
	})
	require.NoError(t, err)

	doc := regs.last()
	assert.Equal(t, "evt1", doc.EventID)
	assert.Equal(t, "Metaverse Meetup", doc.EventName)
	assert.Equal(t, int64(50000), doc.Amount)
	assert.Equal(t, "INR", doc.Currency)
	assert.Equal(t, "order_abc", doc.RazorpayOrderID)
	require.NotNil(t, doc.RazorpayPaymentID)
	assert.Equal(t, paymentID, *doc.RazorpayPaymentID)
	assert.Equal(t, "payment_authorization", doc.ErrorStep)
}

func TestLogFailure_UnresolvableEventKeepsCallerName(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	_, err := svc.LogFailure(context.Background(), FailureInput{
		EventID:   "gone",
		EventName: "Hack Night",
		FormData:  map[string]interface{}{"teamName": "Null Pointers"},
		Error:     &GatewayFailure{},
	})
	require.NoError(t, err)

	doc := regs.last()
	assert.Equal(t, "gone", doc.EventID)
	assert.Equal(t, "Hack Night", doc.EventName)
	assert.Equal(t, models.KindHackathon, doc.Kind)
	assert.Equal(t, models.NotAvailable, doc.ErrorCode)
}

func TestLogFailure_RequiresFormAndError(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))

	_, err := svc.LogFailure(context.Background(), FailureInput{Error: &GatewayFailure{}})
	assert.Equal(t, CodeInvalidRequest, CodeOf(err))

	_, err = svc.LogFailure(context.Background(), FailureInput{FormData: map[string]interface{}{}})
	assert.Equal(t, CodeInvalidRequest, CodeOf(err))

	assert.Equal(t, 0, regs.count())
}

func TestLogFailure_StoreError(t *testing.T) {
	svc, regs, _ := newTestService(sampleEvent(true))
	regs.failErr = errStoreDown

	_, err := svc.LogFailure(context.Background(), FailureInput{
		FormData: map[string]interface{}{},
		Error:    &GatewayFailure{Code: "E1"},
	})
	assert.Equal(t, CodeStore, CodeOf(err))
}
