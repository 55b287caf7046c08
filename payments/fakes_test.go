package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/notify"
	"github.com/phillip/club-events-go/store"
)

type fakeEvents struct {
	events map[string]*models.Event
	err    error
}

func (f *fakeEvents) GetEvent(_ context.Context, id string) (*models.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

type fakeRegistrations struct {
	mu      sync.Mutex
	docs    map[string]*models.Registration
	order   []string
	seq     int
	failErr error
}

func newFakeRegistrations() *fakeRegistrations {
	return &fakeRegistrations{docs: map[string]*models.Registration{}}
}

func (f *fakeRegistrations) InsertSuccessful(_ context.Context, reg *models.Registration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", false, f.failErr
	}
	if _, ok := f.docs[reg.PaymentID]; ok {
		return reg.PaymentID, false, nil
	}
	reg.ID = reg.PaymentID
	f.docs[reg.ID] = reg
	f.order = append(f.order, reg.ID)
	return reg.ID, true, nil
}

func (f *fakeRegistrations) InsertFailed(_ context.Context, reg *models.Registration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return "", f.failErr
	}
	f.seq++
	reg.ID = fmt.Sprintf("log_%d", f.seq)
	f.docs[reg.ID] = reg
	f.order = append(f.order, reg.ID)
	return reg.ID, nil
}

func (f *fakeRegistrations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

func (f *fakeRegistrations) last() *models.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return nil
	}
	return f.docs[f.order[len(f.order)-1]]
}

type fakeGateway struct {
	calls []OrderRequest
	err   error
}

func (f *fakeGateway) CreateOrder(_ context.Context, req OrderRequest) (*GatewayOrder, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &GatewayOrder{ID: fmt.Sprintf("order_%d", len(f.calls)), Amount: req.Amount, Currency: req.Currency}, nil
}

type fakeNotifier struct {
	sent []notify.Confirmation
	err  error
}

func (f *fakeNotifier) RegistrationConfirmed(_ context.Context, msg notify.Confirmation) error {
	f.sent = append(f.sent, msg)
	return f.err
}

var errStoreDown = errors.New("store down")
