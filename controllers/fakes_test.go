package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/phillip/club-events-go/models"
	"github.com/phillip/club-events-go/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errDown = errors.New("database down")

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeEventStore struct {
	mu     sync.Mutex
	events map[string]*models.Event
	err    error
}

func newFakeEventStore(events ...models.Event) *fakeEventStore {
	f := &fakeEventStore{events: map[string]*models.Event{}}
	for i := range events {
		ev := events[i]
		f.events[ev.ID] = &ev
	}
	return f
}

func (f *fakeEventStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func (f *fakeEventStore) Active(_ context.Context) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, ev := range f.events {
		if ev.IsActive {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeEventStore) List(_ context.Context, q string) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Event{}
	for _, ev := range f.events {
		if q == "" || strings.Contains(strings.ToLower(ev.EventName), strings.ToLower(q)) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (f *fakeEventStore) Create(_ context.Context, ev *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if ev.IsActive {
		for _, other := range f.events {
			other.IsActive = false
		}
	}
	cp := *ev
	f.events[ev.ID] = &cp
	return nil
}

func (f *fakeEventStore) Update(_ context.Context, id string, set bson.M) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "eventName":
			ev.EventName = v.(string)
		case "description":
			ev.Description = v.(string)
		case "registrationFee":
			ev.RegistrationFee = v.(int64)
		case "currency":
			ev.Currency = v.(string)
		case "eventType":
			ev.EventType = v.(models.EventType)
		case "posterUrl":
			ev.PosterURL = v.(string)
		default:
			return nil, fmt.Errorf("unexpected field %s", k)
		}
	}
	ev.UpdatedAt = time.Now().UTC()
	cp := *ev
	return &cp, nil
}

func (f *fakeEventStore) Delete(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.events, id)
	return ev, nil
}

func (f *fakeEventStore) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	ev, ok := f.events[id]
	if !ok {
		return store.ErrNotFound
	}
	if active {
		for _, other := range f.events {
			other.IsActive = false
		}
	}
	ev.IsActive = active
	ev.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeEventStore) activeIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, ev := range f.events {
		if ev.IsActive {
			ids = append(ids, id)
		}
	}
	return ids
}

type fakePosters struct {
	uploaded int
	deleted  []string
	err      error
}

func (f *fakePosters) UploadPoster(_ context.Context, file multipart.File) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded++
	return fmt.Sprintf("https://res.cloudinary.com/demo/image/upload/v1/event-posters/p%d.jpg", f.uploaded), nil
}

func (f *fakePosters) DeletePoster(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeRegistrationStore struct {
	mu   sync.Mutex
	docs []models.Registration
	last store.RegistrationFilter
	err  error
}

func (f *fakeRegistrationStore) InsertSuccessful(_ context.Context, reg *models.Registration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	for _, d := range f.docs {
		if d.ID == reg.PaymentID {
			return d.ID, false, nil
		}
	}
	reg.ID = reg.PaymentID
	f.docs = append(f.docs, *reg)
	return reg.ID, true, nil
}

func (f *fakeRegistrationStore) InsertFailed(_ context.Context, reg *models.Registration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	reg.ID = fmt.Sprintf("log_%d", len(f.docs)+1)
	f.docs = append(f.docs, *reg)
	return reg.ID, nil
}

func (f *fakeRegistrationStore) List(_ context.Context, filter store.RegistrationFilter) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = filter
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Registration{}
	for _, d := range f.docs {
		if filter.Status != "" && d.PaymentStatus != filter.Status {
			continue
		}
		if filter.EventID != "" && d.EventID != filter.EventID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeRegistrationStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

type fakeSubmissions struct {
	contacts []models.Contact
	joins    []models.JoinRequest
	err      error
}

func (f *fakeSubmissions) AddContact(_ context.Context, c *models.Contact) error {
	if f.err != nil {
		return f.err
	}
	c.ID = fmt.Sprintf("c%d", len(f.contacts)+1)
	f.contacts = append(f.contacts, *c)
	return nil
}

func (f *fakeSubmissions) AddJoinRequest(_ context.Context, j *models.JoinRequest) error {
	if f.err != nil {
		return f.err
	}
	j.ID = fmt.Sprintf("j%d", len(f.joins)+1)
	f.joins = append(f.joins, *j)
	return nil
}

func (f *fakeSubmissions) ListContacts(_ context.Context, _ string) ([]models.Contact, error) {
	return f.contacts, f.err
}

func (f *fakeSubmissions) ListJoinRequests(_ context.Context, _ string) ([]models.JoinRequest, error) {
	return f.joins, f.err
}

type fakeAdmins struct {
	admins map[string]*models.Admin
	err    error
}

func newFakeAdmins() *fakeAdmins {
	return &fakeAdmins{admins: map[string]*models.Admin{}}
}

func (f *fakeAdmins) Count(_ context.Context) (int64, error) {
	return int64(len(f.admins)), f.err
}

func (f *fakeAdmins) Create(_ context.Context, a *models.Admin) error {
	if f.err != nil {
		return f.err
	}
	a.Email = strings.ToLower(a.Email)
	if _, ok := f.admins[a.Email]; ok {
		return store.ErrAlreadyExists
	}
	a.ID = fmt.Sprintf("admin-%d", len(f.admins)+1)
	cp := *a
	f.admins[a.Email] = &cp
	return nil
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.admins[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}
