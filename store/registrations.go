package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/club-events-go/models"
)

type Registrations struct {
	col *mongo.Collection
}

func NewRegistrations(db *mongo.Database) *Registrations {
	return &Registrations{col: db.Collection(RegistrationsCollection)}
}

// InsertSuccessful stores reg keyed by its payment id. A second insert for the
// same payment writes nothing and reports created=false.
func (s *Registrations) InsertSuccessful(ctx context.Context, reg *models.Registration) (string, bool, error) {
	if reg.PaymentID == "" {
		return "", false, fmt.Errorf("insert registration: payment id is required")
	}
	reg.ID = reg.PaymentID

	if _, err := s.col.InsertOne(ctx, reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reg.ID, false, nil
		}
		return "", false, fmt.Errorf("insert registration: %w", err)
	}
	return reg.ID, true, nil
}

// InsertFailed appends a failure log under a fresh id.
func (s *Registrations) InsertFailed(ctx context.Context, reg *models.Registration) (string, error) {
	reg.ID = uuid.NewString()
	if _, err := s.col.InsertOne(ctx, reg); err != nil {
		return "", fmt.Errorf("insert failed payment log: %w", err)
	}
	return reg.ID, nil
}

type RegistrationFilter struct {
	EventID string
	Status  models.PaymentStatus
	Query   string
}

// List returns registrations newest first.
func (s *Registrations) List(ctx context.Context, f RegistrationFilter) ([]models.Registration, error) {
	filter := registrationQuery(f)

	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	regs := []models.Registration{}
	if err := cur.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("decode registrations: %w", err)
	}

	sort.SliceStable(regs, func(i, j int) bool {
		return recordedAt(regs[i]).After(recordedAt(regs[j]))
	})
	return regs, nil
}

// registrationQuery matches q against names, emails, the team name and the
// registration number, whichever form shape stored them.
func registrationQuery(f RegistrationFilter) bson.M {
	filter := bson.M{}
	if f.EventID != "" {
		filter["eventId"] = f.EventID
	}
	if f.Status != "" {
		filter["paymentStatus"] = f.Status
	}
	if f.Query != "" {
		rx := bson.M{"$regex": regexQuote(f.Query), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"fullName": rx},
			bson.M{"name": rx},
			bson.M{"email": rx},
			bson.M{"teamName": rx},
			bson.M{"members.email": rx},
			bson.M{"registrationNumber": rx},
			bson.M{"reg_number": rx},
			bson.M{"members.registrationNumber": rx},
		}
	}
	return filter
}

func recordedAt(r models.Registration) time.Time {
	if r.RegistrationTimestamp != nil {
		return *r.RegistrationTimestamp
	}
	if r.FailureTimestamp != nil {
		return *r.FailureTimestamp
	}
	return time.Time{}
}
