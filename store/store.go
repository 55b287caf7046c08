// Package store holds the MongoDB repositories behind the HTTP controllers.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EventsCollection        = "events"
	EventStateCollection    = "event_state"
	RegistrationsCollection = "registrations"
	ContactsCollection      = "contacts"
	JoinRequestsCollection  = "joining_requests"
	AdminsCollection        = "admins"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(RegistrationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}, {Key: "paymentStatus", Value: 1}},
			Options: options.Index().SetName("registrations_event_status"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("registrations_email"),
		},
	})
	if err != nil {
		return fmt.Errorf("registrations indexes: %w", err)
	}

	_, err = db.Collection(EventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "isActive", Value: 1}},
		Options: options.Index().SetName("events_is_active"),
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}

	_, err = db.Collection(AdminsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("admins_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("admins indexes: %w", err)
	}
	return nil
}

func regexQuote(q string) string {
	return regexp.QuoteMeta(q)
}
