package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/club-events-go/models"
)

// Submissions stores public contact messages and join requests.
type Submissions struct {
	contacts *mongo.Collection
	joins    *mongo.Collection
}

func NewSubmissions(db *mongo.Database) *Submissions {
	return &Submissions{
		contacts: db.Collection(ContactsCollection),
		joins:    db.Collection(JoinRequestsCollection),
	}
}

func (s *Submissions) AddContact(ctx context.Context, c *models.Contact) error {
	c.ID = uuid.NewString()
	if _, err := s.contacts.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (s *Submissions) AddJoinRequest(ctx context.Context, j *models.JoinRequest) error {
	j.ID = uuid.NewString()
	if _, err := s.joins.InsertOne(ctx, j); err != nil {
		return fmt.Errorf("insert join request: %w", err)
	}
	return nil
}

func (s *Submissions) ListContacts(ctx context.Context, q string) ([]models.Contact, error) {
	filter := bson.M{}
	if q != "" {
		rx := bson.M{"$regex": regexQuote(q), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"fname": rx}, bson.M{"lname": rx}, bson.M{"email": rx}}
	}
	cur, err := s.contacts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	out := []models.Contact{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return out, nil
}

func (s *Submissions) ListJoinRequests(ctx context.Context, q string) ([]models.JoinRequest, error) {
	filter := bson.M{}
	if q != "" {
		rx := bson.M{"$regex": regexQuote(q), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"fullname": rx}, bson.M{"email": rx}, bson.M{"reg_number": rx}}
	}
	cur, err := s.joins.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	out := []models.JoinRequest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode join requests: %w", err)
	}
	return out, nil
}
