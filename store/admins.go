package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/club-events-go/models"
)

type Admins struct {
	col *mongo.Collection
}

func NewAdmins(db *mongo.Database) *Admins {
	return &Admins{col: db.Collection(AdminsCollection)}
}

func (s *Admins) Count(ctx context.Context) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *Admins) Create(ctx context.Context, a *models.Admin) error {
	a.ID = uuid.NewString()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if _, err := s.col.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *Admins) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := s.col.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &a, nil
}
