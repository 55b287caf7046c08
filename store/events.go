package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/club-events-go/models"
)

// activeEventKey is the singleton document every activation change writes,
// so concurrent activations conflict inside the transaction.
const activeEventKey = "active_event"

type Events struct {
	client *mongo.Client
	col    *mongo.Collection
	state  *mongo.Collection
}

func NewEvents(db *mongo.Database) *Events {
	return &Events{
		client: db.Client(),
		col:    db.Collection(EventsCollection),
		state:  db.Collection(EventStateCollection),
	}
}

func (s *Events) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

// Active returns the event currently open for registration.
func (s *Events) Active(ctx context.Context) (*models.Event, error) {
	var ev models.Event
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if err := s.col.FindOne(ctx, bson.M{"isActive": true}, opts).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active event: %w", err)
	}
	return &ev, nil
}

func (s *Events) List(ctx context.Context, q string) ([]models.Event, error) {
	filter := bson.M{}
	if q != "" {
		filter["eventName"] = bson.M{"$regex": regexQuote(q), "$options": "i"}
	}

	cur, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := []models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// Create inserts ev. An active event is inserted and activated in one
// transaction, so a failed activation leaves nothing behind.
func (s *Events) Create(ctx context.Context, ev *models.Event) error {
	active := ev.IsActive
	ev.IsActive = false
	if !active {
		if _, err := s.col.InsertOne(ctx, ev); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	}

	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.col.InsertOne(sc, ev); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return s.activate(sc, ev.ID, true)
	})
	if err != nil {
		return err
	}
	ev.IsActive = true
	return nil
}

// Update applies set and returns the stored event. isActive is not accepted
// here; activation goes through SetActive.
func (s *Events) Update(ctx context.Context, id string, set bson.M) (*models.Event, error) {
	delete(set, "isActive")
	set["updatedAt"] = time.Now().UTC()

	var ev models.Event
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return &ev, nil
}

// Delete removes an event. Deleting the active event also clears the
// active event pointer in the same transaction.
func (s *Events) Delete(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.col.FindOneAndDelete(sc, bson.M{"_id": id}).Decode(&ev); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return ErrNotFound
			}
			return fmt.Errorf("delete event: %w", err)
		}
		if !ev.IsActive {
			return nil
		}
		if _, err := s.state.UpdateOne(sc,
			bson.M{"_id": activeEventKey, "eventId": id},
			bson.M{"$set": bson.M{"eventId": nil, "updatedAt": time.Now().UTC()}}); err != nil {
			return fmt.Errorf("clear active event state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// SetActive activates or deactivates one event. Activation deactivates every
// other event in the same transaction.
func (s *Events) SetActive(ctx context.Context, id string, active bool) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		return s.activate(sc, id, active)
	})
}

func (s *Events) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Events) activate(sc mongo.SessionContext, id string, active bool) error {
	now := time.Now().UTC()

	res, err := s.col.UpdateOne(sc, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("set event active: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	if !active {
		var state struct {
			EventID *string `bson:"eventId"`
		}
		err := s.state.FindOne(sc, bson.M{"_id": activeEventKey}).Decode(&state)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("read active event state: %w", err)
		}
		pointer := state.EventID
		if pointer != nil && *pointer == id {
			pointer = nil
		}
		if _, err := s.state.UpdateOne(sc,
			bson.M{"_id": activeEventKey},
			bson.M{"$set": bson.M{"eventId": pointer, "updatedAt": now}},
			options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("write active event state: %w", err)
		}
		return nil
	}

	if _, err := s.col.UpdateMany(sc,
		bson.M{"_id": bson.M{"$ne": id}, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": now}}); err != nil {
		return fmt.Errorf("deactivate other events: %w", err)
	}

	if _, err := s.state.UpdateOne(sc,
		bson.M{"_id": activeEventKey},
		bson.M{"$set": bson.M{"eventId": id, "updatedAt": now}},
		options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("write active event state: %w", err)
	}
	return nil
}
