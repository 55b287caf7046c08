package models

import (
	"time"
)

type EventType string

const (
	EventTypeIndividual EventType = "INDIVIDUAL"
	EventTypeHackathon  EventType = "HACKATHON"
)

func (t EventType) Valid() bool {
	return t == EventTypeIndividual || t == EventTypeHackathon
}

// Event is a catalog entry. RegistrationFee is in minor currency units.
type Event struct {
	ID              string    `bson:"_id" json:"id"`
	EventName       string    `bson:"eventName" json:"eventName"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	RegistrationFee int64     `bson:"registrationFee" json:"registrationFee"`
	Currency        string    `bson:"currency" json:"currency"`
	IsActive        bool      `bson:"isActive" json:"isActive"`
	EventType       EventType `bson:"eventType" json:"eventType"`
	PosterURL       string    `bson:"posterUrl,omitempty" json:"posterUrl,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}
