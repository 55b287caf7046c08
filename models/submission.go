package models

import (
	"time"
)

// Contact is a message left through the public contact form.
type Contact struct {
	ID            string    `bson:"_id" json:"id"`
	FirstName     string    `bson:"fname" json:"fname"`
	LastName      string    `bson:"lname" json:"lname"`
	Email         string    `bson:"email" json:"email"`
	PhoneNumber   string    `bson:"phone_number" json:"phone_number"`
	Message       string    `bson:"message" json:"message"`
	ServiceChoice string    `bson:"servicechoice" json:"servicechoice"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// JoinRequest is an application to become a club member.
type JoinRequest struct {
	ID          string    `bson:"_id" json:"id"`
	FullName    string    `bson:"fullname" json:"fullname"`
	Email       string    `bson:"email" json:"email"`
	RegNumber   string    `bson:"reg_number" json:"reg_number"`
	PhoneNumber string    `bson:"phone_number" json:"phone_number"`
	Department  string    `bson:"department" json:"department"`
	Reason      string    `bson:"reason" json:"reason"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}
