package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentFailed     PaymentStatus = "FAILED"
)

// RegistrationKind discriminates individual and team registrations stored in
// the same collection.
type RegistrationKind string

const (
	KindIndividual RegistrationKind = "INDIVIDUAL"
	KindHackathon  RegistrationKind = "HACKATHON"
)

// NotAvailable fills fields a failure log could not resolve.
const NotAvailable = "N/A"

// Registration is one append-only document in the registrations collection.
// Form holds the submitted form fields, spread at the top level of the document.
type Registration struct {
	ID            string           `bson:"_id"`
	Kind          RegistrationKind `bson:"kind"`
	EventID       string           `bson:"eventId"`
	EventName     string           `bson:"eventName"`
	PaymentStatus PaymentStatus    `bson:"paymentStatus"`

	PaymentID             string     `bson:"paymentId,omitempty"`
	OrderID               string     `bson:"orderId,omitempty"`
	RegistrationTimestamp *time.Time `bson:"registrationTimestamp,omitempty"`

	Amount            int64      `bson:"amount,omitempty"`
	Currency          string     `bson:"currency,omitempty"`
	ErrorCode         string     `bson:"errorCode,omitempty"`
	ErrorDescription  string     `bson:"errorDescription,omitempty"`
	ErrorReason       string     `bson:"errorReason,omitempty"`
	ErrorSource       string     `bson:"errorSource,omitempty"`
	ErrorStep         string     `bson:"errorStep,omitempty"`
	RazorpayOrderID   string     `bson:"razorpayOrderId,omitempty"`
	RazorpayPaymentID *string    `bson:"razorpayPaymentId,omitempty"`
	FailureTimestamp  *time.Time `bson:"failureTimestamp,omitempty"`

	Form map[string]interface{} `bson:",inline"`
}

// reservedFields are written by the server and always override form input.
var reservedFields = map[string]struct{}{
	"_id": {}, "kind": {}, "eventId": {}, "eventName": {}, "paymentStatus": {},
	"paymentId": {}, "orderId": {}, "registrationTimestamp": {},
	"amount": {}, "currency": {}, "errorCode": {}, "errorDescription": {},
	"errorReason": {}, "errorSource": {}, "errorStep": {},
	"razorpayOrderId": {}, "razorpayPaymentId": {}, "failureTimestamp": {},
}

// SanitizeForm copies form without keys the server owns.
func SanitizeForm(form map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(form))
	for k, v := range form {
		if _, ok := reservedFields[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// KindFromForm is the fallback used when the event type is unknown.
func KindFromForm(form map[string]interface{}) RegistrationKind {
	if v, ok := form["teamName"]; ok && v != nil && v != "" {
		return KindHackathon
	}
	return KindIndividual
}

// Field returns a string form value, or "" when absent.
func (r *Registration) Field(key string) string {
	v, ok := r.Form[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Email is the contact address of the registrant, or of the team lead.
func (r *Registration) Email() string {
	if e := r.Field("email"); e != "" {
		return e
	}
	if r.Kind == KindHackathon {
		if lead := r.teamLead(); lead != nil {
			if s, ok := lead["email"].(string); ok {
				return s
			}
		}
	}
	return ""
}

// DisplayName is the registrant's name, or the team name for hackathons.
func (r *Registration) DisplayName() string {
	if r.Kind == KindHackathon {
		if t := r.Field("teamName"); t != "" {
			return t
		}
	}
	for _, k := range []string{"fullName", "name"} {
		if v := r.Field(k); v != "" {
			return v
		}
	}
	return ""
}

func (r *Registration) teamLead() map[string]interface{} {
	var members []interface{}
	switch v := r.Form["members"].(type) {
	case []interface{}:
		members = v
	case primitive.A:
		members = v
	}
	if len(members) == 0 {
		return nil
	}
	switch m := members[0].(type) {
	case map[string]interface{}:
		return m
	case primitive.M:
		return m
	case primitive.D:
		return m.Map()
	default:
		return nil
	}
}

// MarshalJSON flattens the document the way it is stored.
func (r Registration) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Form)+16)
	for k, v := range r.Form {
		out[k] = v
	}
	out["id"] = r.ID
	out["kind"] = r.Kind
	out["eventId"] = r.EventID
	out["eventName"] = r.EventName
	out["paymentStatus"] = r.PaymentStatus

	switch r.PaymentStatus {
	case PaymentSuccessful:
		out["paymentId"] = r.PaymentID
		out["orderId"] = r.OrderID
		out["registrationTimestamp"] = r.RegistrationTimestamp
	case PaymentFailed:
		out["errorCode"] = r.ErrorCode
		out["errorDescription"] = r.ErrorDescription
		out["errorReason"] = r.ErrorReason
		out["errorSource"] = r.ErrorSource
		out["errorStep"] = r.ErrorStep
		out["razorpayOrderId"] = r.RazorpayOrderID
		out["razorpayPaymentId"] = r.RazorpayPaymentID
		out["failureTimestamp"] = r.FailureTimestamp
		if r.Amount > 0 {
			out["amount"] = r.Amount
		}
		if r.Currency != "" {
			out["currency"] = r.Currency
		}
	}
	return json.Marshal(out)
}
