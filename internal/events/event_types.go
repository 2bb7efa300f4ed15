package events

import (
	"time"

	"github.com/spec-kit/registration-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationSubmitted EventType = "registration_submitted"
	EventRegistrationApproved  EventType = "registration_approved"
	EventRegistrationRejected  EventType = "registration_rejected"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	RegistrationID string      `json:"registration_id"`
	Email          string      `json:"email"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// RegistrationSubmittedPayload payload.
type RegistrationSubmittedPayload struct {
	UserType   domain.UserType `json:"user_type"`
	Department string          `json:"department,omitempty"`
	Resubmit   bool            `json:"resubmit"`
}

// RegistrationApprovedPayload payload. The issued password is deliberately
// not part of the event; only the non-secret identifier travels here.
type RegistrationApprovedPayload struct {
	UserType     domain.UserType `json:"user_type"`
	CredentialID string          `json:"credential_id"`
	ReviewedBy   string          `json:"reviewed_by"`
}

// RegistrationRejectedPayload payload.
type RegistrationRejectedPayload struct {
	Reason     string `json:"reason"`
	ReviewedBy string `json:"reviewed_by"`
}
