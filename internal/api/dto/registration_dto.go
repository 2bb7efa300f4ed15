package dto

import (
	"time"

	"github.com/spec-kit/registration-service/internal/domain"
)

// RegisterRequest is the registration intake payload.
type RegisterRequest struct {
	Email      string `json:"email"`
	UserType   string `json:"user_type"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Year       string `json:"year"`
	Phone      string `json:"phone"`
}

// RegistrationResponse is the wire form of a registration record.
type RegistrationResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	UserType        string    `json:"user_type"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Name            string    `json:"name,omitempty"`
	Department      string    `json:"department,omitempty"`
	Year            string    `json:"year,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// CheckPendingResponse wraps the lookup outcome; absence of Data is a
// normal, successful outcome, not an error.
type CheckPendingResponse struct {
	Success bool                  `json:"success"`
	Data    *RegistrationResponse `json:"data,omitempty"`
}

// PendingRegistrationsResponse lists registrations for the admin view.
type PendingRegistrationsResponse struct {
	Success       bool                   `json:"success"`
	Registrations []RegistrationResponse `json:"registrations"`
}

// ApproveRegistrationRequest dispatches an admin decision by record id.
// The legacy "id" key is accepted as an alias for registrationId.
type ApproveRegistrationRequest struct {
	RegistrationID  string `json:"registrationId"`
	LegacyID        string `json:"id"`
	Action          string `json:"action"`
	RejectionReason string `json:"rejectionReason"`
}

// ID returns the registration id, honoring the legacy alias.
func (r ApproveRegistrationRequest) ID() string {
	if r.RegistrationID != "" {
		return r.RegistrationID
	}
	return r.LegacyID
}

// SimulateAdminActionRequest dispatches an admin decision by email.
type SimulateAdminActionRequest struct {
	Email           string `json:"email"`
	Action          string `json:"action"`
	RejectionReason string `json:"rejection_reason"`
}

// CredentialsResponse carries issued login material; exactly one of PRN or
// EmployeeID is present.
type CredentialsResponse struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	PRN        string `json:"prn,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// ActionResponse is the decision result envelope.
type ActionResponse struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message,omitempty"`
	Credentials *CredentialsResponse `json:"credentials,omitempty"`
}

// SubmitResponse acknowledges an intake submission.
type SubmitResponse struct {
	Success               bool   `json:"success"`
	Message               string `json:"message"`
	RequiresApproval      bool   `json:"requiresApproval"`
	PendingRegistrationID string `json:"pending_registration_id"`
}

// FromRegistration maps the domain record to its wire form. Credential
// material never travels here; only the decision metadata does.
func FromRegistration(reg *domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:              reg.ID,
		Email:           reg.Email,
		UserType:        string(reg.UserType),
		Status:          string(reg.Status),
		RejectionReason: reg.RejectionReason,
		Name:            reg.Name,
		Department:      reg.Department,
		Year:            reg.Year,
		SubmittedAt:     reg.SubmittedAt,
	}
}

// FromCredentials maps issued credentials to their wire form.
func FromCredentials(creds *domain.IssuedCredentials) *CredentialsResponse {
	if creds == nil {
		return nil
	}
	return &CredentialsResponse{
		Email:      creds.Email,
		Password:   creds.Password,
		PRN:        creds.PRN,
		EmployeeID: creds.EmployeeID,
	}
}
