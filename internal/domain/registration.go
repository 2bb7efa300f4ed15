package domain

import (
	"strings"
	"time"
)

// RegistrationStatus enumerates lifecycle states for a registration record.
type RegistrationStatus string

const (
	StatusPendingApproval RegistrationStatus = "pending_approval"
	StatusApproved        RegistrationStatus = "approved"
	StatusRejected        RegistrationStatus = "rejected"
)

// Terminal reports whether no further transition is defined for the status.
func (s RegistrationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether the status is one of the known lifecycle states.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// UserType enumerates the kinds of applicants that can register.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeFaculty UserType = "faculty"
)

// Valid reports whether the user type is a known applicant kind.
func (t UserType) Valid() bool {
	return t == UserTypeStudent || t == UserTypeFaculty
}

// Registration is the aggregate for a submitted registration awaiting review.
type Registration struct {
	ID           string
	Email        string
	UserType     UserType
	Name         string
	Department   string
	Year         string
	MobileNumber string
	Status       RegistrationStatus

	// RejectionReason is set if and only if Status is rejected.
	RejectionReason string

	// CredentialID holds the issued PRN or employee id once approved.
	// PasswordHash is the bcrypt hash of the issued password; the plaintext
	// is returned exactly once, at approval time.
	CredentialID string
	PasswordHash string

	SubmittedAt time.Time
	ReviewedAt  *time.Time
	ReviewedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeEmail lowercases and trims an email for case-insensitive comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
