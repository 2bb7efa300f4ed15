package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/repository"
	apperrors "github.com/spec-kit/registration-service/pkg/util/errorutil"
)

// ApprovalService owns the registration lifecycle: submission into
// pending_approval and the one-way transitions to approved or rejected.
type ApprovalService struct {
	registrations repository.RegistrationRepository
	dispatcher    events.Dispatcher
	bcryptCost    int
	locks         keyedLocks
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	RegistrationRepo repository.RegistrationRepository
	Dispatcher       events.Dispatcher
	BcryptCost       int
}

// SubmitInput describes a registration submission.
type SubmitInput struct {
	Email        string
	UserType     domain.UserType
	Name         string
	Department   string
	Year         string
	MobileNumber string
}

// NewApprovalService constructs the service.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	cost := deps.BcryptCost
	if cost <= 0 {
		cost = 10
	}
	return &ApprovalService{
		registrations: deps.RegistrationRepo,
		dispatcher:    deps.Dispatcher,
		bcryptCost:    cost,
	}
}

// Submit records a registration for admin review. If the email already has a
// pending record, that record is refreshed and reused instead of creating a
// duplicate; a terminal record leads to a fresh submission.
func (s *ApprovalService) Submit(ctx context.Context, input SubmitInput) (*domain.Registration, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewInvalidArgument("a valid email is required", nil)
	}
	if !input.UserType.Valid() {
		return nil, apperrors.NewInvalidArgument("user_type must be student or faculty", map[string]any{
			"user_type": input.UserType,
		})
	}

	year := strings.TrimSpace(input.Year)
	if input.UserType != domain.UserTypeStudent {
		year = ""
	}

	existing, err := s.registrations.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	if existing != nil && existing.Status == domain.StatusPendingApproval {
		existing.UserType = input.UserType
		existing.Name = strings.TrimSpace(input.Name)
		existing.Department = strings.TrimSpace(input.Department)
		existing.Year = year
		existing.MobileNumber = strings.TrimSpace(input.MobileNumber)
		if err := s.registrations.Update(ctx, existing); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		s.publish(ctx, events.Event{
			Type:           events.EventRegistrationSubmitted,
			RegistrationID: existing.ID,
			Email:          existing.Email,
			Payload: events.RegistrationSubmittedPayload{
				UserType:   existing.UserType,
				Department: existing.Department,
				Resubmit:   true,
			},
		})
		return existing, nil
	}

	reg := &domain.Registration{
		Email:        email,
		UserType:     input.UserType,
		Name:         strings.TrimSpace(input.Name),
		Department:   strings.TrimSpace(input.Department),
		Year:         year,
		MobileNumber: strings.TrimSpace(input.MobileNumber),
		Status:       domain.StatusPendingApproval,
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.publish(ctx, events.Event{
		Type:           events.EventRegistrationSubmitted,
		RegistrationID: reg.ID,
		Email:          reg.Email,
		Payload: events.RegistrationSubmittedPayload{
			UserType:   reg.UserType,
			Department: reg.Department,
		},
	})
	return reg, nil
}

// Approve transitions a pending registration to approved and issues
// credentials for its user type. The plaintext password is returned exactly
// once, here; only its bcrypt hash is stored. Approving a record that is not
// pending fails with INVALID_STATE so credentials can never be issued twice.
func (s *ApprovalService) Approve(ctx context.Context, registrationID, reviewer string) (*domain.Registration, *domain.IssuedCredentials, error) {
	unlock := s.locks.lock(registrationID)
	defer unlock()

	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("registration", map[string]any{"registration_id": registrationID})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if reg.Status != domain.StatusPendingApproval {
		return nil, nil, invalidStateError(reg.Status)
	}

	password, err := generatePassword()
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	var creds domain.IssuedCredentials
	switch reg.UserType {
	case domain.UserTypeStudent:
		prn, err := generatePRN()
		if err != nil {
			return nil, nil, apperrors.NewInternalError(err)
		}
		creds = domain.StudentCredentials(reg.Email, password, prn)
	case domain.UserTypeFaculty:
		employeeID, err := generateEmployeeID()
		if err != nil {
			return nil, nil, apperrors.NewInternalError(err)
		}
		creds = domain.FacultyCredentials(reg.Email, password, employeeID)
	default:
		return nil, nil, apperrors.NewInvalidArgument("unknown user type", map[string]any{"user_type": reg.UserType})
	}

	now := time.Now()
	reg.Status = domain.StatusApproved
	reg.CredentialID = creds.Identifier()
	reg.PasswordHash = hash
	reg.ReviewedAt = &now
	reg.ReviewedBy = reviewer

	if err := s.registrations.UpdateStatusFrom(ctx, reg, domain.StatusPendingApproval); err != nil {
		return nil, nil, mapStatusUpdateError(err, registrationID)
	}

	s.publish(ctx, events.Event{
		Type:           events.EventRegistrationApproved,
		RegistrationID: reg.ID,
		Email:          reg.Email,
		Payload: events.RegistrationApprovedPayload{
			UserType:     reg.UserType,
			CredentialID: reg.CredentialID,
			ReviewedBy:   reviewer,
		},
	})
	return reg, &creds, nil
}

// Reject transitions a pending registration to rejected, recording the
// reason. Rejecting a non-pending record fails with INVALID_STATE so an
// audited reason is never silently overwritten.
func (s *ApprovalService) Reject(ctx context.Context, registrationID, reason, reviewer string) (*domain.Registration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewInvalidArgument("rejection reason is required", nil)
	}

	unlock := s.locks.lock(registrationID)
	defer unlock()

	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("registration", map[string]any{"registration_id": registrationID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if reg.Status != domain.StatusPendingApproval {
		return nil, invalidStateError(reg.Status)
	}

	now := time.Now()
	reg.Status = domain.StatusRejected
	reg.RejectionReason = reason
	reg.ReviewedAt = &now
	reg.ReviewedBy = reviewer

	if err := s.registrations.UpdateStatusFrom(ctx, reg, domain.StatusPendingApproval); err != nil {
		return nil, mapStatusUpdateError(err, registrationID)
	}

	s.publish(ctx, events.Event{
		Type:           events.EventRegistrationRejected,
		RegistrationID: reg.ID,
		Email:          reg.Email,
		Payload: events.RegistrationRejectedPayload{
			Reason:     reason,
			ReviewedBy: reviewer,
		},
	})
	return reg, nil
}

// LookupByEmail returns the most recent registration for the email, or
// (nil, nil) when none exists. Absence is a normal outcome, not an error.
func (s *ApprovalService) LookupByEmail(ctx context.Context, email string) (*domain.Registration, error) {
	reg, err := s.registrations.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	return reg, nil
}

// List returns registrations, optionally filtered by status, newest first.
func (s *ApprovalService) List(ctx context.Context, statuses ...domain.RegistrationStatus) ([]domain.Registration, error) {
	regs, err := s.registrations.List(ctx, repository.StatusFilter{Statuses: statuses})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return regs, nil
}

func invalidStateError(current domain.RegistrationStatus) error {
	return apperrors.NewInvalidState(
		fmt.Sprintf("registration is not pending approval. Current status: %s", current),
		map[string]any{"current_status": current},
	)
}

func mapStatusUpdateError(err error, registrationID string) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		return apperrors.NewInvalidState("registration was decided concurrently", map[string]any{
			"registration_id": registrationID,
		})
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("registration", map[string]any{"registration_id": registrationID})
	default:
		return apperrors.NewInternalError(err)
	}
}

func (s *ApprovalService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// keyedLocks serializes the check-then-write sequence per registration id.
// Operations on different records proceed in parallel.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) lock(id string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

const passwordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func generatePassword() (string, error) {
	chars := make([]byte, 8)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordCharset))))
		if err != nil {
			return "", err
		}
		chars[i] = passwordCharset[n.Int64()]
	}
	return string(chars), nil
}

// generatePRN builds a student identifier of the form PRN<yy><nnnn>.
func generatePRN() (string, error) {
	suffix, err := randomDigits(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PRN%02d%s", time.Now().Year()%100, suffix), nil
}

// generateEmployeeID builds a faculty identifier of the form EMP<yy><nnnn>.
func generateEmployeeID() (string, error) {
	suffix, err := randomDigits(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EMP%02d%s", time.Now().Year()%100, suffix), nil
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
