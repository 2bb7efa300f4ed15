package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/registration-service/internal/domain"
)

// MemoryRepository is an in-memory RegistrationRepository used by tests and
// DSN-less runs. It favors clarity over performance.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Registration
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]domain.Registration)}
}

func (r *MemoryRepository) Create(_ context.Context, reg *domain.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	reg.ID = uuid.NewString()
	reg.Email = domain.NormalizeEmail(reg.Email)
	reg.SubmittedAt = now
	reg.CreatedAt = now
	reg.UpdatedAt = now
	r.records[reg.ID] = *reg
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, reg *domain.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[reg.ID]
	if !ok {
		return ErrNotFound
	}
	stored.UserType = reg.UserType
	stored.Name = reg.Name
	stored.Department = reg.Department
	stored.Year = reg.Year
	stored.MobileNumber = reg.MobileNumber
	stored.UpdatedAt = time.Now()
	r.records[reg.ID] = stored
	*reg = stored
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if reg, ok := r.records[id]; ok {
		return &reg, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	var latest *domain.Registration
	for id := range r.records {
		reg := r.records[id]
		if reg.Email != email {
			continue
		}
		if latest == nil || reg.SubmittedAt.After(latest.SubmittedAt) {
			copied := reg
			latest = &copied
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (r *MemoryRepository) List(_ context.Context, filter StatusFilter) ([]domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[domain.RegistrationStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		wanted[status] = struct{}{}
	}

	result := make([]domain.Registration, 0, len(r.records))
	for id := range r.records {
		reg := r.records[id]
		if len(wanted) > 0 {
			if _, ok := wanted[reg.Status]; !ok {
				continue
			}
		}
		result = append(result, reg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

func (r *MemoryRepository) UpdateStatusFrom(_ context.Context, reg *domain.Registration, expected domain.RegistrationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[reg.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expected {
		return ErrStaleStatus
	}
	stored.Status = reg.Status
	stored.RejectionReason = reg.RejectionReason
	stored.CredentialID = reg.CredentialID
	stored.PasswordHash = reg.PasswordHash
	stored.ReviewedAt = reg.ReviewedAt
	stored.ReviewedBy = reg.ReviewedBy
	stored.UpdatedAt = time.Now()
	r.records[reg.ID] = stored
	*reg = stored
	return nil
}
