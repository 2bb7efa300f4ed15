package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/repository"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util/errorutil"
)

const reviewer = "admin@sanjivani.edu.in"

func newService(t *testing.T) (*service.ApprovalService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	svc := service.NewApprovalService(service.ApprovalDependencies{
		RegistrationRepo: repo,
		Dispatcher:       events.NewInMemoryDispatcher(),
		BcryptCost:       4,
	})
	return svc, repo
}

func submitStudent(t *testing.T, svc *service.ApprovalService, email string) *domain.Registration {
	t.Helper()
	reg, err := svc.Submit(context.Background(), service.SubmitInput{
		Email:      email,
		UserType:   domain.UserTypeStudent,
		Name:       "Test Student",
		Department: "cse",
		Year:       "3rd Year",
	})
	require.NoError(t, err)
	return reg
}

func TestApproveStudentIssuesCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "new@example.edu")
	require.Equal(t, domain.StatusPendingApproval, reg.Status)

	approved, creds, err := svc.Approve(ctx, reg.ID, reviewer)
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, approved.Status)
	require.Equal(t, "new@example.edu", creds.Email)
	require.Len(t, creds.Password, 8)
	require.True(t, strings.HasPrefix(creds.PRN, "PRN"))
	require.Empty(t, creds.EmployeeID)
	require.Equal(t, creds.PRN, approved.CredentialID)
	require.Equal(t, reviewer, approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
}

func TestApproveFacultyIssuesEmployeeID(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg, err := svc.Submit(ctx, service.SubmitInput{
		Email:    "prof@example.edu",
		UserType: domain.UserTypeFaculty,
		Name:     "Test Faculty",
	})
	require.NoError(t, err)

	_, creds, err := svc.Approve(ctx, reg.ID, reviewer)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(creds.EmployeeID, "EMP"))
	require.Empty(t, creds.PRN)
}

func TestApproveStoresHashNotPlaintext(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "hash@example.edu")
	approved, creds, err := svc.Approve(ctx, reg.ID, reviewer)
	require.NoError(t, err)

	require.NotEqual(t, creds.Password, approved.PasswordHash)
	require.NoError(t, auth.ComparePassword(approved.PasswordHash, creds.Password))

	// Re-fetching the record must not re-expose the plaintext.
	fetched, err := svc.LookupByEmail(ctx, "hash@example.edu")
	require.NoError(t, err)
	require.NotContains(t, fetched.PasswordHash, creds.Password)
}

func TestRejectRecordsReason(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "bad@example.edu")
	rejected, err := svc.Reject(ctx, reg.ID, "incomplete documents", reviewer)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, rejected.Status)
	require.Equal(t, "incomplete documents", rejected.RejectionReason)
}

func TestRejectEmptyReasonFails(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "noreason@example.edu")
	_, err := svc.Reject(ctx, reg.ID, "   ", reviewer)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	// No state change happened.
	fetched, err := svc.LookupByEmail(ctx, "noreason@example.edu")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingApproval, fetched.Status)
}

func TestApproveUnknownIDFails(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Approve(ctx, "missing-id", reviewer)
	require.True(t, apperrors.IsNotFound(err))

	_, err = svc.Reject(ctx, "missing-id", "reason", reviewer)
	require.True(t, apperrors.IsNotFound(err))
}

func TestApproveIsNotIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "twice@example.edu")
	approved, creds, err := svc.Approve(ctx, reg.ID, reviewer)
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, reg.ID, reviewer)
	require.True(t, apperrors.IsInvalidState(err))

	// The first approval's credentials remain the only ones issued.
	fetched, err := svc.LookupByEmail(ctx, "twice@example.edu")
	require.NoError(t, err)
	require.Equal(t, creds.PRN, fetched.CredentialID)
	require.Equal(t, approved.PasswordHash, fetched.PasswordHash)
}

func TestTerminalStatesRefuseTransitions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "terminal@example.edu")
	_, err := svc.Reject(ctx, reg.ID, "first reason", reviewer)
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, reg.ID, reviewer)
	require.True(t, apperrors.IsInvalidState(err))

	_, err = svc.Reject(ctx, reg.ID, "second reason", reviewer)
	require.True(t, apperrors.IsInvalidState(err))

	// The original audit reason was not overwritten.
	fetched, err := svc.LookupByEmail(ctx, "terminal@example.edu")
	require.NoError(t, err)
	require.Equal(t, "first reason", fetched.RejectionReason)
}

func TestLookupRoundTripAfterApprove(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "Round.Trip@Example.EDU")
	_, creds, err := svc.Approve(ctx, reg.ID, reviewer)
	require.NoError(t, err)

	fetched, err := svc.LookupByEmail(ctx, "round.trip@example.edu")
	require.NoError(t, err)
	require.Equal(t, reg.ID, fetched.ID)
	require.Equal(t, domain.StatusApproved, fetched.Status)
	require.Equal(t, creds.PRN, fetched.CredentialID)
}

func TestLookupUnknownEmailIsNotAnError(t *testing.T) {
	svc, _ := newService(t)

	fetched, err := svc.LookupByEmail(context.Background(), "nobody@example.edu")
	require.NoError(t, err)
	require.Nil(t, fetched)
}

func TestSubmitReusesPendingRecord(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first := submitStudent(t, svc, "dup@example.edu")
	second, err := svc.Submit(ctx, service.SubmitInput{
		Email:      "DUP@example.edu",
		UserType:   domain.UserTypeStudent,
		Name:       "Updated Name",
		Department: "aids",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Updated Name", second.Name)

	regs, err := svc.List(ctx, domain.StatusPendingApproval)
	require.NoError(t, err)
	require.Len(t, regs, 1)
}

func TestSubmitAfterTerminalCreatesNewRecord(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first := submitStudent(t, svc, "again@example.edu")
	_, err := svc.Reject(ctx, first.ID, "incomplete documents", reviewer)
	require.NoError(t, err)

	second := submitStudent(t, svc, "again@example.edu")
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, domain.StatusPendingApproval, second.Status)
}

func TestSubmitValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, service.SubmitInput{Email: "not-an-email", UserType: domain.UserTypeStudent})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))

	_, err = svc.Submit(ctx, service.SubmitInput{Email: "x@example.edu", UserType: "dean"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidArgument))
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	pending := submitStudent(t, svc, "pending@example.edu")
	approvedReg := submitStudent(t, svc, "done@example.edu")
	_, _, err := svc.Approve(ctx, approvedReg.ID, reviewer)
	require.NoError(t, err)

	regs, err := svc.List(ctx, domain.StatusPendingApproval)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, pending.ID, regs[0].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestConcurrentApprovalsExactlyOneWins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	reg := submitStudent(t, svc, "race@example.edu")

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Approve(ctx, reg.ID, reviewer)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.IsInvalidState(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, conflicts)
}
