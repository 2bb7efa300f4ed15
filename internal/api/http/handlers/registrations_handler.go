package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/dto"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util/errorutil"
)

// Decision actions accepted on the wire.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// RegistrationsHandler exposes the public registration endpoints.
type RegistrationsHandler struct {
	service    *service.ApprovalService
	adminEmail string
}

// NewRegistrationsHandler constructs handler. adminEmail attributes
// decisions made through the simulate endpoint, which carries no token.
func NewRegistrationsHandler(approvalService *service.ApprovalService, adminEmail string) *RegistrationsHandler {
	return &RegistrationsHandler{service: approvalService, adminEmail: adminEmail}
}

// CheckPending handles GET /api/check-pending-registration?email=.
func (h *RegistrationsHandler) CheckPending(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return apperrors.NewValidationError("email query parameter required", nil)
	}

	reg, err := h.service.LookupByEmail(c.Context(), email)
	if err != nil {
		return err
	}
	resp := dto.CheckPendingResponse{Success: true}
	if reg != nil {
		record := dto.FromRegistration(reg)
		resp.Data = &record
	}
	return c.JSON(resp)
}

// Register handles POST /api/auth/register.
func (h *RegistrationsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.UserType == "" {
		return apperrors.NewValidationError("email and user_type required", nil)
	}

	reg, err := h.service.Submit(c.Context(), service.SubmitInput{
		Email:        req.Email,
		UserType:     domain.UserType(req.UserType),
		Name:         req.Name,
		Department:   req.Department,
		Year:         req.Year,
		MobileNumber: req.Phone,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SubmitResponse{
		Success:               true,
		Message:               "Registration submitted for admin approval. You will receive an email once approved.",
		RequiresApproval:      true,
		PendingRegistrationID: reg.ID,
	})
}

// Simulate handles POST /api/simulate-admin-action. It resolves the email to
// a registration id and dispatches the same decision as the admin endpoint,
// surfacing a distinct 404 when the email has no record at all.
func (h *RegistrationsHandler) Simulate(c *fiber.Ctx) error {
	var req dto.SimulateAdminActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Action == "" {
		return apperrors.NewValidationError("email and action required", nil)
	}
	if err := validateAction(req.Action, req.RejectionReason); err != nil {
		return err
	}

	reg, err := h.service.LookupByEmail(c.Context(), req.Email)
	if err != nil {
		return err
	}
	if reg == nil {
		return apperrors.NewNotFound("registration", map[string]any{"email": req.Email})
	}

	resp, err := dispatchDecision(c, h.service, reg.ID, req.Action, req.RejectionReason, h.adminEmail)
	if err != nil {
		return err
	}
	// Credentials are not exposed through the simulation convenience.
	resp.Credentials = nil
	return c.JSON(resp)
}

func validateAction(action, rejectionReason string) error {
	switch action {
	case ActionApprove:
		return nil
	case ActionReject:
		if strings.TrimSpace(rejectionReason) == "" {
			return apperrors.NewValidationError("rejection reason required for reject action", nil)
		}
		return nil
	default:
		return apperrors.NewValidationError("action must be approve or reject", map[string]any{"action": action})
	}
}

func dispatchDecision(c *fiber.Ctx, approvalService *service.ApprovalService, registrationID, action, rejectionReason, reviewer string) (dto.ActionResponse, error) {
	switch action {
	case ActionApprove:
		reg, creds, err := approvalService.Approve(c.Context(), registrationID, reviewer)
		if err != nil {
			return dto.ActionResponse{}, err
		}
		return dto.ActionResponse{
			Success:     true,
			Message:     approvalMessage(reg.UserType),
			Credentials: dto.FromCredentials(creds),
		}, nil
	case ActionReject:
		if _, err := approvalService.Reject(c.Context(), registrationID, rejectionReason, reviewer); err != nil {
			return dto.ActionResponse{}, err
		}
		return dto.ActionResponse{
			Success: true,
			Message: "Registration rejected successfully",
		}, nil
	default:
		return dto.ActionResponse{}, apperrors.NewValidationError("action must be approve or reject", map[string]any{"action": action})
	}
}

func approvalMessage(userType domain.UserType) string {
	if userType == domain.UserTypeFaculty {
		return "Faculty registration approved successfully"
	}
	return "Student registration approved successfully"
}
