package handlers

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/registration-service/internal/api/dto"
	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/config"
	"github.com/spec-kit/registration-service/internal/observability"
	"github.com/spec-kit/registration-service/internal/service"
	apperrors "github.com/spec-kit/registration-service/pkg/util/errorutil"
)

// AdminHandler exposes the administrative review endpoints.
type AdminHandler struct {
	service *service.ApprovalService
	tokens  *auth.TokenManager
	metrics *observability.Metrics
	cfg     config.AuthConfig
}

// NewAdminHandler constructs handler.
func NewAdminHandler(approvalService *service.ApprovalService, tokens *auth.TokenManager, metrics *observability.Metrics, cfg config.AuthConfig) *AdminHandler {
	return &AdminHandler{service: approvalService, tokens: tokens, metrics: metrics, cfg: cfg}
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.cfg.AdminEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) == 1
	if !emailOK || !passwordOK {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := h.tokens.GenerateToken(h.cfg.AdminEmail)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// ListPending handles GET /api/admin/pending-registrations. All records are
// returned newest first so reviewers see terminal outcomes alongside the
// queue, matching the admin panel's expectations.
func (h *AdminHandler) ListPending(c *fiber.Ctx) error {
	regs, err := h.service.List(c.Context())
	if err != nil {
		return err
	}

	items := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		items = append(items, dto.FromRegistration(&regs[i]))
	}
	return c.JSON(dto.PendingRegistrationsResponse{
		Success:       true,
		Registrations: items,
	})
}

// Decide handles POST /api/admin/approve-registration.
func (h *AdminHandler) Decide(c *fiber.Ctx) error {
	admin, ok := auth.AdminFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("admin required")
	}

	var req dto.ApproveRegistrationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ID() == "" || req.Action == "" {
		return apperrors.NewValidationError("registrationId and action required", nil)
	}
	if err := validateAction(req.Action, req.RejectionReason); err != nil {
		return err
	}

	resp, err := dispatchDecision(c, h.service, req.ID(), req.Action, req.RejectionReason, admin.Email)
	h.metrics.RecordDecision(req.Action, err == nil)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
