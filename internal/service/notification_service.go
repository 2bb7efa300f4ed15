package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/config"
	"github.com/spec-kit/registration-service/internal/events"
)

// NotificationService handles emitting notifications for lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRegistrationSubmitted, n.handleSubmitted)
	n.dispatcher.Subscribe(events.EventRegistrationApproved, n.handleApproved)
	n.dispatcher.Subscribe(events.EventRegistrationRejected, n.handleRejected)
}

func (n *NotificationService) handleSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("RegistrationSubmitted",
		zap.String("registration_id", event.RegistrationID),
		zap.String("email", event.Email),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleApproved(ctx context.Context, event events.Event) error {
	n.logger.Info("RegistrationApproved",
		zap.String("registration_id", event.RegistrationID),
		zap.String("email", event.Email),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRejected(ctx context.Context, event events.Event) error {
	n.logger.Info("RegistrationRejected",
		zap.String("registration_id", event.RegistrationID),
		zap.String("email", event.Email),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", event.Email),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("registration_id", event.RegistrationID),
		zap.String("event_type", string(event.Type)))
}
