// internal/stages/notify/handler.go
package notify

import (
	"context"
	"fmt"

	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/common/metrics"
	"ticket-router/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	TaskType = "notify"

	KindAssigned = "assigned"
	KindRejected = "rejected"
	KindFailed   = "failed"
)

// SESService and SNSService mirror the AWS SDK surface the handler uses so
// tests can substitute fakes.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Handler is the terminal stage. Delivery problems are reported to the caller
// for logging and metrics only; nothing re-enters the pipeline because of a
// failed notification.
type Handler struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// NotifySuccess emails the submitter the assigned employee's details.
func (h *Handler) NotifySuccess(ctx context.Context, assignment models.Assignment, to string) error {
	subject := fmt.Sprintf("Ticket Assigned | ID: %s", assignment.TicketID)
	return h.deliver(ctx, KindAssigned, to, subject, assignedBody(assignment), false)
}

// NotifyRejected emails the submitter that no employee matched the query.
func (h *Handler) NotifyRejected(ctx context.Context, ticket models.Ticket, reason, to string) error {
	subject := fmt.Sprintf("Ticket Not Assigned | ID: %s", ticket.ID)
	return h.deliver(ctx, KindRejected, to, subject, rejectedBody(reason), false)
}

// NotifyFailure emails the submitter about a pipeline failure and, when SMS
// alerting is enabled, pages the ops number as well.
func (h *Handler) NotifyFailure(ctx context.Context, ticket models.Ticket, stage string, cause error, to string) error {
	subject := "Ticket Assignment - Error"
	return h.deliver(ctx, KindFailed, to, subject, failedBody(ticket, stage, cause), true)
}

func (h *Handler) deliver(ctx context.Context, kind, to, subject, body string, smsAlert bool) error {
	status := "sent"
	var deliveryErr error

	if h.config.EmailEnabled && to != "" {
		if err := h.sendEmail(ctx, to, subject, body); err != nil {
			status = "failed"
			deliveryErr = errors.NewNotificationSendFailedError(kind, err)
			h.logger.Error("email send failed", map[string]interface{}{
				"kind":  kind,
				"to":    to,
				"error": err.Error(),
			})
		}
	} else {
		status = "disabled"
	}

	if smsAlert && h.config.SMSEnabled && h.config.OpsPhoneNumber != "" {
		if err := h.sendSMS(ctx, h.config.OpsPhoneNumber, subject); err != nil {
			h.logger.Error("SMS alert failed", map[string]interface{}{
				"kind":  kind,
				"error": err.Error(),
			})
			if deliveryErr == nil {
				deliveryErr = errors.NewNotificationSendFailedError(kind, err)
			}
		}
	}

	metrics.NotificationsSent.WithLabelValues(kind, status).Inc()
	if deliveryErr == nil {
		h.logger.Info("notification dispatched", map[string]interface{}{
			"kind":   kind,
			"status": status,
		})
	}
	return deliveryErr
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}
