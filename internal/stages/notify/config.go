// internal/stages/notify/config.go
package notify

import "ticket-router/internal/common/config"

type Config struct {
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	// OpsPhoneNumber receives an SMS alert when a ticket fails, in addition
	// to the failure email.
	OpsPhoneNumber string
	AWSRegion      string
}

func FromNotificationConfig(cfg config.NotificationConfig) *Config {
	return &Config{
		EmailEnabled:   cfg.Email.Enabled,
		FromEmail:      cfg.Email.FromEmail,
		SMSEnabled:     cfg.SMS.Enabled,
		OpsPhoneNumber: cfg.SMS.PhoneNumber,
		AWSRegion:      cfg.AWS.Region,
	}
}
