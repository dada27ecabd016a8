package smtp

import (
	"context"
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/infra/config"
	"github.com/AurelieVidal/TempoAPI/internal/infra/logger"
)

// Notifier delivers user-facing alerts over SMTP. Failures surface as errors
// but the state transitions that triggered them have already committed.
type Notifier struct {
	dialer *mail.Dialer
	from   string
	logger *zap.Logger
}

// NewNotifier builds an SMTP notifier from configuration.
func NewNotifier(cfg config.SMTPSettings, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		dialer: mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

func (n *Notifier) send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Error("smtp send failed",
			zap.String("to", logger.MaskEmail(to)),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	n.logger.Info("notification sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)
	return nil
}

// NotifySuspiciousConnection alerts the account owner about a flagged login.
func (n *Notifier) NotifySuspiciousConnection(_ context.Context, account domain.Account, event domain.ConnectionEvent) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nA connection to your account from device %q (IP %s) was flagged as suspicious on %s.\n"+
			"A security question must be answered before this connection is allowed.\n\n"+
			"If this was not you, please change your password immediately.\n",
		account.Username, event.Device, logger.MaskIP(event.IPAddress), event.Date.Format("2006-01-02 15:04:05 MST"),
	)
	return n.send(account.Email, "Suspicious connection detected", body)
}

// NotifyForgottenPassword tells the account owner a password reset was requested.
func (n *Notifier) NotifyForgottenPassword(_ context.Context, account domain.Account) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account. "+
			"Answer the security question to continue.\n\n"+
			"If this was not you, you can ignore this message.\n",
		account.Username,
	)
	return n.send(account.Email, "Password reset requested", body)
}

// NotifyPasswordChanged confirms a completed password change.
func (n *Notifier) NotifyPasswordChanged(_ context.Context, account domain.Account) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour password was changed. "+
			"If this was not you, contact support immediately.\n",
		account.Username,
	)
	return n.send(account.Email, "Your password was changed", body)
}

// NotifyVerificationEmail sends the address-confirmation token issued at registration.
func (n *Notifier) NotifyVerificationEmail(_ context.Context, account domain.Account, token string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nConfirm your email address with the following token. "+
			"It expires in 5 minutes.\n\n%s\n",
		account.Username, token,
	)
	return n.send(account.Email, "Confirm your email address", body)
}

var _ port.Notifier = (*Notifier)(nil)
