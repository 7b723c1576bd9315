package services

import (
	"fmt"
	"strconv"

	"github.com/compasshq/compass-api/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Mailer sends invitation emails over SMTP. Delivery is best-effort; when no
// SMTP host is configured every send is a logged no-op.
type Mailer struct {
	cfg *config.Config
	log zerolog.Logger
}

func NewMailer(cfg *config.Config, log zerolog.Logger) *Mailer {
	if cfg.SMTPHost == "" {
		log.Info().Msg("mail: no SMTP host configured, invitation emails disabled")
	}
	return &Mailer{cfg: cfg, log: log}
}

// SendInvitation emails an invite link. Failures are logged, never returned:
// the invitation row is the source of truth and the link can be shared
// out-of-band.
func (m *Mailer) SendInvitation(email, orgName, token string) {
	if m.cfg.SMTPHost == "" {
		return
	}

	link := fmt.Sprintf("%s/invitations/%s", m.cfg.BaseURL, token)
	body := fmt.Sprintf(
		"<p>You have been invited to join <b>%s</b> on Compass.</p>"+
			`<p><a href="%s">Accept the invitation</a></p>`,
		orgName, link)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.MailFrom)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("Invitation to join %s", orgName))
	msg.SetBody("text/html", body)

	port, err := strconv.Atoi(m.cfg.SMTPPort)
	if err != nil {
		port = 587
	}

	dialer := gomail.NewDialer(m.cfg.SMTPHost, port, m.cfg.SMTPUser, m.cfg.SMTPPass)
	if err := dialer.DialAndSend(msg); err != nil {
		m.log.Error().Err(err).Str("email", email).Msg("invitation email failed")
	}
}
