// Package email sends transactional mail over plain SMTP.
package email

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/learnhubdev/learnhub/config"
)

type Mailer struct {
	cfg config.Email
}

func New(cfg config.Email) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendRecovery mails the one-time password recovery code to the user.
func (m *Mailer) SendRecovery(to string, otp string) error {
	subject := "Your password recovery code"
	body := fmt.Sprintf(
		"Use this code to reset your password: %s\n\n"+
			"The code expires shortly. If you did not request it, ignore this mail.\n",
		otp,
	)

	if err := m.send(to, subject, body); err != nil {
		return fmt.Errorf("sending recovery mail: %w", err)
	}
	return nil
}

func (m *Mailer) send(to string, subject string, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String()))
}
