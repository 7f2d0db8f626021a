package mail

import (
	"fmt"
	"net/smtp"
)

// Sender delivers plain-text email. Delivery is best-effort everywhere
// in the marketplace: failures are logged by callers, never fatal.
type Sender interface {
	Send(recipient, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth
}

// NewSMTPSender builds a sender for the given relay. Username may be
// empty for an unauthenticated relay.
func NewSMTPSender(addr, from, username, password, host string) *SMTPSender {
	s := &SMTPSender{Addr: addr, From: from}
	if username != "" {
		s.Auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, recipient, subject, body)
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", recipient, err)
	}
	return nil
}
