package email

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go-clm/internal/config"
)

type EmailService interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

type EmailServiceImpl struct {
	Config *config.Config
}

func NewEmailService(cfg *config.Config) EmailService {
	return &EmailServiceImpl{
		Config: cfg,
	}
}

func (s *EmailServiceImpl) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if s.Config.SMTPHost == "" || s.Config.SMTPPort == 0 {
		return errors.New("invalid email configuration: missing host or port")
	}

	auth := smtp.PlainAuth("", s.Config.SMTPUser, s.Config.SMTPPassword, s.Config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.Config.SMTPHost, s.Config.SMTPPort)

	from := s.Config.FromEmail
	if from == "" {
		from = s.Config.SMTPUser
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ",")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	return smtp.SendMail(addr, auth, from, to, []byte(msg.String()))
}
