package services

import (
	"fmt"
	"log"
	"net/smtp"
	"time"
)

// CodeSender delivers verification codes out of band.
type CodeSender interface {
	SendVerificationCode(to, code string) error
}

// EmailService sends verification codes over SMTP. When no credentials are
// configured the code is logged to the console instead, so local setups
// keep working without a mail account.
type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	codeTTL  time.Duration
}

// NewEmailService creates an EmailService.
func NewEmailService(host, port, user, password, from string, codeTTL time.Duration) *EmailService {
	if from == "" {
		from = user
	}
	return &EmailService{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		codeTTL:  codeTTL,
	}
}

func (s *EmailService) configured() bool {
	return s.user != "" && s.password != ""
}

// SendVerificationCode emails the code to the recipient. Delivery failures
// are logged and swallowed; the code stays valid and resendable either way.
func (s *EmailService) SendVerificationCode(to, code string) error {
	if !s.configured() {
		log.Println("[Email] SMTP not configured -- printing code to console")
		log.Printf("[Email] >>> Verification code for %s: %s <<<", to, code)
		return nil
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: FinTrack - Your verification code\r\n\r\n"+
			"Your verification code is: %s\r\n\r\n"+
			"This code expires in %d minutes.\r\n\r\n"+
			"If you did not request this code, please ignore this email.\r\n",
		s.from, to, code, int(s.codeTTL.Minutes()),
	)

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := s.host + ":" + s.port

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(body)); err != nil {
		log.Printf("[Email] Failed to send via SMTP, falling back to console: %v", err)
		log.Printf("[Email] >>> Verification code for %s: %s <<<", to, code)
	}

	return nil
}
