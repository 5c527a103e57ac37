package notification

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// SMTPConfig holds the outbound mail settings loaded from the environment
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type smtpGateway struct {
	cfg SMTPConfig
}

// NewSMTPGateway returns a Gateway delivering over plain SMTP
func NewSMTPGateway(cfg SMTPConfig) Gateway {
	return &smtpGateway{cfg: cfg}
}

func (g *smtpGateway) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	body, err := renderRequest(req)
	if err != nil {
		return fmt.Errorf("failed to render approval request email: %w", err)
	}
	subject := fmt.Sprintf("Work log approval requested by %s", req.StudentName)
	return g.send(req.ApproverEmail, subject, body)
}

func (g *smtpGateway) SendDecisionResult(ctx context.Context, res DecisionResult) error {
	body, err := renderResult(res)
	if err != nil {
		return fmt.Errorf("failed to render decision result email: %w", err)
	}
	subject := "Your work log was approved"
	if res.Outcome != "APPROVE" {
		subject = "Your work log needs revision"
	}
	return g.send(res.StudentEmail, subject, body)
}

func (g *smtpGateway) send(to, subject, htmlBody string) error {
	msg := []byte("From: " + g.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" + htmlBody)

	addr := g.cfg.Host + ":" + g.cfg.Port
	var auth smtp.Auth
	if g.cfg.Username != "" {
		auth = smtp.PlainAuth("", g.cfg.Username, g.cfg.Password, g.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, g.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to, err)
	}
	return nil
}

// logGateway is the development fallback when no SMTP host is configured.
// It logs that a mail would have been sent without ever printing token URLs.
type logGateway struct{}

// NewLogGateway returns a Gateway that only logs deliveries
func NewLogGateway() Gateway {
	return &logGateway{}
}

func (g *logGateway) SendApprovalRequest(ctx context.Context, req ApprovalRequest) error {
	log.Printf("mail (dev): approval request for %d entries to %s", len(req.Records), req.ApproverEmail)
	return nil
}

func (g *logGateway) SendDecisionResult(ctx context.Context, res DecisionResult) error {
	log.Printf("mail (dev): %s result to %s", res.Outcome, res.StudentEmail)
	return nil
}
