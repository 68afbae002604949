package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendComplianceReport(ctx context.Context, report Report) error {
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	subject := fmt.Sprintf("Compliance report for tenant %s", report.OrgID)
	if report.HasIssues() {
		subject = "[action required] " + subject
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Tenant: %s\r\n", report.OrgID)
	fmt.Fprintf(&body, "Generated: %s\r\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&body, "Preservations expiring soon: %d\r\n", report.ExpiringCount)
	if len(report.IntegrityErrors) > 0 {
		fmt.Fprintf(&body, "Integrity failures:\r\n")
		for _, e := range report.IntegrityErrors {
			fmt.Fprintf(&body, "  - %s\r\n", e)
		}
	}

	msg := []byte(fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", n.cfg.To, subject, body.String()))
	return smtp.SendMail(addr, auth, n.cfg.From, []string{n.cfg.To}, msg)
}
