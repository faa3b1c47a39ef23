package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"

	"video-analytics/internal/models"
	"video-analytics/shared/config"
)

//go:embed digest.html
var digestTemplate string

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"dislikes": func(v models.Video) string {
		if v.Stats.Dislikes == nil {
			return "n/a"
		}
		return fmt.Sprintf("%d", *v.Stats.Dislikes)
	},
}).Parse(digestTemplate))

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	config *config.EmailConfig
	send   sendFunc
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// SendReport mails the watchlist digest. Reports without any ranked video
// are not sent.
func (s *Sender) SendReport(report *models.WatchlistReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	videos := 0
	for _, entry := range report.Entries {
		videos += len(entry.Items)
	}
	if videos == 0 {
		return nil
	}

	subject := fmt.Sprintf("Video Analytics Digest - %d entries, %d videos (%s)",
		len(report.Entries), videos, report.Date.Format("Jan 2, 2006"))

	body, err := generateEmailBody(report)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	}

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	if err := s.send(addr, auth, s.config.FromEmail, to, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

func generateEmailBody(report *models.WatchlistReport) (string, error) {
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}
