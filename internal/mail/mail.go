// Package mail queues outgoing emails in the database and delivers them
// through SendGrid from a background worker. Queueing first means a send
// failure never loses the email, only delays it.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

type Config struct {
	APIKey         string        `mapstructure:"sendgrid_api_key"`
	FromEmail      string        `mapstructure:"from_email"`
	FromName       string        `mapstructure:"from_email_name"`
	WorkerInterval time.Duration `mapstructure:"worker_interval"`
}

// sender is the SendGrid client surface the worker needs.
type sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

type Mailer struct {
	cli            sender
	mailRepository dependency.Mail
	from           *sgmail.Email
	c              *Config
	ctx            context.Context
	cancel         context.CancelFunc
	templates      map[templateName]*template.Template
}

type templateName string

func New(c *Config, mailRepository dependency.Mail) (*Mailer, error) {
	if c.APIKey == "" || c.FromEmail == "" || c.FromName == "" {
		return nil, fmt.Errorf("incomplete config: %+v", c)
	}
	if c.WorkerInterval <= 0 {
		c.WorkerInterval = time.Minute
	}

	m := &Mailer{
		cli:            sendgrid.NewSendClient(c.APIKey),
		mailRepository: mailRepository,
		from:           sgmail.NewEmail(c.FromName, c.FromEmail),
		c:              c,
		templates:      make(map[templateName]*template.Template),
	}

	if err := m.parseTemplates(); err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return m, nil
}

func (m *Mailer) parseTemplates() error {
	dirEntries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("error reading template directory: %w", err)
	}

	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		tmpl, err := template.ParseFS(templatesFS, filepath.Join("templates", entry.Name()))
		if err != nil {
			return fmt.Errorf("error parsing template '%s': %w", entry.Name(), err)
		}
		m.templates[templateName(entry.Name())] = tmpl
	}
	return nil
}

// send renders the template and queues the email for the worker.
func (m *Mailer) send(ctx context.Context, to string, tn templateName, subject string, data any) error {
	tmpl, ok := m.templates[tn]
	if !ok {
		return fmt.Errorf("unknown template: %s", tn)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("can't execute template %s: %w", tn, err)
	}

	_, err := m.mailRepository.AddMail(ctx, &entity.SendEmailRequest{
		From:    m.c.FromEmail,
		To:      to,
		Html:    body.String(),
		Subject: subject,
	})
	if err != nil {
		return fmt.Errorf("can't queue email: %w", err)
	}
	return nil
}

func (m *Mailer) sendRaw(ctx context.Context, req *entity.SendEmailRequest) error {
	msg := sgmail.NewSingleEmail(
		m.from,
		req.Subject,
		sgmail.NewEmail("", req.To),
		"",
		req.Html,
	)

	resp, err := m.cli.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
