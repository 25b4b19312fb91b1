package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/nae-imUam/coaching-app-api/core"
)

const (
	sgHost     = "https://api.sendgrid.com"
	sgEndpoint = "/v3/mail/send"
	sgAttempts = 3
)

// sgBackoff is the wait before the n-th retry (n starting at 1).
var sgBackoff = func(n int) time.Duration { return time.Duration(n) * time.Second }

type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	sandbox    bool
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService sends through the SendGrid v3 API.
// In test mode mails are accepted by SendGrid but never delivered.
func NewSendgridService(logger core.Logger) core.EmailService {
	return &sendgridService{
		key:        core.Conf.SendgridAPIKey,
		from:       sgmail.NewEmail(core.Conf.AppName, core.Conf.DefaultFromEmail),
		subjPrefix: "[" + core.Conf.AppName + "] ",
		sandbox:    core.Conf.TestMode,
		logger:     logger,
	}
}

func (svc sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				return
			}
			svc.deliver(svc.newMail(*msg))
		}()
	}
}

func (svc sendgridService) newMail(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(toSGEmail(to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	// categories make password resets searchable in the SendGrid activity feed
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}
	if svc.sandbox {
		enabled := true
		m.SetMailSettings(sgmail.NewMailSettings().SetSandboxMode(&sgmail.Setting{Enable: &enabled}))
	}
	return m
}

func toSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

// retryable reports whether SendGrid asked us to come back later.
func retryable(res *rest.Response) bool {
	return res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError
}

func (svc sendgridService) deliver(m *sgmail.SGMailV3) {
	body := sgmail.GetRequestBody(m)

	for attempt := 1; attempt <= sgAttempts; attempt++ {
		req := sendgrid.GetRequest(svc.key, sgEndpoint, sgHost)
		req.Method = http.MethodPost
		req.Body = body

		res, err := sendgrid.API(req)
		switch {
		case err != nil:
			svc.logger.Error(fmt.Sprintf("sending email (attempt %d): %v", attempt, err), err)
		case retryable(res):
			svc.logger.Warn(fmt.Sprintf("sending email (attempt %d) - status: %d", attempt, res.StatusCode))
		case res.StatusCode >= http.StatusBadRequest:
			svc.logger.Error(fmt.Sprintf("sending email - status: %d - body: %s", res.StatusCode, res.Body))
			return
		default:
			return
		}
		if attempt < sgAttempts {
			time.Sleep(sgBackoff(attempt))
		}
	}
	svc.logger.Error(fmt.Sprintf("sending email: giving up after %d attempts", sgAttempts))
}
