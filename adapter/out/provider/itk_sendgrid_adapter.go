package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"itk_server/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var displayNameAddrRe = regexp.MustCompile(`^\s*(.*?)\s*<([^>]+)>\s*$`)

// splitFromAddress splits "ITK <hello@itk.so>" into display name and address.
// A bare address yields an empty display name.
func splitFromAddress(from string) (name, addr string) {
	if m := displayNameAddrRe.FindStringSubmatch(from); m != nil {
		return strings.Trim(m[1], `"`), strings.TrimSpace(m[2])
	}
	return "", strings.TrimSpace(from)
}

// SendGridSender implements out.EmailSender on the SendGrid v3 mail API.
// Without an API key it silently drops messages so local pipelines can run
// end to end with no credentials.
type SendGridSender struct {
	apiKey   string
	fromName string
	fromAddr string
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	name, addr := splitFromAddress(from)
	return &SendGridSender{
		apiKey:   apiKey,
		fromName: name,
		fromAddr: addr,
	}
}

func (s *SendGridSender) Send(ctx context.Context, to, subject, html, replyTo string) error {
	if s.apiKey == "" {
		logger.WithFields(map[string]any{
			"to":      to,
			"subject": subject,
		}).Warn("SendGrid API key not set, dropping email")
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromAddr)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, plainTextFallback, html)
	if replyTo != "" {
		message.SetReplyTo(mail.NewEmail("", replyTo))
	}

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// plainTextFallback is the text/plain part for clients that refuse HTML.
const plainTextFallback = "Your weekly ITK picks are ready. Open this email in an HTML-capable client to see them."
