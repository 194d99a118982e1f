package newsletter

import (
	"context"
	"strings"
	"time"

	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/google/uuid"
)

// smtpLocalPartMax is the RFC 5321 limit on the local part of an address.
const smtpLocalPartMax = 64

// BuildReplyTo derives the per-newsletter reply address by plus-tagging the
// configured base with the newsletter id. Returns false when the base is
// malformed or the tagged local part would exceed the SMTP limit; the send
// then simply carries no reply-to.
func BuildReplyTo(base string, newsletterID uuid.UUID) (string, bool) {
	base = strings.TrimSpace(base)
	at := strings.Index(base, "@")
	if at < 0 {
		return "", false
	}

	localPart := strings.Trim(strings.TrimSpace(base[:at]), `"`)
	domainPart := strings.TrimSpace(base[at+1:])
	if localPart == "" || domainPart == "" {
		return "", false
	}

	tagged := localPart + "+" + newsletterID.String()
	if len(tagged) > smtpLocalPartMax {
		return "", false
	}
	return tagged + "@" + domainPart, true
}

// DispatchSummary reports one send pass.
type DispatchSummary struct {
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
	Failures   int `json:"failures"`
}

// Dispatcher sends drafted newsletters and stamps sent_at.
type Dispatcher struct {
	newsletters out.NewsletterRepository
	users       out.UserRepository
	sender      out.EmailSender
	replyToBase string
	now         func() time.Time
}

func NewDispatcher(newsletters out.NewsletterRepository, users out.UserRepository, sender out.EmailSender, replyToBase string) *Dispatcher {
	return &Dispatcher{
		newsletters: newsletters,
		users:       users,
		sender:      sender,
		replyToBase: replyToBase,
		now:         time.Now,
	}
}

// SendUnsent delivers every unsent newsletter, optionally for one user.
// Unsubscribed or missing recipients are skipped without consuming the
// draft; a delivery failure is contained and leaves sent_at null so the
// next pass retries it.
func (d *Dispatcher) SendUnsent(ctx context.Context, userID *uuid.UUID) (*DispatchSummary, error) {
	unsent, err := d.newsletters.ListUnsent(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{}
	for _, newsletter := range unsent {
		summary.Considered++

		user, err := d.users.GetByID(ctx, newsletter.UserID)
		if err == out.ErrNotFound {
			summary.Skipped++
			continue
		}
		if err != nil {
			summary.Failures++
			logger.WithError(err).WithField("newsletter_id", newsletter.ID.String()).Error("Recipient lookup failed")
			continue
		}
		if !user.IsSubscribed {
			summary.Skipped++
			continue
		}

		replyTo, _ := BuildReplyTo(d.replyToBase, newsletter.ID)
		if err := d.sender.Send(ctx, user.Email, newsletter.Subject, newsletter.HTMLContent, replyTo); err != nil {
			summary.Failures++
			logger.WithError(err).WithFields(map[string]interface{}{
				"newsletter_id": newsletter.ID.String(),
				"user_id":       user.ID.String(),
			}).Error("Newsletter send failed, will retry next pass")
			continue
		}

		if err := d.newsletters.MarkSent(ctx, newsletter.ID, d.now()); err != nil {
			summary.Failures++
			logger.WithError(err).WithField("newsletter_id", newsletter.ID.String()).Error("Failed to stamp sent_at")
			continue
		}
		summary.Sent++
	}
	return summary, nil
}
