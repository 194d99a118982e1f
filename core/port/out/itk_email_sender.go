package out

import "context"

// EmailSender is the transactional email collaborator. Implementations must
// be a no-op when unconfigured.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html, replyTo string) error
}
