package in

import (
	"context"

	"itk_server/core/service/newsletter"
	"itk_server/core/service/reply"

	"github.com/google/uuid"
)

// SendUseCase delivers drafted newsletters that have not been sent yet.
type SendUseCase interface {
	SendUnsent(ctx context.Context, userID *uuid.UUID) (*newsletter.DispatchSummary, error)
}

// ReplyUseCase processes one inbound email reply payload end to end:
// resolve the sender, classify the reply, apply its effects.
type ReplyUseCase interface {
	ProcessPayload(ctx context.Context, payload map[string]any) (*reply.ProcessResult, error)
}
