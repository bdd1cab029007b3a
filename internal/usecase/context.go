package usecase

import (
	"context"

	"mentor-payments-core/internal/infra/logging"
)

// actorFrom resolves the audit actor for the current call; empty string means
// a system action (worker, webhook).
func actorFrom(ctx context.Context) string {
	return logging.ActorID(ctx)
}
