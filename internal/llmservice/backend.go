package llmservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-chat/internal/models"
)

// Backend is one chat provider.
type Backend interface {
	// Complete answers the last turn of history.
	Complete(ctx context.Context, model string, history []models.ChatTurn) (string, error)
	// CompleteWithImage answers an instruction about a single image.
	CompleteWithImage(ctx context.Context, model, instruction string, image []byte) (string, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// classify wraps err as a timeout or a plain call failure.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrBackendTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrBackendCall, err)
}
