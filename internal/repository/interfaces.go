package repository

import (
	"context"
	"errors"

	"github.com/cardrelay/cardrelay/internal/models"
)

// ErrNotFound is returned when no redemption exists for a request_id.
var ErrNotFound = errors.New("redemption not found")

type Redemptions interface {
	// Create persists a new redemption. The request_id uniqueness
	// constraint makes concurrent creates collision-free.
	Create(ctx context.Context, r models.Redemption) (models.Redemption, error)
	GetByRequestID(ctx context.Context, requestID string) (models.Redemption, error)
	// SetResult applies a terminal callback verdict as an absolute
	// write, so re-delivery of the same callback is a no-op.
	SetResult(ctx context.Context, requestID string, status models.RedemptionStatus, confirmedAmount int64) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
