package domain

import (
	"context"
	"time"
)

type LeadRepository interface {
	// Write paths
	InsertLead(ctx context.Context, l Lead, remoteIP, userAgent string) (int64, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string, permanent bool) error

	// Read paths
	GetLead(ctx context.Context, id int64) (LeadRecord, error)
	ListPending(ctx context.Context, limit, maxAttempts int) ([]LeadRecord, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	// SetNX stores v only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, v any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// LeadNotifier hands a captured lead to the downstream CRM.
type LeadNotifier interface {
	Deliver(ctx context.Context, rec LeadRecord) error
}
