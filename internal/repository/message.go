// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/sorryboard/internal/model"
)

// MessageRepository provides role-aware access to stored apologies.
type MessageRepository interface {
	// GetByID returns a message or nil when the id is malformed, absent, or hidden from role.
	GetByID(ctx context.Context, id string, role model.Role) (*model.NormalizedMessage, error)
	// ListVisible returns non-hidden messages, newest first; limit <= 0 means no cap.
	ListVisible(ctx context.Context, limit int) ([]model.NormalizedMessage, error)
	// ListAll returns every message, newest first, hidden ones included (service role only).
	ListAll(ctx context.Context, role model.Role) ([]model.Message, error)
	// Insert stores a new message and returns the persisted row.
	Insert(ctx context.Context, m model.NewMessage, role model.Role) (*model.Message, error)
	// SetVisibility patches is_hidden (service role).
	SetVisibility(ctx context.Context, id string, hidden bool) (*model.Message, error)
	// Update patches name and/or message (service role).
	Update(ctx context.Context, id string, p model.MessagePatch) (*model.Message, error)
	// Delete removes a message (service role).
	Delete(ctx context.Context, id string) error
}
