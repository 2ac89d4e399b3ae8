// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role selects which table store credential a request is made with.
type Role string

const (
	// RoleAnon is the public credential: read visible rows and insert.
	RoleAnon Role = "anon"
	// RoleService is the privileged server-only credential with full table access.
	RoleService Role = "service"
)

// Column sets requested from the table store.
const (
	BaseColumns  = "id,name,message,created_at,is_hidden"
	AdminColumns = BaseColumns + ",ip_hash"
)

// Display fallbacks used by presentation callers when a name part is absent.
const (
	FallbackRecipient = "someone"
	FallbackSender    = "anonymous"
)

// Message is a single stored apology row.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Name      *string   `json:"name"` // "recipient::sender", "recipient" or null
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	IsHidden  bool      `json:"is_hidden"`
	IPHash    *string   `json:"ip_hash,omitempty"` // only selected for the service role
}

// NormalizedMessage is a Message with the encoded name split into its parts.
type NormalizedMessage struct {
	Message
	RecipientName *string `json:"recipient_name"`
	SenderName    *string `json:"sender_name"`
}

// DisplayRecipient returns the recipient or the presentation fallback.
func (m NormalizedMessage) DisplayRecipient() string {
	if m.RecipientName == nil {
		return FallbackRecipient
	}
	return *m.RecipientName
}

// DisplaySender returns the sender or the presentation fallback.
func (m NormalizedMessage) DisplaySender() string {
	if m.SenderName == nil {
		return FallbackSender
	}
	return *m.SenderName
}

// NewMessage is the insert payload. IsHidden defaults to false when nil.
type NewMessage struct {
	Name     *string
	Message  string
	IPHash   *string
	IsHidden *bool
}

// MessagePatch carries the optional fields of an update; nil fields are left untouched.
type MessagePatch struct {
	Name    *string
	Message *string
}

// Empty reports whether the patch changes nothing.
func (p MessagePatch) Empty() bool { return p.Name == nil && p.Message == nil }
