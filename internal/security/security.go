// Package security holds the anti-abuse helpers: address hashing, client
// fingerprints and the security event log.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Security event names.
const (
	EventHoneypot        = "honeypot_triggered"
	EventValidation      = "validation_failed"
	EventRateLimit       = "rate_limit_violation"
	EventSubmissionError = "submission_error"
	EventRejected        = "submission_rejected"
)

// UnknownAddress is used when the request carries no forwarded address.
const UnknownAddress = "0.0.0.0"

// HashValue returns the hex SHA-256 of v. Empty input hashes as "unknown".
func HashValue(v string) string {
	if v == "" {
		v = "unknown"
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// ClientAddress picks the first entry of an X-Forwarded-For value.
func ClientAddress(forwarded string) string {
	first, _, _ := strings.Cut(forwarded, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return UnknownAddress
}

// ClientFingerprint derives an advisory telemetry id from client signals.
// It is not stable across calls (the timestamp is mixed in) and carries no
// security guarantee; it only correlates log lines from one client action.
func ClientFingerprint(userAgent, language string, now time.Time) string {
	return HashValue(userAgent + "-" + language + "-" + now.UTC().Format(time.RFC3339Nano))
}

// Logger writes security events as structured warnings. Callers pass only
// hashed client identifiers, never raw addresses.
type Logger struct {
	log *zap.Logger
	now func() time.Time
}

// NewLogger wraps l. A nil logger discards events.
func NewLogger(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{log: l.Named("security"), now: time.Now}
}

// Log records event with a UTC timestamp and the given fields.
func (s *Logger) Log(event string, fields ...zap.Field) {
	fs := make([]zap.Field, 0, len(fields)+2)
	fs = append(fs,
		zap.String("event", event),
		zap.String("timestamp", s.now().UTC().Format(time.RFC3339Nano)),
	)
	fs = append(fs, fields...)
	s.log.Warn("security_event", fs...)
}
