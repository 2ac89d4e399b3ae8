// Package validation sanitizes and checks anonymous submissions.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/and161185/sorryboard/internal/model"
)

// Error messages reported by Validate.
const (
	MsgMessageRequired   = "Message is required"
	MsgRecipientMissing  = "Recipient is required"
	MsgInappropriate     = "Inappropriate language detected"
	MsgInvalidChars      = "Invalid characters detected"
	MsgRecipientReserved = "Recipient contains reserved sequence"
	MsgSenderReserved    = "Sender contains reserved sequence"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Input is a raw submission. Sender is optional.
type Input struct {
	Recipient string
	Sender    *string
	Message   string
}

// Sanitized holds the cleaned fields. Sender is "" when absent.
type Sanitized struct {
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
}

// Result is the outcome of Validate. Sanitized is always filled, but must be
// treated as untrusted unless Valid is true.
type Result struct {
	Valid     bool
	Errors    []string
	Sanitized Sanitized
}

// Validator applies a fixed Rules set.
type Validator struct {
	maxMessage int
	maxName    int
	blocked    []string // normalized, non-empty
	patterns   []*regexp.Regexp
}

// New builds a Validator. Rules are copied; non-positive limits fall back to defaults.
func New(r Rules) *Validator {
	v := &Validator{
		maxMessage: r.MaxMessageLength,
		maxName:    r.MaxNameLength,
		patterns:   append([]*regexp.Regexp(nil), r.InjectionPatterns...),
	}
	if v.maxMessage <= 0 {
		v.maxMessage = DefaultMaxMessageLength
	}
	if v.maxName <= 0 {
		v.maxName = DefaultMaxNameLength
	}
	for _, w := range r.Profanity {
		if n := NormalizeForMatching(w); n != "" {
			v.blocked = append(v.blocked, n)
		}
	}
	return v
}

// SanitizeField strips markup-like tags and surrounding whitespace.
func SanitizeField(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// NormalizeForMatching lower-cases s and drops whitespace, punctuation and underscores.
func NormalizeForMatching(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate sanitizes in and collects every rule violation.
func (v *Validator) Validate(in Input) Result {
	s := Sanitized{
		Recipient: SanitizeField(in.Recipient),
		Message:   SanitizeField(in.Message),
	}
	if in.Sender != nil {
		s.Sender = SanitizeField(*in.Sender)
	}

	var errs []string

	if s.Message == "" {
		errs = append(errs, MsgMessageRequired)
	}
	if utf8.RuneCountInString(s.Message) > v.maxMessage {
		errs = append(errs, fmt.Sprintf("Message exceeds %d characters", v.maxMessage))
	}

	if s.Recipient == "" {
		errs = append(errs, MsgRecipientMissing)
	}
	if utf8.RuneCountInString(s.Recipient) > v.maxName {
		errs = append(errs, fmt.Sprintf("Recipient exceeds %d characters", v.maxName))
	}
	if utf8.RuneCountInString(s.Sender) > v.maxName {
		errs = append(errs, fmt.Sprintf("Sender exceeds %d characters", v.maxName))
	}

	// the stored name joins both parts with the delimiter
	if strings.Contains(s.Recipient, model.NameDelimiter) {
		errs = append(errs, MsgRecipientReserved)
	}
	if strings.Contains(s.Sender, model.NameDelimiter) {
		errs = append(errs, MsgSenderReserved)
	}

	combined := s.Recipient + " " + s.Sender + " " + s.Message
	if v.containsProfanity(combined) {
		errs = append(errs, MsgInappropriate)
	}
	if v.detectInjection(combined) {
		errs = append(errs, MsgInvalidChars)
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Sanitized: s}
}

func (v *Validator) containsProfanity(text string) bool {
	n := NormalizeForMatching(text)
	for _, w := range v.blocked {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

func (v *Validator) detectInjection(text string) bool {
	for _, re := range v.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
