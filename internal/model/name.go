package model

import "strings"

// NameDelimiter separates recipient and sender inside Message.Name.
const NameDelimiter = "::"

// EncodeName builds the stored name value. Both parts empty yields nil,
// an empty sender yields just the recipient.
func EncodeName(recipient string, sender *string) *string {
	r := strings.TrimSpace(recipient)
	s := ""
	if sender != nil {
		s = strings.TrimSpace(*sender)
	}
	switch {
	case r == "" && s == "":
		return nil
	case s == "":
		return &r
	}
	v := r + NameDelimiter + s
	return &v
}

// DecodeName splits a stored name on the first delimiter. Empty parts become nil.
func DecodeName(raw *string) (recipient, sender *string) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	r, s, _ := strings.Cut(*raw, NameDelimiter)
	return nonEmpty(r), nonEmpty(s)
}

// Normalize derives recipient and sender from the stored name.
func Normalize(m Message) NormalizedMessage {
	r, s := DecodeName(m.Name)
	return NormalizedMessage{Message: m, RecipientName: r, SenderName: s}
}

func nonEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
