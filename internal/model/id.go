package model

import (
	"strings"

	"github.com/gofrs/uuid/v5"
)

// ParseMessageID accepts only canonical hyphenated RFC 4122 UUIDs of versions 1-5.
func ParseMessageID(raw string) (uuid.UUID, bool) {
	s := strings.TrimSpace(raw)
	if len(s) != 36 {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, false
	}
	if v := id.Version(); v < 1 || v > 5 {
		return uuid.Nil, false
	}
	if id[8]&0xc0 != 0x80 {
		return uuid.Nil, false
	}
	return id, true
}
