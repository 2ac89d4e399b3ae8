package validation

import (
	"fmt"
	"regexp"
)

// Defaults applied when no configuration overrides them.
const (
	DefaultMaxMessageLength = 500
	DefaultMaxNameLength    = 50
)

// DefaultProfanity is the built-in block-list.
var DefaultProfanity = []string{
	"fuck", "shit", "bitch", "asshole", "bastard",
	"bangsat", "kontol", "memek", "ngentot", "jancok",
}

// DefaultInjectionPatterns are matched against the combined submission text.
var DefaultInjectionPatterns = []string{
	`(?i)\bunion\b[\s\S]*\bselect\b`,
	`(?i)\b(drop|alter|truncate)\s+table\b`,
	`(?i)\binsert\s+into\b`,
	`(?i)\bdelete\s+from\b`,
	`(?i)'\s*or\s+'?\w+'?\s*=\s*'?\w+`,
	`;\s*--`,
	`/\*|\*/`,
	`(?i)\bxp_cmdshell\b`,
	`(?i)\bsleep\s*\(\s*\d+\s*\)`,
}

// Rules is the immutable configuration of a Validator.
type Rules struct {
	MaxMessageLength  int
	MaxNameLength     int
	Profanity         []string
	InjectionPatterns []*regexp.Regexp
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		MaxMessageLength:  DefaultMaxMessageLength,
		MaxNameLength:     DefaultMaxNameLength,
		Profanity:         append([]string(nil), DefaultProfanity...),
		InjectionPatterns: MustCompile(DefaultInjectionPatterns),
	}
}

// Compile compiles injection patterns, reporting the first invalid one.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("injection pattern[%d]: %w", i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// MustCompile is Compile that panics on error. Intended for built-in patterns.
func MustCompile(patterns []string) []*regexp.Regexp {
	out, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return out
}
