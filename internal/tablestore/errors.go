package tablestore

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// StatusError is returned for any non-2xx response from the table store.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("table store request failed (%d): %s", e.Status, e.Body)
}

// UnknownColumnError is a StatusError whose body reports a column missing from the schema.
type UnknownColumnError struct {
	*StatusError
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q: %s", e.Column, e.StatusError.Error())
}

func (e *UnknownColumnError) Unwrap() error { return e.StatusError }

var (
	// column messages.ip_hash does not exist
	pgMissingColumn = regexp.MustCompile(`column (?:[\w"]+\.)?"?(\w+)"? does not exist`)
	// Could not find the 'ip_hash' column of 'messages' in the schema cache
	cacheMissingColumn = regexp.MustCompile(`Could not find the '(\w+)' column`)
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify turns a failed response into a StatusError or UnknownColumnError.
func classify(status int, body []byte) error {
	se := &StatusError{Status: status, Body: string(body)}

	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Message
	if msg == "" {
		msg = se.Body
	}
	if eb.Code == "42703" || eb.Code == "PGRST204" || eb.Code == "" {
		for _, re := range []*regexp.Regexp{pgMissingColumn, cacheMissingColumn} {
			if m := re.FindStringSubmatch(msg); m != nil {
				return &UnknownColumnError{StatusError: se, Column: m[1]}
			}
		}
	}
	return se
}
