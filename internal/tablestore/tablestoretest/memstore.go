// Package tablestoretest provides an in-memory messages table that speaks the
// subset of the table store protocol used by the repositories.
package tablestoretest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/tablestore"
)

// Call records a request seen by the store.
type Call struct {
	Req  tablestore.Request
	Role model.Role
}

// Store is a goroutine-safe fake of the messages table.
type Store struct {
	mu    sync.Mutex
	rows  []model.Message
	calls []Call

	// NoIPHashColumn simulates a schema without the ip_hash column.
	NoIPHashColumn bool
	// Err, when set, is returned from every call.
	Err error
	// Trusted controls whether the service role is accepted.
	Trusted bool
	// Now supplies created_at for inserted rows.
	Now func() time.Time
}

var _ tablestore.Doer = (*Store)(nil)

// New returns an empty store that accepts the service role.
func New() *Store {
	return &Store{Trusted: true, Now: time.Now}
}

// Seed appends rows as-is.
func (s *Store) Seed(rows ...model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.rows...)
}

// Calls returns the recorded requests.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Store) Do(_ context.Context, req tablestore.Request, role model.Role) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Req: req, Role: role})

	if role == model.RoleService && !s.Trusted {
		return nil, errs.ErrElevatedForbidden
	}
	if s.Err != nil {
		return nil, s.Err
	}

	switch req.Method {
	case "", http.MethodGet:
		return s.get(req)
	case http.MethodPost:
		return s.insert(req)
	case http.MethodPatch:
		return s.patch(req)
	case http.MethodDelete:
		id := strings.TrimPrefix(req.Query.Get("id"), "eq.")
		kept := s.rows[:0]
		for _, r := range s.rows {
			if r.ID.String() != id {
				kept = append(kept, r)
			}
		}
		s.rows = kept
		return nil, nil
	}
	return nil, &tablestore.StatusError{Status: http.StatusMethodNotAllowed, Body: req.Method}
}

func (s *Store) get(req tablestore.Request) (json.RawMessage, error) {
	sel := req.Query.Get("select")
	withHash := false
	for _, c := range strings.Split(sel, ",") {
		if c == "ip_hash" {
			withHash = true
		}
	}
	if withHash && s.NoIPHashColumn {
		return nil, &tablestore.UnknownColumnError{
			StatusError: &tablestore.StatusError{Status: http.StatusBadRequest, Body: `{"code":"42703","message":"column messages.ip_hash does not exist"}`},
			Column:      "ip_hash",
		}
	}

	out := make([]model.Message, 0, len(s.rows))
	for _, r := range s.rows {
		if v := req.Query.Get("id"); v != "" && r.ID.String() != strings.TrimPrefix(v, "eq.") {
			continue
		}
		if v := req.Query.Get("is_hidden"); v != "" && strconv.FormatBool(r.IsHidden) != strings.TrimPrefix(v, "eq.") {
			continue
		}
		if !withHash {
			r.IPHash = nil
		}
		out = append(out, r)
	}
	if req.Query.Get("order") == "created_at.desc" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	if v := req.Query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &tablestore.StatusError{Status: http.StatusBadRequest, Body: "bad limit"}
		}
		if n < len(out) {
			out = out[:n]
		}
	}
	return json.Marshal(out)
}

type insertRow struct {
	Name     *string `json:"name"`
	Message  string  `json:"message"`
	IPHash   *string `json:"ip_hash"`
	IsHidden bool    `json:"is_hidden"`
}

func (s *Store) insert(req tablestore.Request) (json.RawMessage, error) {
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, err
	}
	var in []insertRow
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, &tablestore.StatusError{Status: http.StatusBadRequest, Body: err.Error()}
	}
	created := make([]model.Message, 0, len(in))
	for _, r := range in {
		m := model.Message{
			ID:        uuid.Must(uuid.NewV4()),
			Name:      r.Name,
			Message:   r.Message,
			CreatedAt: s.Now().UTC(),
			IsHidden:  r.IsHidden,
			IPHash:    r.IPHash,
		}
		s.rows = append(s.rows, m)
		created = append(created, m)
	}
	if req.Prefer != "return=representation" {
		return nil, nil
	}
	return json.Marshal(created)
}

func (s *Store) patch(req tablestore.Request) (json.RawMessage, error) {
	id := strings.TrimPrefix(req.Query.Get("id"), "eq.")
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, &tablestore.StatusError{Status: http.StatusBadRequest, Body: err.Error()}
	}

	var updated []model.Message
	for i := range s.rows {
		if s.rows[i].ID.String() != id {
			continue
		}
		for k, v := range fields {
			var err error
			switch k {
			case "is_hidden":
				err = json.Unmarshal(v, &s.rows[i].IsHidden)
			case "name":
				err = json.Unmarshal(v, &s.rows[i].Name)
			case "message":
				err = json.Unmarshal(v, &s.rows[i].Message)
			default:
				err = fmt.Errorf("column %s is not writable", k)
			}
			if err != nil {
				return nil, &tablestore.StatusError{Status: http.StatusBadRequest, Body: err.Error()}
			}
		}
		updated = append(updated, s.rows[i])
	}
	if updated == nil {
		updated = []model.Message{}
	}
	return json.Marshal(updated)
}
