// Package rest implements repository interfaces on top of the REST table store.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository"
	"github.com/and161185/sorryboard/internal/tablestore"
)

const (
	messagesTable        = "messages"
	returnRepresentation = "return=representation"
)

var _ repository.MessageRepository = (*MessageRepo)(nil)

// MessageRepo implements MessageRepository against the messages table.
type MessageRepo struct {
	store tablestore.Doer
	log   *zap.Logger
}

// NewMessageRepo constructs a message repository.
func NewMessageRepo(store tablestore.Doer, log *zap.Logger) *MessageRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageRepo{store: store, log: log}
}

func columnsFor(role model.Role) (sel, fallback string) {
	if role == model.RoleService {
		return model.AdminColumns, model.BaseColumns
	}
	return model.BaseColumns, ""
}

func idFilter(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// fetch selects rows, retrying once with the fallback column set when the
// store reports a column outside of it as unknown.
func (r *MessageRepo) fetch(ctx context.Context, sel, fallback string, q url.Values, role model.Role) ([]model.Message, error) {
	rows, err := r.selectRows(ctx, sel, q, role)
	var uc *tablestore.UnknownColumnError
	if err != nil && fallback != "" && errors.As(err, &uc) && !hasColumn(fallback, uc.Column) {
		r.log.Info("column unavailable, using base column set", zap.String("column", uc.Column))
		return r.selectRows(ctx, fallback, q, role)
	}
	return rows, err
}

func (r *MessageRepo) selectRows(ctx context.Context, sel string, q url.Values, role model.Role) ([]model.Message, error) {
	query := url.Values{"select": {sel}}
	for k, v := range q {
		query[k] = v
	}
	rows, _, err := tablestore.DoJSON[[]model.Message](ctx, r.store, tablestore.Request{
		Method: http.MethodGet,
		Table:  messagesTable,
		Query:  query,
	}, role)
	return rows, err
}

func hasColumn(set, col string) bool {
	for _, c := range strings.Split(set, ",") {
		if c == col {
			return true
		}
	}
	return false
}

// swallowRead reports whether a read error should degrade to an empty result.
// Configuration errors and cancellation still propagate.
func swallowRead(err error) bool {
	switch {
	case errors.Is(err, errs.ErrConfig),
		errors.Is(err, errs.ErrElevatedForbidden),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// GetByID loads a single message. Anonymous callers never see hidden rows.
func (r *MessageRepo) GetByID(ctx context.Context, id string, role model.Role) (*model.NormalizedMessage, error) {
	uid, ok := model.ParseMessageID(id)
	if !ok {
		return nil, nil
	}

	sel, fallback := columnsFor(role)
	q := idFilter(uid.String())
	q.Set("limit", "1")

	rows, err := r.fetch(ctx, sel, fallback, q, role)
	if err != nil {
		if !swallowRead(err) {
			return nil, err
		}
		r.log.Error("failed to load message", zap.String("id", uid.String()), zap.Error(err))
		return nil, nil
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	if role != model.RoleService && row.IsHidden {
		return nil, nil
	}
	if role != model.RoleService {
		row.IPHash = nil
	}
	n := model.Normalize(row)
	return &n, nil
}

// ListVisible returns visible messages newest first. Store failures yield an empty list.
func (r *MessageRepo) ListVisible(ctx context.Context, limit int) ([]model.NormalizedMessage, error) {
	q := url.Values{
		"is_hidden": {"eq.false"},
		"order":     {"created_at.desc"},
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	rows, err := r.fetch(ctx, model.BaseColumns, "", q, model.RoleAnon)
	if err != nil {
		if !swallowRead(err) {
			return nil, err
		}
		r.log.Error("failed to fetch visible messages", zap.Error(err))
		return []model.NormalizedMessage{}, nil
	}

	out := make([]model.NormalizedMessage, 0, len(rows))
	for _, row := range rows {
		if row.IsHidden {
			continue
		}
		row.IPHash = nil
		out = append(out, model.Normalize(row))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAll returns every message newest first, hidden ones included, so only
// the service role may call it. Errors propagate.
func (r *MessageRepo) ListAll(ctx context.Context, role model.Role) ([]model.Message, error) {
	if role != model.RoleService {
		return nil, errs.ErrElevatedForbidden
	}
	sel, _ := columnsFor(role)
	rows, err := r.fetch(ctx, sel, model.BaseColumns, url.Values{"order": {"created_at.desc"}}, role)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Message{}
	}
	return rows, nil
}

type insertRow struct {
	Name     *string `json:"name"`
	Message  string  `json:"message"`
	IPHash   *string `json:"ip_hash,omitempty"`
	IsHidden bool    `json:"is_hidden"`
}

// Insert stores a message in one round trip and returns the stored representation.
func (r *MessageRepo) Insert(ctx context.Context, m model.NewMessage, role model.Role) (*model.Message, error) {
	row := insertRow{Name: m.Name, Message: m.Message, IPHash: m.IPHash}
	if m.IsHidden != nil {
		row.IsHidden = *m.IsHidden
	}

	rows, _, err := tablestore.DoJSON[[]model.Message](ctx, r.store, tablestore.Request{
		Method: http.MethodPost,
		Table:  messagesTable,
		Body:   []insertRow{row},
		Prefer: returnRepresentation,
	}, role)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("insert message: store returned no row")
	}
	return &rows[0], nil
}

func (r *MessageRepo) patch(ctx context.Context, id string, body map[string]any) (*model.Message, error) {
	uid, ok := model.ParseMessageID(id)
	if !ok {
		return nil, errs.ErrInvalidID
	}
	rows, _, err := tablestore.DoJSON[[]model.Message](ctx, r.store, tablestore.Request{
		Method: http.MethodPatch,
		Table:  messagesTable,
		Query:  idFilter(uid.String()),
		Body:   body,
		Prefer: returnRepresentation,
	}, model.RoleService)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.ErrNotFound
	}
	return &rows[0], nil
}

// SetVisibility patches only is_hidden.
func (r *MessageRepo) SetVisibility(ctx context.Context, id string, hidden bool) (*model.Message, error) {
	return r.patch(ctx, id, map[string]any{"is_hidden": hidden})
}

// Update patches the provided fields only.
func (r *MessageRepo) Update(ctx context.Context, id string, p model.MessagePatch) (*model.Message, error) {
	if _, ok := model.ParseMessageID(id); !ok {
		return nil, errs.ErrInvalidID
	}
	if p.Empty() {
		return nil, errors.New("validation: empty patch")
	}
	body := map[string]any{}
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.Message != nil {
		body["message"] = *p.Message
	}
	return r.patch(ctx, id, body)
}

// Delete removes a message.
func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	uid, ok := model.ParseMessageID(id)
	if !ok {
		return errs.ErrInvalidID
	}
	_, err := r.store.Do(ctx, tablestore.Request{
		Method: http.MethodDelete,
		Table:  messagesTable,
		Query:  idFilter(uid.String()),
	}, model.RoleService)
	return err
}
