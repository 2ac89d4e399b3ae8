package rest

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/tablestore"
	"github.com/and161185/sorryboard/internal/tablestore/tablestoretest"
)

func strp(s string) *string { return &s }

func newRepo(t *testing.T) (*MessageRepo, *tablestoretest.Store) {
	t.Helper()
	st := tablestoretest.New()
	return NewMessageRepo(st, zaptest.NewLogger(t)), st
}

func row(name, msg string, hidden bool, at time.Time) model.Message {
	return model.Message{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      strp(name),
		Message:   msg,
		CreatedAt: at,
		IsHidden:  hidden,
		IPHash:    strp("hash-" + msg),
	}
}

func TestGetByID_MalformedIDNoNetwork(t *testing.T) {
	r, st := newRepo(t)
	for _, id := range []string{"", "abc", "1 or 1=1"} {
		got, err := r.GetByID(context.Background(), id, model.RoleAnon)
		require.NoError(t, err)
		require.Nil(t, got)
	}
	require.Empty(t, st.Calls())
}

func TestGetByID_HiddenByRole(t *testing.T) {
	r, st := newRepo(t)
	hidden := row("Bu::Ani", "secret", true, time.Now())
	st.Seed(hidden)

	got, err := r.GetByID(context.Background(), hidden.ID.String(), model.RoleAnon)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = r.GetByID(context.Background(), hidden.ID.String(), model.RoleService)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, hidden.ID, got.ID)
	require.Equal(t, "Bu", *got.RecipientName)
	require.Equal(t, "Ani", *got.SenderName)
	require.Equal(t, "hash-secret", *got.IPHash)

	calls := st.Calls()
	require.Equal(t, model.BaseColumns, calls[0].Req.Query.Get("select"))
	require.Equal(t, "eq."+hidden.ID.String(), calls[0].Req.Query.Get("id"))
	require.Equal(t, "1", calls[0].Req.Query.Get("limit"))
	require.Equal(t, model.AdminColumns, calls[1].Req.Query.Get("select"))
	require.Equal(t, model.RoleService, calls[1].Role)
}

func TestGetByID_AnonNeverSeesIPHash(t *testing.T) {
	r, st := newRepo(t)
	m := row("Bu", "hi", false, time.Now())
	st.Seed(m)

	got, err := r.GetByID(context.Background(), m.ID.String(), model.RoleAnon)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Nil(t, got.IPHash)
	require.Nil(t, got.SenderName)
}

func TestGetByID_ColumnFallback(t *testing.T) {
	r, st := newRepo(t)
	st.NoIPHashColumn = true
	m := row("Bu", "hi", true, time.Now())
	st.Seed(m)

	got, err := r.GetByID(context.Background(), m.ID.String(), model.RoleService)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Nil(t, got.IPHash)

	calls := st.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, model.AdminColumns, calls[0].Req.Query.Get("select"))
	require.Equal(t, model.BaseColumns, calls[1].Req.Query.Get("select"))
}

func TestGetByID_StoreFailureIsNil(t *testing.T) {
	r, st := newRepo(t)
	st.Err = &tablestore.StatusError{Status: http.StatusBadGateway, Body: "down"}

	got, err := r.GetByID(context.Background(), uuid.Must(uuid.NewV4()).String(), model.RoleAnon)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestGetByID_ForbiddenRolePropagates(t *testing.T) {
	r, st := newRepo(t)
	st.Trusted = false

	_, err := r.GetByID(context.Background(), uuid.Must(uuid.NewV4()).String(), model.RoleService)
	require.ErrorIs(t, err, errs.ErrElevatedForbidden)
}

func TestListVisible(t *testing.T) {
	r, st := newRepo(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.Seed(
		row("A", "oldest", false, base),
		row("B::C", "hidden", true, base.Add(2*time.Hour)),
		row("D", "newest", false, base.Add(3*time.Hour)),
		row("E", "middle", false, base.Add(time.Hour)),
	)

	got, err := r.ListVisible(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "newest", got[0].Message.Message)
	require.Equal(t, "middle", got[1].Message.Message)
	require.Equal(t, "oldest", got[2].Message.Message)
	for i, m := range got {
		require.False(t, m.IsHidden)
		require.Nil(t, m.IPHash)
		if i > 0 {
			require.False(t, m.CreatedAt.After(got[i-1].CreatedAt))
		}
	}

	q := st.Calls()[0].Req.Query
	require.Equal(t, "eq.false", q.Get("is_hidden"))
	require.Equal(t, "created_at.desc", q.Get("order"))
	require.Empty(t, q.Get("limit"))
	require.Equal(t, model.RoleAnon, st.Calls()[0].Role)

	got, err = r.ListVisible(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "2", st.Calls()[1].Req.Query.Get("limit"))
}

func TestListVisible_FailureIsEmpty(t *testing.T) {
	r, st := newRepo(t)
	st.Err = errors.New("connection refused")

	got, err := r.ListVisible(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestListAll(t *testing.T) {
	r, st := newRepo(t)
	base := time.Now()
	st.Seed(row("A", "a", true, base), row("B", "b", false, base.Add(time.Minute)))

	got, err := r.ListAll(context.Background(), model.RoleService)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Message)
	require.NotNil(t, got[1].IPHash)

	st.NoIPHashColumn = true
	got, err = r.ListAll(context.Background(), model.RoleService)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Nil(t, got[0].IPHash)

	boom := &tablestore.StatusError{Status: 500, Body: "boom"}
	st.Err = boom
	_, err = r.ListAll(context.Background(), model.RoleService)
	require.ErrorIs(t, err, boom)
}

func TestListAll_AnonForbidden(t *testing.T) {
	r, st := newRepo(t)
	st.Seed(row("A", "hidden", true, time.Now()), row("B", "visible", false, time.Now()))

	for _, role := range []model.Role{model.RoleAnon, ""} {
		got, err := r.ListAll(context.Background(), role)
		require.ErrorIs(t, err, errs.ErrElevatedForbidden)
		require.Nil(t, got)
	}
	require.Empty(t, st.Calls())
}

func TestInsert(t *testing.T) {
	r, st := newRepo(t)

	got, err := r.Insert(context.Background(), model.NewMessage{
		Name:    strp("Bu::Ani"),
		Message: "maaf ya",
		IPHash:  strp("h"),
	}, model.RoleAnon)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, got.ID)
	require.False(t, got.CreatedAt.IsZero())
	require.Equal(t, "Bu::Ani", *got.Name)
	require.False(t, got.IsHidden)

	calls := st.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, http.MethodPost, calls[0].Req.Method)
	require.Equal(t, "return=representation", calls[0].Req.Prefer)
	require.Equal(t, model.RoleAnon, calls[0].Role)
	body := calls[0].Req.Body.([]insertRow)
	require.Len(t, body, 1)
	require.False(t, body[0].IsHidden)

	hidden := true
	got, err = r.Insert(context.Background(), model.NewMessage{Message: "x", IsHidden: &hidden}, model.RoleAnon)
	require.NoError(t, err)
	require.True(t, got.IsHidden)
	require.Nil(t, got.Name)
}

func TestInsert_ErrorPropagates(t *testing.T) {
	r, st := newRepo(t)
	st.Err = &tablestore.StatusError{Status: 401, Body: "nope"}

	_, err := r.Insert(context.Background(), model.NewMessage{Message: "x"}, model.RoleAnon)
	var se *tablestore.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, 401, se.Status)
}

func TestMutations_InvalidIDNoNetwork(t *testing.T) {
	r, st := newRepo(t)
	ctx := context.Background()

	_, err := r.SetVisibility(ctx, "nope", true)
	require.ErrorIs(t, err, errs.ErrInvalidID)
	_, err = r.Update(ctx, "nope", model.MessagePatch{Message: strp("x")})
	require.ErrorIs(t, err, errs.ErrInvalidID)
	require.ErrorIs(t, r.Delete(ctx, "nope"), errs.ErrInvalidID)

	require.Empty(t, st.Calls())
}

func TestSetVisibility(t *testing.T) {
	r, st := newRepo(t)
	m := row("Bu", "hi", false, time.Now())
	st.Seed(m)

	got, err := r.SetVisibility(context.Background(), m.ID.String(), true)
	require.NoError(t, err)
	require.True(t, got.IsHidden)
	require.Equal(t, "hi", got.Message)

	c := st.Calls()[0]
	require.Equal(t, http.MethodPatch, c.Req.Method)
	require.Equal(t, model.RoleService, c.Role)
	require.Equal(t, map[string]any{"is_hidden": true}, c.Req.Body)

	_, err = r.SetVisibility(context.Background(), uuid.Must(uuid.NewV4()).String(), true)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	r, st := newRepo(t)
	m := row("Bu", "hi", false, time.Now())
	st.Seed(m)

	got, err := r.Update(context.Background(), m.ID.String(), model.MessagePatch{Message: strp("edited")})
	require.NoError(t, err)
	require.Equal(t, "edited", got.Message)
	require.Equal(t, "Bu", *got.Name)
	require.Equal(t, map[string]any{"message": "edited"}, st.Calls()[0].Req.Body)

	_, err = r.Update(context.Background(), m.ID.String(), model.MessagePatch{})
	require.Error(t, err)
	require.Len(t, st.Calls(), 1)
}

func TestDelete(t *testing.T) {
	r, st := newRepo(t)
	m := row("Bu", "hi", false, time.Now())
	st.Seed(m, row("X", "other", false, time.Now()))

	require.NoError(t, r.Delete(context.Background(), m.ID.String()))
	require.Len(t, st.Rows(), 1)
	c := st.Calls()[0]
	require.Equal(t, http.MethodDelete, c.Req.Method)
	require.Equal(t, "eq."+m.ID.String(), c.Req.Query.Get("id"))
	require.Equal(t, model.RoleService, c.Role)
}
