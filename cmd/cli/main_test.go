package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/limiter"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository/rest"
	"github.com/and161185/sorryboard/internal/security"
	httpserver "github.com/and161185/sorryboard/internal/server/http"
	"github.com/and161185/sorryboard/internal/service"
	"github.com/and161185/sorryboard/internal/tablestore/tablestoretest"
)

func strp(s string) *string { return &s }

func runCmd(t *testing.T, mod moderationFactory, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(mod)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func storeFactory(t *testing.T, st *tablestoretest.Store) moderationFactory {
	repo := rest.NewMessageRepo(st, zaptest.NewLogger(t))
	return func(*globals) (service.ModerationService, error) {
		return service.NewModerationService(repo, nil), nil
	}
}

func seeded(t *testing.T) (*tablestoretest.Store, model.Message) {
	st := tablestoretest.New()
	m := model.Message{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      strp("Bu::Ani"),
		Message:   "maaf ya",
		CreatedAt: time.Now().UTC(),
		IPHash:    strp("h"),
	}
	st.Seed(m)
	return st, m
}

func TestListAndGet(t *testing.T) {
	st, m := seeded(t)
	mod := storeFactory(t, st)

	out, err := runCmd(t, mod, "list")
	require.NoError(t, err)
	var msgs []model.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msgs))
	require.Len(t, msgs, 1)
	require.Equal(t, "h", *msgs[0].IPHash)

	out, err = runCmd(t, mod, "get", m.ID.String())
	require.NoError(t, err)
	require.Contains(t, out, `"recipient_name": "Bu"`)

	_, err = runCmd(t, mod, "get", "bogus")
	require.ErrorIs(t, err, errs.ErrInvalidID)

	_, err = runCmd(t, mod, "get")
	require.Error(t, err)
}

func TestHideUnhideEditDelete(t *testing.T) {
	st, m := seeded(t)
	mod := storeFactory(t, st)
	id := m.ID.String()

	_, err := runCmd(t, mod, "hide", id)
	require.NoError(t, err)
	require.True(t, st.Rows()[0].IsHidden)

	_, err = runCmd(t, mod, "unhide", id)
	require.NoError(t, err)
	require.False(t, st.Rows()[0].IsHidden)

	_, err = runCmd(t, mod, "edit", id, "--sender", "", "--message", "maaf banget")
	require.NoError(t, err)
	row := st.Rows()[0]
	require.Equal(t, "Bu", *row.Name)
	require.Equal(t, "maaf banget", row.Message)

	_, err = runCmd(t, mod, "edit", id)
	require.ErrorIs(t, err, errs.ErrInvalidSubmission)

	out, err := runCmd(t, mod, "delete", id)
	require.NoError(t, err)
	require.Contains(t, out, "deleted")
	require.Empty(t, st.Rows())
}

func TestSubmitWithCooldown(t *testing.T) {
	st := tablestoretest.New()
	repo := rest.NewMessageRepo(st, zaptest.NewLogger(t))
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.Deps{
		Submit: service.NewSubmissionService(service.SubmissionDeps{Repo: repo, Limiter: limiter.NewMemory(time.Minute, 1)}),
		Browse: service.NewBrowseService(repo),
	}))
	defer srv.Close()

	state := filepath.Join(t.TempDir(), "state.json")
	args := []string{"submit", "--api", srv.URL, "--state", state, "-t", "Bu", "-f", "<b>Ani</b>", "-m", "maaf ya"}

	out, err := runCmd(t, nil, args...)
	require.NoError(t, err)
	require.Contains(t, out, `"name": "Bu::Ani"`)
	require.Len(t, st.Rows(), 1)

	out, err = runCmd(t, nil, args...)
	require.ErrorIs(t, err, errCooldown)
	require.Contains(t, out, security.EventRateLimit)
	require.Len(t, st.Rows(), 1)

	// a fresh local state still hits the server-side limiter
	other := filepath.Join(t.TempDir(), "state.json")
	out, err = runCmd(t, nil, "submit", "--api", srv.URL, "--state", other, "-t", "Bu", "-m", "maaf lagi")
	var rej *rejectedError
	require.True(t, errors.As(err, &rej))
	require.Equal(t, http.StatusTooManyRequests, rej.Status)
	require.NotEmpty(t, rej.RetryAfter)
	require.Contains(t, out, security.EventRejected)
	require.Len(t, st.Rows(), 1)
}

func TestSubmitValidatesLocally(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state.json")
	out, err := runCmd(t, nil, "submit", "--api", "http://127.0.0.1:1", "--state", state, "-t", "", "-m", "hi")
	require.EqualError(t, err, "Recipient is required")
	require.Contains(t, out, security.EventValidation)
}

func TestSubmitUsesConfiguredRules(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "board.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("validation:\n  max_message_length: 5\n"), 0o600))

	out, err := runCmd(t, nil, "submit", "-c", cfgPath, "--env-file", filepath.Join(dir, "missing.env"),
		"--api", "http://127.0.0.1:1", "--state", filepath.Join(dir, "state.json"),
		"-t", "Bu", "-m", "maaf banget")
	require.EqualError(t, err, "Message exceeds 5 characters")
	require.Contains(t, out, security.EventValidation)
}
