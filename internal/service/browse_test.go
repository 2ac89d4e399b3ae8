package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
)

func nm(name, msg string) model.NormalizedMessage {
	return model.Normalize(model.Message{Name: strp(name), Message: msg})
}

func TestBrowse_ListClampsLimit(t *testing.T) {
	repo := &fakeRepo{visible: []model.NormalizedMessage{nm("Bu", "a")}}
	s := NewBrowseService(repo)

	got, err := s.List(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, MaxListLimit, repo.visibleLim)

	_, err = s.List(context.Background(), 10_000, "")
	require.NoError(t, err)
	require.Equal(t, MaxListLimit, repo.visibleLim)

	_, err = s.List(context.Background(), 5, "")
	require.NoError(t, err)
	require.Equal(t, 5, repo.visibleLim)
}

func TestBrowse_ListQuery(t *testing.T) {
	repo := &fakeRepo{visible: []model.NormalizedMessage{
		nm("Bu::Ani", "maaf ya"),
		nm("Pak Budi", "sorry for the noise"),
		nm("Mom", "I'm SORRY!"),
	}}
	s := NewBrowseService(repo)

	got, err := s.List(context.Background(), 0, "  sorry ")
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.List(context.Background(), 0, "ani")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Bu", *got[0].RecipientName)

	got, err = s.List(context.Background(), 0, "pakbudi")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.List(context.Background(), 0, "!!!")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestBrowse_Get(t *testing.T) {
	m := nm("Bu", "hi")
	repo := &fakeRepo{byID: map[string]*model.NormalizedMessage{"known": &m}}
	s := NewBrowseService(repo)

	got, err := s.Get(context.Background(), "known")
	require.NoError(t, err)
	require.Equal(t, "hi", got.Message.Message)
	require.Equal(t, model.RoleAnon, repo.getRole)

	_, err = s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
