package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository"
)

func strp(s string) *string { return &s }

type fakeRepo struct {
	insertIn   []model.NewMessage
	insertRole model.Role
	insertErr  error

	visible    []model.NormalizedMessage
	visibleLim int

	byID    map[string]*model.NormalizedMessage
	getRole model.Role

	all []model.Message

	visIn     map[string]bool
	updateID  string
	updateIn  model.MessagePatch
	deletedID string
}

var _ repository.MessageRepository = (*fakeRepo)(nil)

func (f *fakeRepo) GetByID(_ context.Context, id string, role model.Role) (*model.NormalizedMessage, error) {
	f.getRole = role
	return f.byID[id], nil
}

func (f *fakeRepo) ListVisible(_ context.Context, limit int) ([]model.NormalizedMessage, error) {
	f.visibleLim = limit
	return append([]model.NormalizedMessage(nil), f.visible...), nil
}

func (f *fakeRepo) ListAll(_ context.Context, _ model.Role) ([]model.Message, error) {
	return f.all, nil
}

func (f *fakeRepo) Insert(_ context.Context, m model.NewMessage, role model.Role) (*model.Message, error) {
	f.insertIn = append(f.insertIn, m)
	f.insertRole = role
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return &model.Message{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      m.Name,
		Message:   m.Message,
		CreatedAt: time.Now().UTC(),
		IPHash:    m.IPHash,
	}, nil
}

func (f *fakeRepo) SetVisibility(_ context.Context, id string, hidden bool) (*model.Message, error) {
	if f.visIn == nil {
		f.visIn = map[string]bool{}
	}
	f.visIn[id] = hidden
	return &model.Message{IsHidden: hidden}, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, p model.MessagePatch) (*model.Message, error) {
	f.updateID, f.updateIn = id, p
	out := &model.Message{Name: p.Name}
	if p.Message != nil {
		out.Message = *p.Message
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := model.ParseMessageID(id); !ok {
		return errs.ErrInvalidID
	}
	f.deletedID = id
	return nil
}

type fakeLimiter struct {
	allow bool
	wait  time.Duration
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.wait, l.err
}
