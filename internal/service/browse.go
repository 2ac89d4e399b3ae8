package service

import (
	"context"
	"strings"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository"
	"github.com/and161185/sorryboard/internal/validation"
)

// MaxListLimit caps the page size accepted by List.
const MaxListLimit = 200

// BrowseService exposes the public, read-only view of the board.
type BrowseService interface {
	// List returns visible messages newest first, optionally filtered by query.
	List(ctx context.Context, limit int, query string) ([]model.NormalizedMessage, error)
	// Get returns one visible message or errs.ErrNotFound.
	Get(ctx context.Context, id string) (*model.NormalizedMessage, error)
}

type BrowseServiceImpl struct {
	repo repository.MessageRepository
}

// NewBrowseService constructs BrowseService.
func NewBrowseService(repo repository.MessageRepository) *BrowseServiceImpl {
	return &BrowseServiceImpl{repo: repo}
}

// List clamps limit to MaxListLimit. With a query, matching happens over the
// fetched page on the recipient, sender and message text, ignoring case,
// whitespace and punctuation.
func (s *BrowseServiceImpl) List(ctx context.Context, limit int, query string) ([]model.NormalizedMessage, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	msgs, err := s.repo.ListVisible(ctx, limit)
	if err != nil {
		return nil, err
	}
	q := validation.NormalizeForMatching(query)
	if q == "" {
		return msgs, nil
	}
	out := make([]model.NormalizedMessage, 0, len(msgs))
	for _, m := range msgs {
		if matches(m, q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func matches(m model.NormalizedMessage, q string) bool {
	fields := []string{m.Message.Message}
	if m.RecipientName != nil {
		fields = append(fields, *m.RecipientName)
	}
	if m.SenderName != nil {
		fields = append(fields, *m.SenderName)
	}
	for _, f := range fields {
		if strings.Contains(validation.NormalizeForMatching(f), q) {
			return true
		}
	}
	return false
}

// Get loads a message through the anonymous role.
func (s *BrowseServiceImpl) Get(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	m, err := s.repo.GetByID(ctx, id, model.RoleAnon)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrNotFound
	}
	return m, nil
}
