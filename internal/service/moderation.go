package service

import (
	"context"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository"
	"github.com/and161185/sorryboard/internal/validation"
)

// EditInput lists the fields to change; nil leaves the stored value.
type EditInput struct {
	Recipient *string
	Sender    *string
	Message   *string
}

// ModerationService performs privileged operations through the service role.
type ModerationService interface {
	List(ctx context.Context) ([]model.Message, error)
	Get(ctx context.Context, id string) (*model.NormalizedMessage, error)
	Hide(ctx context.Context, id string) (*model.Message, error)
	Unhide(ctx context.Context, id string) (*model.Message, error)
	// Edit merges in with the stored row and re-validates the result.
	Edit(ctx context.Context, id string, in EditInput) (*model.Message, error)
	Delete(ctx context.Context, id string) error
}

type ModerationServiceImpl struct {
	repo      repository.MessageRepository
	validator *validation.Validator
}

// NewModerationService constructs ModerationService.
func NewModerationService(repo repository.MessageRepository, v *validation.Validator) *ModerationServiceImpl {
	if v == nil {
		v = validation.New(validation.DefaultRules())
	}
	return &ModerationServiceImpl{repo: repo, validator: v}
}

func (s *ModerationServiceImpl) List(ctx context.Context) ([]model.Message, error) {
	return s.repo.ListAll(ctx, model.RoleService)
}

// Get returns any message, hidden ones included.
func (s *ModerationServiceImpl) Get(ctx context.Context, id string) (*model.NormalizedMessage, error) {
	if _, ok := model.ParseMessageID(id); !ok {
		return nil, errs.ErrInvalidID
	}
	m, err := s.repo.GetByID(ctx, id, model.RoleService)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errs.ErrNotFound
	}
	return m, nil
}

func (s *ModerationServiceImpl) Hide(ctx context.Context, id string) (*model.Message, error) {
	return s.repo.SetVisibility(ctx, id, true)
}

func (s *ModerationServiceImpl) Unhide(ctx context.Context, id string) (*model.Message, error) {
	return s.repo.SetVisibility(ctx, id, false)
}

func (s *ModerationServiceImpl) Edit(ctx context.Context, id string, in EditInput) (*model.Message, error) {
	if in.Recipient == nil && in.Sender == nil && in.Message == nil {
		return nil, &ValidationError{Reasons: []string{"nothing to edit"}}
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	recipient := deref(cur.RecipientName)
	if in.Recipient != nil {
		recipient = *in.Recipient
	}
	sender := cur.SenderName
	if in.Sender != nil {
		sender = in.Sender
	}
	message := cur.Message.Message
	if in.Message != nil {
		message = *in.Message
	}
	renamed := in.Recipient != nil || in.Sender != nil
	if !renamed {
		// the stored name is written back untouched, only the message is checked
		recipient, sender = model.FallbackRecipient, nil
	}

	res := s.validator.Validate(validation.Input{Recipient: recipient, Sender: sender, Message: message})
	if !res.Valid {
		return nil, &ValidationError{Reasons: res.Errors}
	}

	var p model.MessagePatch
	if renamed {
		var snd *string
		if res.Sanitized.Sender != "" {
			snd = &res.Sanitized.Sender
		}
		p.Name = model.EncodeName(res.Sanitized.Recipient, snd)
	}
	if in.Message != nil {
		p.Message = &res.Sanitized.Message
	}
	return s.repo.Update(ctx, id, p)
}

func (s *ModerationServiceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
