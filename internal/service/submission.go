// Package service contains application services for submitting, browsing and moderating apologies.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/limiter"
	"github.com/and161185/sorryboard/internal/metrics"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/repository"
	"github.com/and161185/sorryboard/internal/security"
	"github.com/and161185/sorryboard/internal/validation"
)

// SubmitInput is an anonymous submission as received from a client.
type SubmitInput struct {
	Recipient string
	Sender    *string
	Message   string
	Honeypot  string
}

// ValidationError carries the validator's reasons for rejecting a submission.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Unwrap() error { return errs.ErrInvalidSubmission }

// RateLimitError reports a denied submission and the remaining cooldown.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return errs.ErrRateLimited }

// SubmissionService accepts anonymous submissions.
type SubmissionService interface {
	// Submit runs the anti-abuse pipeline and stores an accepted submission.
	// clientHash is the hashed client address; raw addresses never reach the service.
	Submit(ctx context.Context, in SubmitInput, clientHash string) (*model.Message, error)
}

// SubmissionDeps groups the collaborators of SubmissionServiceImpl.
type SubmissionDeps struct {
	Repo      repository.MessageRepository
	Validator *validation.Validator
	Limiter   limiter.Limiter
	Security  *security.Logger
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type SubmissionServiceImpl struct {
	repo      repository.MessageRepository
	validator *validation.Validator
	lim       limiter.Limiter
	sec       *security.Logger
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewSubmissionService constructs SubmissionService. A nil limiter allows everything.
func NewSubmissionService(d SubmissionDeps) *SubmissionServiceImpl {
	s := &SubmissionServiceImpl{
		repo:      d.Repo,
		validator: d.Validator,
		lim:       d.Limiter,
		sec:       d.Security,
		metrics:   d.Metrics,
		log:       d.Logger,
	}
	if s.validator == nil {
		s.validator = validation.New(validation.DefaultRules())
	}
	if s.lim == nil {
		s.lim = limiter.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.sec == nil {
		s.sec = security.NewLogger(s.log)
	}
	return s
}

// Submit checks the honeypot, validates, applies the cooldown and persists.
// The cooldown is consumed only by submissions that passed validation.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, in SubmitInput, clientHash string) (*model.Message, error) {
	if in.Honeypot != "" {
		s.sec.Log(security.EventHoneypot, zap.String("hashed_ip", clientHash))
		s.metrics.Submission(metrics.OutcomeHoneypot)
		return nil, errs.ErrHoneypot
	}

	res := s.validator.Validate(validation.Input{
		Recipient: in.Recipient,
		Sender:    in.Sender,
		Message:   in.Message,
	})
	if !res.Valid {
		s.sec.Log(security.EventValidation,
			zap.String("hashed_ip", clientHash),
			zap.Strings("reasons", res.Errors),
		)
		s.metrics.Submission(metrics.OutcomeInvalid)
		return nil, &ValidationError{Reasons: res.Errors}
	}

	allowed, wait, err := s.lim.Allow(ctx, clientHash)
	switch {
	case err != nil:
		s.log.Warn("limiter unavailable, allowing submission", zap.Error(err))
	case !allowed:
		s.sec.Log(security.EventRateLimit,
			zap.String("hashed_ip", clientHash),
			zap.Duration("retry_after", wait),
		)
		s.metrics.Submission(metrics.OutcomeRateLimited)
		return nil, &RateLimitError{RetryAfter: wait}
	}

	var sender *string
	if res.Sanitized.Sender != "" {
		sender = &res.Sanitized.Sender
	}
	hash := clientHash
	msg, err := s.repo.Insert(ctx, model.NewMessage{
		Name:    model.EncodeName(res.Sanitized.Recipient, sender),
		Message: res.Sanitized.Message,
		IPHash:  &hash,
	}, model.RoleAnon)
	if err != nil {
		s.sec.Log(security.EventSubmissionError,
			zap.String("hashed_ip", clientHash),
			zap.String("message", err.Error()),
		)
		s.metrics.Submission(metrics.OutcomeError)
		return nil, err
	}
	s.metrics.Submission(metrics.OutcomeAccepted)
	msg.IPHash = nil
	return msg, nil
}
