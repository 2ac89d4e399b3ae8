package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/metrics"
	"github.com/and161185/sorryboard/internal/model"
	"github.com/and161185/sorryboard/internal/security"
	"github.com/and161185/sorryboard/internal/service"
)

// maxBodyBytes bounds a submission request body.
const maxBodyBytes = 16 << 10

const (
	msgInvalid      = "Invalid submission"
	msgTooMany      = "Too many submissions"
	msgUnable       = "Unable to submit"
	msgNotFound     = "Message not found"
	msgUnavailable  = "Messages unavailable"
	defaultPageSize = 50
)

type submitRequest struct {
	Recipient string  `json:"recipient"`
	Sender    *string `json:"sender"`
	Message   string  `json:"message"`
	Honeypot  string  `json:"honeypot"`
}

// Handlers serves the public API.
type Handlers struct {
	submit  service.SubmissionService
	browse  service.BrowseService
	sec     *security.Logger
	metrics *metrics.Metrics
	log     *zap.Logger
}

// Submit handles POST /api/messages/submit.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	hashed := security.HashValue(security.ClientAddress(r.Header.Get("X-Forwarded-For")))
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		h.log.Error("panic in submit",
			zap.Any("reason", rec),
			zap.ByteString("stack", debug.Stack()),
		)
		h.sec.Log(security.EventSubmissionError,
			zap.String("hashed_ip", hashed),
			zap.String("message", fmt.Sprint(rec)),
		)
		h.metrics.Submission(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, msgUnable)
	}()

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.sec.Log(security.EventSubmissionError,
			zap.String("hashed_ip", hashed),
			zap.String("message", err.Error()),
		)
		h.metrics.Submission(metrics.OutcomeError)
		writeError(w, http.StatusInternalServerError, msgUnable)
		return
	}

	msg, err := h.submit.Submit(r.Context(), service.SubmitInput{
		Recipient: req.Recipient,
		Sender:    req.Sender,
		Message:   req.Message,
		Honeypot:  req.Honeypot,
	}, hashed)

	var rl *service.RateLimitError
	switch {
	case err == nil:
		writeData(w, msg)
	case errors.Is(err, errs.ErrHoneypot):
		writeError(w, http.StatusBadRequest, msgInvalid)
	case errors.Is(err, errs.ErrInvalidSubmission):
		writeError(w, http.StatusUnprocessableEntity, msgInvalid)
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl)))
		writeError(w, http.StatusTooManyRequests, msgTooMany)
	default:
		writeError(w, http.StatusInternalServerError, msgUnable)
	}
}

func retryAfterSeconds(rl *service.RateLimitError) int {
	s := int(math.Ceil(rl.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// List handles GET /api/messages?limit=&q=.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), defaultPageSize)
	msgs, err := h.browse.List(r.Context(), limit, r.URL.Query().Get("q"))
	if err != nil {
		h.log.Error("list messages", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	writeData(w, msgs)
}

// Get handles GET /api/messages/{id}.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.browse.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeData(w, view(m))
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		h.log.Error("get message", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
	}
}

// messageView adds display names to a normalized message.
type messageView struct {
	model.NormalizedMessage
	RecipientLabel string `json:"display_recipient"`
	SenderLabel    string `json:"display_sender"`
}

func view(m *model.NormalizedMessage) messageView {
	return messageView{
		NormalizedMessage: *m,
		RecipientLabel:    m.DisplayRecipient(),
		SenderLabel:       m.DisplaySender(),
	}
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return def
}
