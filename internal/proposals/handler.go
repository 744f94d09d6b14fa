package proposals

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

// EmailEnqueuer hands a composed proposal email to the background mailer.
type EmailEnqueuer interface {
	EnqueueProposalEmail(ctx context.Context, email EmailRequest) error
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	mailer   EmailEnqueuer
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, mailer EmailEnqueuer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		mailer:   mailer,
		validate: validator.New(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := CriteriaFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	records, err := h.service.Archive(r.Context(), criteria)
	if err != nil {
		h.logger.Error("list proposals failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"proposals": records,
		"total":     len(records),
	})
}

func (h *Handler) Preparers(w http.ResponseWriter, r *http.Request) {
	preparers, err := h.service.Preparers(r.Context())
	if err != nil {
		h.logger.Error("list preparers failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preparers)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertProposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create proposal failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpsertProposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update proposal failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mailto returns the compose-email payload for a proposal, including the
// ready-made mailto: link the archive view opens.
func (h *Handler) Mailto(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	email := ComposeEmail(p)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"to":      email.To,
		"subject": email.Subject,
		"body":    email.Body,
		"mailto":  email.MailtoURL(),
	})
}

// Email queues the proposal email for background delivery.
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	email := ComposeEmail(p)
	if email.To == "" {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Missing Recipient", "proposal has no company email")
		return
	}
	if err := h.mailer.EnqueueProposalEmail(r.Context(), email); err != nil {
		h.logger.Error("enqueue proposal email failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "proposal not found")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrUnknownCompany):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

// CriteriaFromQuery maps the archive view's filter bar onto FilterCriteria.
func CriteriaFromQuery(r *http.Request) (FilterCriteria, error) {
	criteria := FilterCriteria{
		Query:    r.URL.Query().Get("q"),
		Preparer: r.URL.Query().Get("preparer"),
	}
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return FilterCriteria{}, errors.New("invalid company_id")
		}
		criteria.CompanyID = id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			return FilterCriteria{}, errors.New("invalid status")
		}
		criteria.Status = status
	}
	return criteria, nil
}
