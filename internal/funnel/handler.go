package funnel

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turyasin/Proposal-App-Live/internal/observability"
	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
	"github.com/turyasin/Proposal-App-Live/internal/proposals"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	metrics *observability.Metrics
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
		now:     time.Now,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/funnel.csv", h.Export)
	r.Get("/funnel/snapshots/latest", h.LatestSnapshot)
}

// Export streams the funnel CSV for the currently filtered archive, reusing
// the archive view's filter query parameters. The
// filename carries the export date; the BOM-prefixed payload opens directly
// in spreadsheet applications.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	criteria, err := proposals.CriteriaFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	payload, rowCount, err := h.service.Export(r.Context(), criteria)
	if err != nil {
		h.logger.Error("funnel export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.metrics.RecordFunnelExport()
	h.logger.Info("funnel exported", slog.Int("rows", rowCount))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+Filename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.LatestSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no funnel snapshot stored yet")
			return
		}
		h.logger.Error("load funnel snapshot failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+Filename(snapshot.TakenAt)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot.Payload)
}
