package dashhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrotrace/agrotrace/internal/dashboard"
	"github.com/agrotrace/agrotrace/internal/export"
	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/jobs"
)

// PDFRenderer converts built report HTML into PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// BatchEnqueuer submits the all-orchard trend report job.
type BatchEnqueuer interface {
	EnqueueTrendBatch(ctx context.Context, payload jobs.TrendBatchPayload) (string, error)
}

// Handler coordinates HTTP requests for the produce dashboard.
type Handler struct {
	logger    *slog.Logger
	boards    *dashboard.Service
	pdf       PDFRenderer
	batch     BatchEnqueuer
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, boards *dashboard.Service, pdf PDFRenderer, batch BatchEnqueuer) *Handler {
	return &Handler{
		logger:    logger,
		boards:    boards,
		pdf:       pdf,
		batch:     batch,
		validator: validator.New(),
		now:       time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers dashboard routes. Mount under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lookups", h.lookups)
	r.Get("/dashboard", h.view)
	r.Put("/dashboard/filters", h.updateFilters)
	r.Put("/dashboard/trend", h.setTrend)
	r.Put("/dashboard/sort", h.toggleSort)
	r.Get("/dashboard/reports/{kind}.{format}", h.report)
	r.Post("/dashboard/reports/trend-batch", h.enqueueBatch)
	r.Get("/prefs/sidebar", h.sidebar)
	r.Put("/prefs/sidebar", h.updateSidebar)
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) (*dashboard.Board, *shared.Session, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return nil, nil, false
	}
	return h.boards.Board(sess.ID, sess.Tenant()), sess, true
}

func (h *Handler) lookups(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.board(w, r); !ok {
		return
	}
	snap, err := h.boards.Lookups().Load(r.Context())
	if err != nil {
		h.logger.Error("load lookups", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, snap)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	board, _, ok := h.board(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, board.View())
}

func (h *Handler) updateFilters(w http.ResponseWriter, r *http.Request) {
	board, _, ok := h.board(w, r)
	if !ok {
		return
	}
	var edit dashboard.FilterEdit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(edit); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, board.UpdateFilters(edit))
}

func (h *Handler) setTrend(w http.ResponseWriter, r *http.Request) {
	board, _, ok := h.board(w, r)
	if !ok {
		return
	}
	var spec dashboard.TrendSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := board.SetTrend(spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, spec)
}

type sortRequest struct {
	Table string `json:"table" validate:"required,oneof=ecartDetails aggregatedSales"`
	Key   string `json:"key" validate:"required"`
}

func (h *Handler) toggleSort(w http.ResponseWriter, r *http.Request) {
	board, _, ok := h.board(w, r)
	if !ok {
		return
	}
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, board.ToggleSort(req.Table, req.Key))
}

// report emits a document from the currently held datasets. Nothing is
// refetched: what the user sees is what gets exported.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	board, _, ok := h.board(w, r)
	if !ok {
		return
	}
	kind := chi.URLParam(r, "kind")
	format := chi.URLParam(r, "format")

	view := board.View()
	meta := h.reportMeta(kind, view)

	var err error
	switch format {
	case "pdf":
		err = h.reportPDF(w, r, kind, view, meta)
	case "csv":
		err = h.reportCSV(w, kind, view, meta)
	case "xlsx":
		err = h.reportXLSX(w, kind, view, meta)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.reportError(w, kind, err)
	}
}

func (h *Handler) reportMeta(kind string, view dashboard.View) export.Meta {
	meta := export.Meta{
		Title:       reportTitle(kind),
		GeneratedAt: h.now().UTC(),
		PeriodStart: view.Filters.StartDate,
		PeriodEnd:   view.Filters.EndDate,
	}
	snap, ok := h.boards.Lookups().Snapshot()
	if !ok {
		return meta
	}
	if view.Filters.VergerID != nil {
		meta.Filters = append(meta.Filters, export.FilterLine{Label: "Verger", Value: snap.VergerName(*view.Filters.VergerID)})
	}
	if view.Filters.GrpVarID != nil {
		meta.Filters = append(meta.Filters, export.FilterLine{Label: "Groupe variétal", Value: snap.GrpVarName(*view.Filters.GrpVarID)})
	}
	return meta
}

func reportTitle(kind string) string {
	switch kind {
	case "ecart-details":
		return "Détails des écarts"
	case "ventes-ecart":
		return "Ventes écart"
	case "groupes":
		return "Totaux par groupe variétal"
	case "tendance":
		return "Tendance"
	default:
		return "Rapport"
	}
}

func (h *Handler) buildHTML(kind string, view dashboard.View, meta export.Meta) (string, error) {
	switch kind {
	case "ecart-details":
		return export.EcartDetailsHTML(meta, view.Data.EcartDetails)
	case "ventes-ecart":
		return export.AggregatedSalesHTML(meta, view.Data.AggregatedSales)
	case "groupes":
		return export.GroupedTotalsHTML(meta, view.Grouped)
	case "tendance":
		return export.TrendHTML(meta, view.Trend, view.TrendSpec, export.SVGCharts{})
	default:
		return "", errUnknownReport
	}
}

var errUnknownReport = errors.New("unknown report kind")

func (h *Handler) reportPDF(w http.ResponseWriter, r *http.Request, kind string, view dashboard.View, meta export.Meta) error {
	html, err := h.buildHTML(kind, view, meta)
	if err != nil {
		return err
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		return err
	}
	filename := export.FileName(meta.Title, "pdf", meta.GeneratedAt)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(pdf)
	return nil
}

func (h *Handler) reportCSV(w http.ResponseWriter, kind string, view dashboard.View, meta export.Meta) error {
	filename := export.FileName(meta.Title, "csv", meta.GeneratedAt)
	header := func() {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	switch kind {
	case "ecart-details":
		if len(view.Data.EcartDetails) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteEcartDetailsCSV(w, view.Data.EcartDetails)
	case "ventes-ecart":
		if len(view.Data.AggregatedSales) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteAggregatedSalesCSV(w, view.Data.AggregatedSales)
	case "groupes":
		if len(view.Grouped) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteGroupedTotalsCSV(w, view.Grouped)
	case "tendance":
		if len(view.Trend) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteTrendCSV(w, view.Trend)
	default:
		return errUnknownReport
	}
}

func (h *Handler) reportXLSX(w http.ResponseWriter, kind string, view dashboard.View, meta export.Meta) error {
	filename := export.FileName(meta.Title, "xlsx", meta.GeneratedAt)
	header := func() {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	switch kind {
	case "ecart-details":
		if len(view.Data.EcartDetails) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteEcartDetailsXLSX(w, meta.Title, view.Data.EcartDetails)
	case "ventes-ecart":
		if len(view.Data.AggregatedSales) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteAggregatedSalesXLSX(w, meta.Title, view.Data.AggregatedSales)
	case "groupes":
		if len(view.Grouped) == 0 {
			return shared.ErrNoData
		}
		header()
		return export.WriteGroupedTotalsXLSX(w, meta.Title, view.Grouped)
	default:
		return errUnknownReport
	}
}

func (h *Handler) reportError(w http.ResponseWriter, kind string, err error) {
	switch {
	case errors.Is(err, shared.ErrNoData):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, errUnknownReport):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("emit report", slog.String("kind", kind), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

func (h *Handler) enqueueBatch(w http.ResponseWriter, r *http.Request) {
	board, sess, ok := h.board(w, r)
	if !ok {
		return
	}
	if h.batch == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	view := board.View()
	jobID, err := h.batch.EnqueueTrendBatch(r.Context(), jobs.TrendBatchPayload{
		Tenant:  sess.Tenant(),
		Filters: view.Filters,
		Spec:    view.TrendSpec,
	})
	if err != nil {
		h.logger.Error("enqueue trend batch", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	h.writeJSON(w, map[string]string{"jobId": jobID})
}

func (h *Handler) sidebar(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, sess.Sidebar())
}

func (h *Handler) updateSidebar(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	var prefs shared.SidebarPrefs
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess.SetSidebar(prefs)
	h.writeJSON(w, sess.Sidebar())
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}
