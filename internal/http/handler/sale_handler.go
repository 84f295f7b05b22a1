package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/service"
)

type SaleHandler struct {
	sales *service.SaleService
}

func NewSaleHandler(sales *service.SaleService) *SaleHandler {
	return &SaleHandler{sales: sales}
}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps the service-layer sentinels onto the response
// envelope; anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "input validation failed", verr.Fields)
	case errors.Is(err, repository.ErrSaleNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
	case errors.Is(err, repository.ErrProductNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, repository.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "request failed", nil)
	}
}

// List returns one channel's sales, optionally narrowed to a calendar
// month via ?year=2025&month=6.
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	month, _ := strconv.Atoi(q.Get("month"))
	if (year == 0) != (month == 0) || month < 0 || month > 12 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "year and month must be supplied together", nil)
		return
	}

	sales, total, err := h.sales.ListMonth(r.Context(), q.Get("channel"), year, time.Month(month))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"items": sales, "total": total})
}

func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sale)
}

func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.SaleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}
	sale, err := h.sales.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "sale.create", "sale_id", sale.ID, "channel", sale.Channel)
	response.JSON(w, r, http.StatusCreated, sale)
}

func (h *SaleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var in service.SaleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}
	sale, err := h.sales.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "sale.update", "sale_id", sale.ID)
	response.JSON(w, r, http.StatusOK, sale)
}

func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	if err := h.sales.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "sale.delete", "sale_id", id)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

type bulkRequest struct {
	Rows []service.SaleInput `json:"rows"`
}

// CreateBulk inserts a batch atomically; a single bad row rejects the
// whole request with the per-row errors.
func (h *SaleHandler) CreateBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}
	sales, rowErrs, err := h.sales.CreateBatch(r.Context(), req.Rows)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			response.Error(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "one or more rows failed validation", rowErrs)
			return
		}
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "sale.bulk_create", "rows", len(sales))
	response.JSON(w, r, http.StatusCreated, map[string]any{"inserted": len(sales), "items": sales})
}

// ExportCSV serves the channel's sales as a BOM-prefixed CSV download.
func (h *SaleHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.sales.ExportCSV(r.Context(), r.URL.Query().Get("channel"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "sale.export_csv", "filename", filename)
	response.Attachment(w, filename, "text/csv; charset=utf-8")
	_, _ = w.Write(data)
}

func (h *SaleHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	n, rowErrs, err := h.sales.ImportCSV(r.Context(), r.Body)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			response.Error(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "one or more rows failed validation", rowErrs)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	observability.Audit(r, "sale.import_csv", "rows", n)
	response.JSON(w, r, http.StatusCreated, map[string]int{"imported": n})
}
