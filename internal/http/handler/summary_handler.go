package handler

import (
	"net/http"

	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/service"
)

type SummaryHandler struct {
	summary *service.SummaryService
}

func NewSummaryHandler(summary *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summary: summary}
}

// Dashboard serves today's and this month's totals plus the renewal
// alert lists.
func (h *SummaryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.summary.Build(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, sum)
}
