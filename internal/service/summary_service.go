package service

import (
	"context"
	"time"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/renewal"
	"github.com/eraverse/sales-admin-service/internal/repository"
)

// Summary is the dashboard payload: today's and this month's totals plus
// the two renewal alert lists.
type Summary struct {
	Today        repository.SaleTotals `json:"today"`
	Month        repository.SaleTotals `json:"month"`
	ExpiringSoon []renewal.Alert       `json:"expiring_soon"`
	NeedsRenewal []renewal.Alert       `json:"needs_renewal"`
}

type SummaryService struct {
	sales repository.SaleRepository
	now   func() time.Time
}

func NewSummaryService(sales repository.SaleRepository) *SummaryService {
	return &SummaryService{sales: sales, now: time.Now}
}

func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

func toRecord(sale domain.Sale) renewal.Record {
	email := ""
	if sale.Email != nil {
		email = *sale.Email
	}
	return renewal.Record{
		SaleID:         sale.ID,
		Channel:        sale.Channel,
		Product:        sale.Product,
		Customer:       sale.Customer,
		Email:          email,
		Purchased:      sale.PurchasedDate,
		DurationMonths: sale.DurationMonths,
		RenewMonths:    sale.RenewMonths,
		Expired:        sale.ExpiredDate,
	}
}

// Build assembles the dashboard. The candidate rows come from one query
// bounded by the urgency horizon; the calendar package does the per-row
// classification.
func (s *SummaryService) Build(ctx context.Context) (*Summary, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	todayTotals, err := s.sales.TotalsBetween(today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	monthTotals, err := s.sales.TotalsBetween(monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	horizon := today.AddDate(0, 0, renewal.UrgentWindowDays)
	rows, err := s.sales.SummaryRows(horizon)
	if err != nil {
		return nil, err
	}
	records := make([]renewal.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}

	observability.RecordSummaryRequest(ctx, "dashboard")
	return &Summary{
		Today:        todayTotals,
		Month:        monthTotals,
		ExpiringSoon: renewal.SelectExpiringSoon(records, now),
		NeedsRenewal: renewal.SelectNeedsRenewal(records, now),
	}, nil
}
