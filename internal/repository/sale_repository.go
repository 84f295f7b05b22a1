package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/observability"
)

var ErrSaleNotFound = errors.New("sale not found")

// SaleTotals is one sum over price/profit, used by the dashboard KPIs.
type SaleTotals struct {
	Sales  float64 `json:"sales"`
	Profit float64 `json:"profit"`
}

type SaleRepository interface {
	FindByID(id uint) (*domain.Sale, error)
	ListByMonth(channel string, year int, month time.Month) ([]domain.Sale, int64, error)
	Create(s *domain.Sale) error
	CreateBatch(sales []domain.Sale) error
	Update(s *domain.Sale) error
	Delete(id uint) (bool, error)
	AllForExport(channel string) ([]domain.Sale, error)
	// SummaryRows returns both channels' rows that either expire on or
	// before the horizon or carry a renewal cadence, newest purchase first.
	SummaryRows(horizon time.Time) ([]domain.Sale, error)
	TotalsBetween(from, until time.Time) (SaleTotals, error)
}

type GormSaleRepository struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &GormSaleRepository{db: db} }

func (r *GormSaleRepository) FindByID(id uint) (*domain.Sale, error) {
	var s domain.Sale
	err := r.db.First(&s, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "sale", "find_by_id", "not_found")
			return nil, ErrSaleNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "sale", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "find_by_id", "success")
	return &s, nil
}

func (r *GormSaleRepository) ListByMonth(channel string, year int, month time.Month) ([]domain.Sale, int64, error) {
	base := r.db.Model(&domain.Sale{})
	if channel != "" {
		base = base.Where("channel = ?", channel)
	}
	if year > 0 && month >= time.January && month <= time.December {
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		base = base.Where("purchased_date >= ? AND purchased_date < ?", from, from.AddDate(0, 1, 0))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "list_by_month", "error")
		return nil, 0, err
	}
	var sales []domain.Sale
	err := base.Order("purchased_date DESC, id DESC").Find(&sales).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "list_by_month", "error")
		return nil, 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "list_by_month", "success")
	return sales, total, nil
}

func (r *GormSaleRepository) Create(s *domain.Sale) error {
	err := r.db.Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "create", "success")
	return nil
}

// CreateBatch inserts every row or none.
func (r *GormSaleRepository) CreateBatch(sales []domain.Sale) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&sales).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "create_batch", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "create_batch", "success")
	return nil
}

func (r *GormSaleRepository) Update(s *domain.Sale) error {
	err := r.db.Save(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "update", "success")
	return nil
}

func (r *GormSaleRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&domain.Sale{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "delete", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "delete", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSaleRepository) AllForExport(channel string) ([]domain.Sale, error) {
	var sales []domain.Sale
	q := r.db.Order("purchased_date DESC, id DESC")
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	err := q.Find(&sales).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "all_for_export", "error")
		return sales, err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "all_for_export", "success")
	return sales, nil
}

func (r *GormSaleRepository) SummaryRows(horizon time.Time) ([]domain.Sale, error) {
	var sales []domain.Sale
	err := r.db.
		Where("(expired_date IS NOT NULL AND expired_date <= ?) OR renew_months <> 0", horizon).
		Order("purchased_date DESC, id DESC").
		Find(&sales).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "summary_rows", "error")
		return sales, err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "summary_rows", "success")
	return sales, nil
}

func (r *GormSaleRepository) TotalsBetween(from, until time.Time) (SaleTotals, error) {
	var totals SaleTotals
	err := r.db.Model(&domain.Sale{}).
		Select("COALESCE(SUM(price), 0) AS sales, COALESCE(SUM(profit), 0) AS profit").
		Where("purchased_date >= ? AND purchased_date < ?", from, until).
		Scan(&totals).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "sale", "totals_between", "error")
		return SaleTotals{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "sale", "totals_between", "success")
	return totals, nil
}
