package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/observability"
)

var ErrProductNotFound = errors.New("product not found")

// ProductOption is the slim shape the sale form needs to populate its
// product dropdown.
type ProductOption struct {
	ID             uint    `json:"product_id"`
	Name           string  `json:"name"`
	DurationMonths int     `json:"duration"`
	Price          float64 `json:"price"`
}

type ProductRepository interface {
	FindByID(id uint) (*domain.Product, error)
	List(channel string) ([]domain.Product, error)
	Options(channel string) ([]ProductOption, error)
	Create(p *domain.Product) error
	Update(p *domain.Product) error
	Delete(id uint) (bool, error)
}

type GormProductRepository struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &GormProductRepository{db: db} }

func (r *GormProductRepository) FindByID(id uint) (*domain.Product, error) {
	var p domain.Product
	err := r.db.First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "product", "find_by_id", "not_found")
			return nil, ErrProductNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "product", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "find_by_id", "success")
	return &p, nil
}

func (r *GormProductRepository) List(channel string) ([]domain.Product, error) {
	var products []domain.Product
	q := r.db.Order("name ASC")
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	err := q.Find(&products).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "product", "list", "error")
		return products, err
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "list", "success")
	return products, nil
}

func (r *GormProductRepository) Options(channel string) ([]ProductOption, error) {
	var options []ProductOption
	q := r.db.Model(&domain.Product{}).
		Select("id, name, duration_months, price").
		Where("is_active = ?", true).
		Order("name ASC")
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	err := q.Scan(&options).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "product", "options", "error")
		return options, err
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "options", "success")
	return options, nil
}

func (r *GormProductRepository) Create(p *domain.Product) error {
	err := r.db.Create(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "product", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "create", "success")
	return nil
}

func (r *GormProductRepository) Update(p *domain.Product) error {
	err := r.db.Save(p).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "product", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "update", "success")
	return nil
}

func (r *GormProductRepository) Delete(id uint) (bool, error) {
	res := r.db.Delete(&domain.Product{}, id)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "product", "delete", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "product", "delete", "success")
	return res.RowsAffected > 0, nil
}
