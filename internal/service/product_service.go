package service

import (
	"context"
	"strings"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/repository"
)

// ProductInput is the wire shape for catalog entries.
type ProductInput struct {
	Channel  string  `json:"channel"`
	Name     string  `json:"name"`
	Duration int     `json:"duration"`
	Price    float64 `json:"price"`
	Profit   float64 `json:"profit"`
	IsActive *bool   `json:"is_active"`
}

type ProductService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) validate(in ProductInput) (*domain.Product, error) {
	verr := &ValidationError{}

	channel := strings.ToLower(strings.TrimSpace(in.Channel))
	if !domain.KnownChannel(channel) {
		verr.add("channel", "must be retail or wholesale")
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "is required")
	}
	if in.Duration < 1 {
		verr.add("duration", "must be at least 1 month")
	}
	if in.Price < 0 {
		verr.add("price", "must not be negative")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &domain.Product{
		Channel:        channel,
		Name:           strings.TrimSpace(in.Name),
		DurationMonths: in.Duration,
		Price:          in.Price,
		Profit:         in.Profit,
		IsActive:       active,
	}, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*domain.Product, error) {
	existing, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if err := s.products.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*domain.Product, error) {
	return s.products.FindByID(id)
}

func (s *ProductService) List(ctx context.Context, channel string) ([]domain.Product, error) {
	return s.products.List(strings.ToLower(strings.TrimSpace(channel)))
}

// Options returns the active products of a channel in the slim shape the
// sale form consumes.
func (s *ProductService) Options(ctx context.Context, channel string) ([]repository.ProductOption, error) {
	return s.products.Options(strings.ToLower(strings.TrimSpace(channel)))
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.products.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrProductNotFound
	}
	return nil
}
