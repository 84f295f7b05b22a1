package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/repository"
)

type memSaleRepo struct {
	sales  map[uint]domain.Sale
	nextID uint
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[uint]domain.Sale), nextID: 1}
}

func (m *memSaleRepo) FindByID(id uint) (*domain.Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, repository.ErrSaleNotFound
	}
	out := s
	return &out, nil
}

func (m *memSaleRepo) ListByMonth(channel string, year int, month time.Month) ([]domain.Sale, int64, error) {
	var out []domain.Sale
	for _, s := range m.sales {
		if channel != "" && s.Channel != channel {
			continue
		}
		if year > 0 {
			y, mo, _ := s.PurchasedDate.UTC().Date()
			if y != year || mo != month {
				continue
			}
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (m *memSaleRepo) Create(s *domain.Sale) error {
	s.ID = m.nextID
	m.nextID++
	m.sales[s.ID] = *s
	return nil
}

func (m *memSaleRepo) CreateBatch(sales []domain.Sale) error {
	for i := range sales {
		if err := m.Create(&sales[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *memSaleRepo) Update(s *domain.Sale) error {
	if _, ok := m.sales[s.ID]; !ok {
		return repository.ErrSaleNotFound
	}
	m.sales[s.ID] = *s
	return nil
}

func (m *memSaleRepo) Delete(id uint) (bool, error) {
	if _, ok := m.sales[id]; !ok {
		return false, nil
	}
	delete(m.sales, id)
	return true, nil
}

func (m *memSaleRepo) AllForExport(channel string) ([]domain.Sale, error) {
	var out []domain.Sale
	for id := uint(1); id < m.nextID; id++ {
		s, ok := m.sales[id]
		if !ok {
			continue
		}
		if channel != "" && s.Channel != channel {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memSaleRepo) SummaryRows(horizon time.Time) ([]domain.Sale, error) {
	var out []domain.Sale
	for _, s := range m.sales {
		if s.RenewMonths != 0 || (s.ExpiredDate != nil && !s.ExpiredDate.After(horizon)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSaleRepo) TotalsBetween(from, until time.Time) (repository.SaleTotals, error) {
	var t repository.SaleTotals
	for _, s := range m.sales {
		if s.PurchasedDate.Before(from) || !s.PurchasedDate.Before(until) {
			continue
		}
		t.Sales += s.Price
		t.Profit += s.Profit
	}
	return t, nil
}

func validSaleInput() SaleInput {
	return SaleInput{
		Channel:       "retail",
		Product:       "Streaming Plus",
		Duration:      3,
		Renew:         1,
		Customer:      "Dana",
		Email:         "dana@example.com",
		PurchasedDate: "2025-01-15",
		Price:         29.90,
		Profit:        12.50,
	}
}

func TestSaleCreateDerivesExpiry(t *testing.T) {
	svc := NewSaleService(newMemSaleRepo())

	sale, err := svc.Create(context.Background(), validSaleInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sale.ID == 0 {
		t.Fatal("sale not assigned an ID")
	}
	if sale.ExpiredDate == nil {
		t.Fatal("expiry not derived")
	}
	if want := "2025-04-15"; sale.ExpiredDate.Format("2006-01-02") != want {
		t.Fatalf("derived expiry = %s, want %s", sale.ExpiredDate.Format("2006-01-02"), want)
	}
}

func TestSaleCreateKeepsExplicitExpiry(t *testing.T) {
	svc := NewSaleService(newMemSaleRepo())
	in := validSaleInput()
	in.ExpiredDate = "2025-06-30"

	sale, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := sale.ExpiredDate.Format("2006-01-02"); got != "2025-06-30" {
		t.Fatalf("expiry = %s, want the explicit 2025-06-30", got)
	}
}

func TestSaleValidationRejections(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SaleInput)
		wantField string
	}{
		{name: "unknown channel", mutate: func(in *SaleInput) { in.Channel = "b2b" }, wantField: "sale_type"},
		{name: "missing product", mutate: func(in *SaleInput) { in.Product = "  " }, wantField: "sale_product"},
		{name: "zero duration", mutate: func(in *SaleInput) { in.Duration = 0 }, wantField: "duration"},
		{name: "renew outside the cadence set", mutate: func(in *SaleInput) { in.Renew = 7 }, wantField: "renew"},
		{name: "missing customer", mutate: func(in *SaleInput) { in.Customer = "" }, wantField: "customer"},
		{name: "malformed email", mutate: func(in *SaleInput) { in.Email = "not-an-email" }, wantField: "email"},
		{name: "negative price", mutate: func(in *SaleInput) { in.Price = -1 }, wantField: "price"},
		{name: "missing purchase date", mutate: func(in *SaleInput) { in.PurchasedDate = "" }, wantField: "purchased_date"},
		{name: "sloppy date format", mutate: func(in *SaleInput) { in.PurchasedDate = "15/01/2025" }, wantField: "purchased_date"},
		{name: "expiry before purchase", mutate: func(in *SaleInput) { in.ExpiredDate = "2024-12-31" }, wantField: "expired_date"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSaleService(newMemSaleRepo())
			in := validSaleInput()
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Create error = %v, want ErrValidation", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is not *ValidationError: %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tc.wantField {
					found = true
				}
			}
			if !found {
				t.Fatalf("fields %v do not mention %q", verr.Fields, tc.wantField)
			}
		})
	}
}

func TestSaleUpdatePreservesIdentity(t *testing.T) {
	repo := newMemSaleRepo()
	svc := NewSaleService(repo)
	created, err := svc.Create(context.Background(), validSaleInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := validSaleInput()
	in.Customer = "Dana Updated"
	updated, err := svc.Update(context.Background(), created.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("update changed the ID: %d -> %d", created.ID, updated.ID)
	}
	if updated.Customer != "Dana Updated" {
		t.Fatalf("customer = %q", updated.Customer)
	}

	if _, err := svc.Update(context.Background(), 9999, in); !errors.Is(err, repository.ErrSaleNotFound) {
		t.Fatalf("Update of missing sale = %v, want ErrSaleNotFound", err)
	}
}

func TestSaleDeleteMissing(t *testing.T) {
	svc := NewSaleService(newMemSaleRepo())
	if err := svc.Delete(context.Background(), 42); !errors.Is(err, repository.ErrSaleNotFound) {
		t.Fatalf("Delete = %v, want ErrSaleNotFound", err)
	}
}

func TestSaleCreateBatchAllOrNothing(t *testing.T) {
	repo := newMemSaleRepo()
	svc := NewSaleService(repo)

	good := validSaleInput()
	bad := validSaleInput()
	bad.Duration = 0

	_, rowErrs, err := svc.CreateBatch(context.Background(), []SaleInput{good, bad, good})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateBatch error = %v, want ErrValidation", err)
	}
	if len(rowErrs) != 1 || rowErrs[0].Row != 2 {
		t.Fatalf("row errors = %+v, want one error for row 2", rowErrs)
	}
	if len(repo.sales) != 0 {
		t.Fatalf("%d rows inserted despite a dirty batch", len(repo.sales))
	}

	sales, rowErrs, err := svc.CreateBatch(context.Background(), []SaleInput{good, good})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(rowErrs) != 0 || len(sales) != 2 || len(repo.sales) != 2 {
		t.Fatalf("clean batch: %d returned, %d stored", len(sales), len(repo.sales))
	}
}

func TestSaleExportCSV(t *testing.T) {
	repo := newMemSaleRepo()
	clock := newTestClock()
	svc := NewSaleService(repo).WithClock(clock.Now)

	if _, err := svc.Create(context.Background(), validSaleInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	filename, data, err := svc.ExportCSV(context.Background(), "retail")
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if want := "sales_export_20250601_090000.csv"; filename != want {
		t.Fatalf("filename = %q, want %q", filename, want)
	}

	out := string(data)
	if !strings.HasPrefix(out, "\xEF\xBB\xBF") {
		t.Fatal("export missing the UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	if len(lines) != 2 {
		t.Fatalf("export has %d lines, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "sale_type,sale_product,") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Streaming Plus") || !strings.Contains(lines[1], "2025-01-15") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestSaleImportCSVRoundTrip(t *testing.T) {
	source := newMemSaleRepo()
	exporter := NewSaleService(source)
	for i := 0; i < 3; i++ {
		if _, err := exporter.Create(context.Background(), validSaleInput()); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	_, data, err := exporter.ExportCSV(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	target := newMemSaleRepo()
	importer := NewSaleService(target)
	n, rowErrs, err := importer.ImportCSV(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ImportCSV: %v (row errors %+v)", err, rowErrs)
	}
	if n != 3 || len(target.sales) != 3 {
		t.Fatalf("imported %d rows, stored %d, want 3", n, len(target.sales))
	}
}

func TestSaleImportCSVRejectsBadHeader(t *testing.T) {
	svc := NewSaleService(newMemSaleRepo())
	_, _, err := svc.ImportCSV(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	if err == nil {
		t.Fatal("import accepted a foreign header")
	}
}
