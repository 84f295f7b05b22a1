package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/renewal"
	"github.com/eraverse/sales-admin-service/internal/repository"
)

// ErrValidation marks input rejections; the concrete *ValidationError
// carries the per-field messages.
var ErrValidation = errors.New("validation failed")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

const dateLayout = "2006-01-02"

// SaleInput is the wire shape for creating or updating a sale. Dates travel
// as YYYY-MM-DD strings; an empty expired date means "derive from duration".
type SaleInput struct {
	Channel       string  `json:"sale_type"`
	Product       string  `json:"sale_product"`
	Duration      int     `json:"duration"`
	Renew         int     `json:"renew"`
	Customer      string  `json:"customer"`
	Email         string  `json:"email"`
	PurchasedDate string  `json:"purchased_date"`
	ExpiredDate   string  `json:"expired_date"`
	Manager       string  `json:"manager"`
	Note          string  `json:"note"`
	Price         float64 `json:"price"`
	Profit        float64 `json:"profit"`
}

type SaleService struct {
	sales repository.SaleRepository
	now   func() time.Time
}

func NewSaleService(sales repository.SaleRepository) *SaleService {
	return &SaleService{sales: sales, now: time.Now}
}

func (s *SaleService) WithClock(now func() time.Time) *SaleService {
	s.now = now
	return s
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// validate checks one input and, when it passes, returns the materialized
// sale with the expiry derived if the caller left it blank.
func (s *SaleService) validate(in SaleInput) (*domain.Sale, error) {
	verr := &ValidationError{}

	channel := strings.ToLower(strings.TrimSpace(in.Channel))
	if !domain.KnownChannel(channel) {
		verr.add("sale_type", "must be retail or wholesale")
	}
	if strings.TrimSpace(in.Product) == "" {
		verr.add("sale_product", "is required")
	}
	if in.Duration < 1 {
		verr.add("duration", "must be at least 1 month")
	}
	if !domain.RenewMonthsAllowed(in.Renew) {
		verr.add("renew", fmt.Sprintf("must be one of %v", domain.AllowedRenewMonths))
	}
	if strings.TrimSpace(in.Customer) == "" {
		verr.add("customer", "is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			verr.add("email", "is not a valid address")
		}
	}
	if in.Price < 0 {
		verr.add("price", "must not be negative")
	}

	var purchased time.Time
	if in.PurchasedDate == "" {
		verr.add("purchased_date", "is required")
	} else {
		var err error
		purchased, err = time.ParseInLocation(dateLayout, in.PurchasedDate, time.UTC)
		if err != nil {
			verr.add("purchased_date", "must be YYYY-MM-DD")
		}
	}

	var expired *time.Time
	if in.ExpiredDate != "" {
		d, err := time.ParseInLocation(dateLayout, in.ExpiredDate, time.UTC)
		if err != nil {
			verr.add("expired_date", "must be YYYY-MM-DD")
		} else if !purchased.IsZero() && d.Before(purchased) {
			verr.add("expired_date", "must not precede the purchase date")
		} else {
			expired = &d
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if expired == nil {
		d := renewal.ComputeExpiry(purchased, in.Duration)
		expired = &d
	}
	return &domain.Sale{
		Channel:        channel,
		Product:        strings.TrimSpace(in.Product),
		DurationMonths: in.Duration,
		RenewMonths:    in.Renew,
		Customer:       strings.TrimSpace(in.Customer),
		Email:          optional(in.Email),
		PurchasedDate:  purchased,
		ExpiredDate:    expired,
		Manager:        optional(in.Manager),
		Note:           optional(in.Note),
		Price:          in.Price,
		Profit:         in.Profit,
	}, nil
}

func (s *SaleService) Create(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	sale, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	if err := s.sales.Create(sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *SaleService) Update(ctx context.Context, id uint, in SaleInput) (*domain.Sale, error) {
	existing, err := s.sales.FindByID(id)
	if err != nil {
		return nil, err
	}
	sale, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	sale.ID = existing.ID
	sale.CreatedAt = existing.CreatedAt
	if err := s.sales.Update(sale); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *SaleService) Get(ctx context.Context, id uint) (*domain.Sale, error) {
	return s.sales.FindByID(id)
}

func (s *SaleService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.sales.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrSaleNotFound
	}
	return nil
}

// ListMonth returns the sales of one channel for a calendar month; a zero
// year means no month filter.
func (s *SaleService) ListMonth(ctx context.Context, channel string, year int, month time.Month) ([]domain.Sale, int64, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	if channel != "" && !domain.KnownChannel(channel) {
		verr := &ValidationError{}
		verr.add("sale_type", "must be retail or wholesale")
		return nil, 0, verr
	}
	return s.sales.ListByMonth(channel, year, month)
}

// RowError ties an input row that failed validation to its 1-based position
// in the submitted batch.
type RowError struct {
	Row int              `json:"row"`
	Err *ValidationError `json:"errors"`
}

// CreateBatch validates every row first and inserts all of them in one
// transaction only when the whole batch is clean.
func (s *SaleService) CreateBatch(ctx context.Context, inputs []SaleInput) ([]domain.Sale, []RowError, error) {
	if len(inputs) == 0 {
		verr := &ValidationError{}
		verr.add("rows", "batch is empty")
		return nil, nil, verr
	}

	sales := make([]domain.Sale, 0, len(inputs))
	var rowErrs []RowError
	for i, in := range inputs {
		sale, err := s.validate(in)
		if err != nil {
			var verr *ValidationError
			errors.As(err, &verr)
			rowErrs = append(rowErrs, RowError{Row: i + 1, Err: verr})
			continue
		}
		sales = append(sales, *sale)
	}
	if len(rowErrs) > 0 {
		return nil, rowErrs, ErrValidation
	}

	if err := s.sales.CreateBatch(sales); err != nil {
		return nil, nil, err
	}
	return sales, nil, nil
}

var csvHeader = []string{
	"sale_type", "sale_product", "duration", "renew",
	"customer", "email", "purchased_date", "expired_date",
	"manager", "note", "price", "profit",
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(t time.Time) string { return t.UTC().Format(dateLayout) }

// ExportCSV renders every sale of the channel (or both when channel is
// empty), newest purchase first, prefixed with a UTF-8 BOM so spreadsheet
// imports pick up the encoding. It returns the suggested download filename
// alongside the file body.
func (s *SaleService) ExportCSV(ctx context.Context, channel string) (string, []byte, error) {
	sales, err := s.sales.AllForExport(strings.ToLower(strings.TrimSpace(channel)))
	if err != nil {
		observability.RecordCSVTransfer(ctx, "export", channel, "error")
		return "", nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")
	cw := csv.NewWriter(&buf)
	if err := cw.Write(csvHeader); err != nil {
		return "", nil, err
	}
	for _, sale := range sales {
		expired := ""
		if sale.ExpiredDate != nil {
			expired = formatDate(*sale.ExpiredDate)
		}
		row := []string{
			sale.Channel,
			sale.Product,
			strconv.Itoa(sale.DurationMonths),
			strconv.Itoa(sale.RenewMonths),
			sale.Customer,
			deref(sale.Email),
			formatDate(sale.PurchasedDate),
			expired,
			deref(sale.Manager),
			deref(sale.Note),
			strconv.FormatFloat(sale.Price, 'f', 2, 64),
			strconv.FormatFloat(sale.Profit, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return "", nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		observability.RecordCSVTransfer(ctx, "export", channel, "error")
		return "", nil, err
	}

	observability.RecordCSVTransfer(ctx, "export", channel, "success")
	filename := "sales_export_" + s.now().UTC().Format("20060102_150405") + ".csv"
	return filename, buf.Bytes(), nil
}

// ImportCSV parses an export-shaped file and inserts the rows as new sales.
// The sale_id column is ignored; rows are validated like form input and the
// whole file is rejected when any row fails.
func (s *SaleService) ImportCSV(ctx context.Context, r io.Reader) (int, []RowError, error) {
	cr := csv.NewReader(bomStrippingReader(r))
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		observability.RecordCSVTransfer(ctx, "import", "", "error")
		return 0, nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), name) {
			observability.RecordCSVTransfer(ctx, "import", "", "error")
			return 0, nil, fmt.Errorf("csv header column %d is %q, want %q", i+1, header[i], name)
		}
	}

	var inputs []SaleInput
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			observability.RecordCSVTransfer(ctx, "import", "", "error")
			return 0, nil, fmt.Errorf("read csv row: %w", err)
		}
		in := SaleInput{
			Channel:       record[0],
			Product:       record[1],
			Customer:      record[4],
			Email:         record[5],
			PurchasedDate: record[6],
			ExpiredDate:   record[7],
			Manager:       record[8],
			Note:          record[9],
		}
		in.Duration, _ = strconv.Atoi(strings.TrimSpace(record[2]))
		in.Renew, _ = strconv.Atoi(strings.TrimSpace(record[3]))
		in.Price, _ = strconv.ParseFloat(strings.TrimSpace(record[10]), 64)
		in.Profit, _ = strconv.ParseFloat(strings.TrimSpace(record[11]), 64)
		inputs = append(inputs, in)
	}

	sales, rowErrs, err := s.CreateBatch(ctx, inputs)
	if err != nil {
		observability.RecordCSVTransfer(ctx, "import", "", "rejected")
		return 0, rowErrs, err
	}
	observability.RecordCSVTransfer(ctx, "import", "", "success")
	return len(sales), nil, nil
}

// bomStrippingReader drops a leading UTF-8 BOM, which our own exports carry.
func bomStrippingReader(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	buf = buf[:n]
	if bytes.Equal(buf, []byte("\xEF\xBB\xBF")) {
		return r
	}
	return io.MultiReader(bytes.NewReader(buf), r)
}
