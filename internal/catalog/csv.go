package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

var requiredColumns = []string{
	"id", "product_name", "original_price", "discounted_price", "percentage_off", "store_name", "is_active",
}

// CSVProvider reads a flat export of the products table from a local path or
// an http(s) url.
type CSVProvider struct {
	source string
	client *retryablehttp.Client
}

var _ Provider = (*CSVProvider)(nil)

func NewCSVProvider(source string) *CSVProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil
	return &CSVProvider{source: source, client: client}
}

func (c *CSVProvider) Load(ctx context.Context) ([]Product, error) {
	r, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close catalog csv", "source", c.source, "error", err)
		}
	}()

	products, err := ParseCSV(r)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", c.source, err)
	}
	slog.InfoContext(ctx, "loaded catalog csv", "source", c.source, "products", len(products))
	return products, nil
}

func (c *CSVProvider) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(c.source, "http://") && !strings.HasPrefix(c.source, "https://") {
		return os.Open(c.source)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.source, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch catalog: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// ParseCSV decodes a header-first products export. Columns are matched by
// name so their order does not matter; blank lines are skipped.
func ParseCSV(r io.Reader) ([]Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var products []Product
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		row := csvRow{columns: columns, record: record}
		p, err := row.product()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		products = append(products, p)
	}
	return products, nil
}

type csvRow struct {
	columns map[string]int
	record  []string
}

func (r csvRow) get(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

func (r csvRow) product() (Product, error) {
	var p Product
	var err error

	p.ID = r.get("id")
	p.Name = r.get("product_name")
	p.Store = normalizeStore(r.get("store_name"))
	p.Category = r.get("category")
	p.ImageURL = r.get("image_url")
	p.ProductURL = r.get("product_url")

	if p.OriginalPrice, err = decimal.NewFromString(r.get("original_price")); err != nil {
		return p, fmt.Errorf("original_price: %w", err)
	}
	if p.DiscountedPrice, err = decimal.NewFromString(r.get("discounted_price")); err != nil {
		return p, fmt.Errorf("discounted_price: %w", err)
	}
	if p.PercentageOff, err = strconv.ParseFloat(r.get("percentage_off"), 64); err != nil {
		return p, fmt.Errorf("percentage_off: %w", err)
	}
	if active := r.get("is_active"); active != "" {
		if p.Active, err = strconv.ParseBool(active); err != nil {
			return p, fmt.Errorf("is_active: %w", err)
		}
	}
	if p.ScrapedAt, err = parseTime(r.get("scraped_at")); err != nil {
		return p, fmt.Errorf("scraped_at: %w", err)
	}
	if p.CreatedAt, err = parseTime(r.get("created_at")); err != nil {
		return p, fmt.Errorf("created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(r.get("updated_at")); err != nil {
		return p, fmt.Errorf("updated_at: %w", err)
	}
	return p, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
