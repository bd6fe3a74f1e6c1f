package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const productColumns = "id::text, product_name, original_price, discounted_price, percentage_off, store_name, " +
	"category, image_url, product_url, is_active, scraped_at, created_at, updated_at"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresProvider reads the hosted discounted products table.
type PostgresProvider struct {
	db    querier
	table string
}

var _ Provider = (*PostgresProvider)(nil)

func NewPostgresProvider(ctx context.Context, databaseURL, table string) (*PostgresProvider, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	return &PostgresProvider{db: pool, table: table}, nil
}

// Load fetches every active product, best discount first.
func (p *PostgresProvider) Load(ctx context.Context) ([]Product, error) {
	return p.Query(ctx, FilterSpec{})
}

// Query pushes spec down to the database and then applies it again in memory
// so that search and ordering behave exactly like Apply.
func (p *PostgresProvider) Query(ctx context.Context, spec FilterSpec) ([]Product, error) {
	sql, args := buildQuery(p.table, spec)
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrUnavailable, p.table, err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p.table, err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, p.table, err)
	}
	slog.InfoContext(ctx, "queried catalog table", "table", p.table, "products", len(products))
	return Apply(products, spec), nil
}

func buildQuery(table string, spec FilterSpec) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "is_active = true")
	if len(spec.Stores) > 0 {
		stores := lo.Map(spec.Stores, func(s Store, _ int) string { return string(s) })
		where = append(where, "store_name = ANY("+arg(stores)+")")
	}
	if len(spec.Categories) > 0 {
		where = append(where, "category = ANY("+arg(spec.Categories)+")")
	}
	if spec.SearchTerm != "" {
		where = append(where, "product_name ILIKE "+arg("%"+escapeLike(spec.SearchTerm)+"%"))
	}
	if spec.MinDiscount > 0 {
		where = append(where, "percentage_off >= "+arg(spec.MinDiscount))
	}
	if spec.MaxPrice.Valid {
		where = append(where, "discounted_price <= "+arg(spec.MaxPrice.Decimal.String())+"::numeric")
	}

	sql := "SELECT " + productColumns +
		" FROM " + pgx.Identifier(strings.Split(table, ".")).Sanitize() +
		" WHERE " + strings.Join(where, " AND ") +
		" ORDER BY percentage_off DESC"
	return sql, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func scanProduct(rows pgx.Rows) (Product, error) {
	var (
		p                         Product
		original, discounted      float64
		store                     string
		category, image, link     *string
		active                    *bool
		scraped, created, updated *time.Time
	)
	err := rows.Scan(&p.ID, &p.Name, &original, &discounted, &p.PercentageOff, &store,
		&category, &image, &link, &active, &scraped, &created, &updated)
	if err != nil {
		return p, err
	}
	p.OriginalPrice = decimal.NewFromFloat(original).Round(2)
	p.DiscountedPrice = decimal.NewFromFloat(discounted).Round(2)
	p.Store = normalizeStore(store)
	p.Category = lo.FromPtr(category)
	p.ImageURL = lo.FromPtr(image)
	p.ProductURL = lo.FromPtr(link)
	p.Active = lo.FromPtr(active)
	p.ScrapedAt = lo.FromPtr(scraped)
	p.CreatedAt = lo.FromPtr(created)
	p.UpdatedAt = lo.FromPtr(updated)
	return p, nil
}
