package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// FilterSpec is replaced wholesale on every edit. Zero values mean "no
// restriction"; an invalid MaxPrice is the unbounded sentinel.
type FilterSpec struct {
	Stores      []Store             `json:"stores"`
	Categories  []string            `json:"categories"`
	SearchTerm  string              `json:"search_term"`
	MinDiscount float64             `json:"min_discount"`
	MaxPrice    decimal.NullDecimal `json:"max_price"`
}

// ActiveCount is the number of predicates that narrow the catalog.
func (s FilterSpec) ActiveCount() int {
	n := len(s.Stores) + len(s.Categories)
	if s.SearchTerm != "" {
		n++
	}
	if s.MinDiscount > 0 {
		n++
	}
	if s.MaxPrice.Valid {
		n++
	}
	return n
}

// Apply returns the active products matching every predicate of spec, ordered
// by PercentageOff descending. Ties keep their input order. products is not
// modified.
func Apply(products []Product, spec FilterSpec) []Product {
	out := lo.Filter(products, func(p Product, _ int) bool {
		return p.Active
	})

	if len(spec.Stores) > 0 {
		out = lo.Filter(out, func(p Product, _ int) bool {
			return lo.Contains(spec.Stores, p.Store)
		})
	}

	if len(spec.Categories) > 0 {
		out = lo.Filter(out, func(p Product, _ int) bool {
			return p.Category != "" && lo.Contains(spec.Categories, p.Category)
		})
	}

	if spec.SearchTerm != "" {
		// casers are stateful, one per call
		fold := cases.Fold()
		term := fold.String(spec.SearchTerm)
		out = lo.Filter(out, func(p Product, _ int) bool {
			return strings.Contains(fold.String(p.Name), term)
		})
	}

	out = lo.Filter(out, func(p Product, _ int) bool {
		return p.PercentageOff >= spec.MinDiscount
	})

	if spec.MaxPrice.Valid {
		out = lo.Filter(out, func(p Product, _ int) bool {
			return p.DiscountedPrice.LessThanOrEqual(spec.MaxPrice.Decimal)
		})
	}

	slices.SortStableFunc(out, func(a, b Product) int {
		return cmp.Compare(b.PercentageOff, a.PercentageOff)
	})
	return out
}

// Categories lists the distinct categories of active products in first-seen order.
func Categories(products []Product) []string {
	var categories []string
	for _, p := range products {
		if p.Active && p.Category != "" {
			categories = append(categories, p.Category)
		}
	}
	return lo.Uniq(categories)
}
