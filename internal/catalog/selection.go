package catalog

import (
	"errors"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrAlreadySelected = errors.New("product already selected")

// Selection is the ordered set of products picked as recipe ingredients.
type Selection struct {
	products []Product
}

func (s *Selection) Add(p Product) error {
	if s.Contains(p.ID) {
		return ErrAlreadySelected
	}
	s.products = append(s.products, p)
	return nil
}

func (s *Selection) Remove(id string) {
	s.products = slices.DeleteFunc(s.products, func(p Product) bool {
		return p.ID == id
	})
}

func (s *Selection) Contains(id string) bool {
	return slices.ContainsFunc(s.products, func(p Product) bool {
		return p.ID == id
	})
}

func (s *Selection) Len() int { return len(s.products) }

func (s *Selection) Products() []Product {
	return slices.Clone(s.products)
}

// Names are the display names in selection order, as sent to the model.
func (s *Selection) Names() []string {
	return lo.Map(s.products, func(p Product, _ int) string {
		return p.Name
	})
}

func (s *Selection) TotalSavings() decimal.Decimal {
	return lo.Reduce(s.products, func(sum decimal.Decimal, p Product, _ int) decimal.Decimal {
		return sum.Add(p.Savings())
	}, decimal.Zero)
}
