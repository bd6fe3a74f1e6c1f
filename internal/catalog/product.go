package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Store string

const (
	Woolworths Store = "Woolworths"
	Coles      Store = "Coles"
	Aldi       Store = "Aldi"
	IGA        Store = "IGA"
)

var Stores = []Store{Woolworths, Coles, Aldi, IGA}

// ParseStore matches a retailer name case-insensitively.
func ParseStore(s string) (Store, error) {
	s = strings.TrimSpace(s)
	for _, store := range Stores {
		if strings.EqualFold(string(store), s) {
			return store, nil
		}
	}
	return "", fmt.Errorf("unknown store %q", s)
}

// normalizeStore maps source data onto the canonical retailer names so store
// filters match regardless of case. Unknown names are kept trimmed.
func normalizeStore(s string) Store {
	if store, err := ParseStore(s); err == nil {
		return store
	}
	return Store(strings.TrimSpace(s))
}

// Product is one scraped discount. PercentageOff is taken as supplied and is
// never recomputed from the two prices.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"product_name"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	PercentageOff   float64         `json:"percentage_off"`
	Store           Store           `json:"store_name"`
	Category        string          `json:"category,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	ProductURL      string          `json:"product_url,omitempty"`
	Active          bool            `json:"is_active"`
	ScrapedAt       time.Time       `json:"scraped_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (p Product) Savings() decimal.Decimal {
	return p.OriginalPrice.Sub(p.DiscountedPrice)
}
