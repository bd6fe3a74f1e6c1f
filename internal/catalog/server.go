package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// UnboundedPrice is the price slider ceiling; a max_price at or above it
// means no price restriction.
var UnboundedPrice = decimal.NewFromInt(1000)

type server struct {
	cache *Cache
}

func NewHandler(c *Cache) *server {
	return &server{cache: c}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", s.handleProducts)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /products/refresh", s.handleRefresh)
}

type productsResponse struct {
	Products      []Product  `json:"products"`
	Count         int        `json:"count"`
	ActiveFilters int        `json:"active_filters"`
	Filter        FilterSpec `json:"filter"`
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spec, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	products, err := s.cache.GetOrLoad(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load product data"})
		return
	}

	filtered := Apply(products, spec)
	slog.InfoContext(ctx, "filtered catalog", "total", len(products), "matched", len(filtered), "active_filters", spec.ActiveCount())
	writeJSON(w, http.StatusOK, productsResponse{
		Products:      filtered,
		Count:         len(filtered),
		ActiveFilters: spec.ActiveCount(),
		Filter:        spec,
	})
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	products, err := s.cache.GetOrLoad(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load product data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": Categories(products)})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	products, err := s.cache.Refresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to reload product data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"products": len(products)})
}

// ParseFilter reads a FilterSpec from query parameters. store and category
// may repeat or hold comma separated lists.
func ParseFilter(q url.Values) (FilterSpec, error) {
	var spec FilterSpec
	for _, name := range splitList(q["store"]) {
		store, err := ParseStore(name)
		if err != nil {
			return spec, err
		}
		spec.Stores = append(spec.Stores, store)
	}
	spec.Categories = splitList(q["category"])
	spec.SearchTerm = strings.TrimSpace(q.Get("q"))

	if v := strings.TrimSpace(q.Get("min_discount")); v != "" {
		minDiscount, err := strconv.ParseFloat(v, 64)
		if err != nil || minDiscount < 0 || math.IsNaN(minDiscount) || math.IsInf(minDiscount, 0) {
			return spec, fmt.Errorf("invalid min_discount %q", v)
		}
		spec.MinDiscount = minDiscount
	}
	if v := strings.TrimSpace(q.Get("max_price")); v != "" {
		maxPrice, err := decimal.NewFromString(v)
		if err != nil || maxPrice.IsNegative() {
			return spec, fmt.Errorf("invalid max_price %q", v)
		}
		if maxPrice.LessThan(UnboundedPrice) {
			spec.MaxPrice = decimal.NewNullDecimal(maxPrice)
		}
	}
	return spec, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}
