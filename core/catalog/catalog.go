package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/dmitrymomot/storefront/core/cart"
	"github.com/dmitrymomot/storefront/core/client"
	"github.com/dmitrymomot/storefront/pkg/apperrors"
)

// Product is a supplier listing.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
	VendorID    string  `json:"vendorId,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	InStock     bool    `json:"inStock"`
}

// CartItem converts the product into its cart snapshot.
func (p Product) CartItem() cart.Item {
	return cart.Item{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image}
}

// Vendor is a supplier profile visible to requesters.
type Vendor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
	City        string `json:"city,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Category groups products for browsing.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// OrderLine is one ordered (product, quantity) pair.
type OrderLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order is a placed order as the backend reports it.
type Order struct {
	ID        string      `json:"id"`
	Status    string      `json:"status,omitempty"`
	Total     float64     `json:"total"`
	Lines     []OrderLine `json:"items"`
	CreatedAt string      `json:"createdAt,omitempty"`
	SponsorID string      `json:"sponsorId,omitempty"`
}

// ProductFilter narrows a product listing. Zero values are omitted from
// the query string.
type ProductFilter struct {
	Category string
	VendorID string
	Search   string
	Page     int
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.VendorID != "" {
		q.Set("vendor", f.VendorID)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}

// Service reads the marketplace catalog through the gateway client.
//
// Listing operations degrade gracefully: when the backend is absent or
// unreachable they return an empty slice instead of an error, so
// browsing surfaces render empty rather than broken in demo mode. All
// other failures propagate classified.
type Service struct {
	api    *client.Client
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for degraded listing fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a catalog service over the gateway client.
func New(api *client.Client, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, errors.New("gateway client is required")
	}
	s := &Service{
		api:    api,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListProducts returns products matching the filter, an empty slice
// when the backend is unreachable.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var out []Product
	if err := s.list(ctx, withQuery("/products", filter.query()), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a single product by id.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	if err := s.api.Get(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListVendors returns supplier profiles, an empty slice when the
// backend is unreachable.
func (s *Service) ListVendors(ctx context.Context) ([]Vendor, error) {
	var out []Vendor
	if err := s.list(ctx, "/vendors", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns browsing categories, an empty slice when the
// backend is unreachable.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := s.list(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrders returns the current user's orders, an empty slice when the
// backend is unreachable.
func (s *Service) ListOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := s.list(ctx, "/orders", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder places an order for the given cart lines. Unlike the
// listing operations this is a mutation: failures always propagate so
// the caller can surface them.
func (s *Service) CreateOrder(ctx context.Context, lines []cart.Line) (Order, error) {
	if len(lines) == 0 {
		return Order{}, apperrors.New(apperrors.KindValidation, "cannot place an empty order")
	}

	items := make([]OrderLine, 0, len(lines))
	var total float64
	for _, l := range lines {
		items = append(items, OrderLine{
			ProductID: l.Item.ID,
			Name:      l.Item.Name,
			Price:     l.Item.Price,
			Quantity:  l.Quantity,
		})
		total += l.Item.Price * float64(l.Quantity)
	}

	var out Order
	err := s.api.Post(ctx, "/orders", map[string]any{
		"items": items,
		"total": total,
	}, &out)
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

// list runs a collection GET, mapping NETWORK failures to an empty
// result.
func (s *Service) list(ctx context.Context, path string, out any) error {
	err := s.api.Get(ctx, path, out)
	if err == nil {
		return nil
	}
	if apperrors.KindOf(err) == apperrors.KindNetwork {
		s.logger.DebugContext(ctx, "catalog listing degraded to empty result",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	return err
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
