package catalog

import (
	"context"

	"github.com/dmitrymomot/storefront/pkg/async"
)

// Home bundles everything the landing surface renders in one shot.
type Home struct {
	Products   []Product
	Vendors    []Vendor
	Categories []Category
}

// LoadHome fetches products, vendors, and categories concurrently.
// Each listing carries its own degraded-empty behavior, so an
// unreachable backend yields an empty Home rather than an error.
func (s *Service) LoadHome(ctx context.Context, filter ProductFilter) (Home, error) {
	products := async.Go(ctx, func(ctx context.Context) ([]Product, error) {
		return s.ListProducts(ctx, filter)
	})
	vendors := async.Go(ctx, func(ctx context.Context) ([]Vendor, error) {
		return s.ListVendors(ctx)
	})
	categories := async.Go(ctx, func(ctx context.Context) ([]Category, error) {
		return s.ListCategories(ctx)
	})

	var home Home
	var err error
	if home.Products, err = products.Await(); err != nil {
		return Home{}, err
	}
	if home.Vendors, err = vendors.Await(); err != nil {
		return Home{}, err
	}
	if home.Categories, err = categories.Await(); err != nil {
		return Home{}, err
	}
	return home, nil
}
