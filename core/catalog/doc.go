// Package catalog provides read access to the marketplace catalog
// (products, vendors, categories) and order placement, all through the
// gateway client.
//
// Listing operations never fail on an unreachable backend: they return
// an empty slice so browsing views degrade gracefully in demo mode.
// Mutations (order placement) always propagate classified errors.
//
// # Basic Usage
//
//	svc, err := catalog.New(api)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	products, err := svc.ListProducts(ctx, catalog.ProductFilter{Category: "fruits"})
//	if err != nil {
//		// classification error, not mere unavailability
//	}
package catalog
