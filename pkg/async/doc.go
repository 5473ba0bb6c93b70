// Package async provides a small typed future over a goroutine, used
// to fan out independent network fetches and join their results.
//
// # Basic Usage
//
//	products := async.Go(ctx, func(ctx context.Context) ([]Product, error) {
//		return svc.ListProducts(ctx, filter)
//	})
//	vendors := async.Go(ctx, func(ctx context.Context) ([]Vendor, error) {
//		return svc.ListVendors(ctx)
//	})
//
//	p, err1 := products.Await()
//	v, err2 := vendors.Await()
//
// Futures resolve exactly once; Await may be called any number of
// times after that.
package async
