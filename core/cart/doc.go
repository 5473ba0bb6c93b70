// Package cart is the in-memory state container for the in-progress
// order. It has no network dependency and no error paths: every
// operation is a synchronous mutation or a derived read over the
// current lines.
//
// # Basic Usage
//
//	c := cart.New()
//	c.Add(cart.Item{ID: "p1", Name: "Apples", Price: 2.5})
//	c.Add(cart.Item{ID: "p1"}) // same line, quantity 2
//
//	fmt.Println(c.TotalItems()) // 2
//	fmt.Println(c.TotalPrice()) // 5.0
//
// The open/closed flag only drives the presentation surface and is
// independent of cart contents: Clear empties the lines but leaves the
// flag alone.
package cart
