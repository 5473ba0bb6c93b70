package cart

import "sync"

// Item is the product snapshot captured when it enters the cart. Price
// changes upstream do not retroactively reprice lines already added.
type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}

// Line is one (item, quantity) pair within the in-progress order.
type Line struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Cart holds the in-progress order plus the open/closed presentation
// flag. All operations are synchronous, never touch the network, and
// are safe for concurrent use.
//
// Lines keep insertion order: adding an existing item bumps its
// quantity in place, a new item appends at the end.
type Cart struct {
	mu    sync.Mutex
	lines []Line
	open  bool
}

// New returns an empty, closed cart.
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of the item into the cart. An existing line is
// incremented, otherwise a new line with quantity 1 appends at the end.
func (c *Cart) Add(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID == item.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
}

// Remove takes one unit of the item out of the cart. A line at
// quantity 1 is deleted entirely; removing an absent item is a no-op.
func (c *Cart) Remove(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID != itemID {
			continue
		}
		if c.lines[i].Quantity > 1 {
			c.lines[i].Quantity--
			return
		}
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
}

// ClearItem deletes the item's line regardless of quantity.
func (c *Cart) ClearItem(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart. The open/closed flag is untouched.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Quantity returns the item's current quantity, 0 if absent.
func (c *Cart) Quantity(itemID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Item.ID == itemID {
			return c.lines[i].Quantity
		}
	}
	return 0
}

// TotalItems returns the sum of quantities across all lines.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for i := range c.lines {
		n += c.lines[i].Quantity
	}
	return n
}

// TotalPrice returns the sum of price times quantity across all lines.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total float64
	for i := range c.lines {
		total += c.lines[i].Item.Price * float64(c.lines[i].Quantity)
	}
	return total
}

// Open marks the cart presentation surface as visible.
func (c *Cart) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

// Close marks the cart presentation surface as hidden.
func (c *Cart) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

// Toggle flips the open/closed flag.
func (c *Cart) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = !c.open
}

// IsOpen reports whether the cart presentation surface is visible.
func (c *Cart) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
