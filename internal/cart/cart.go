// Package cart accumulates menu selections into a checkout. A Cart is a plain value owned
// by its caller; it is not safe for concurrent use.
package cart

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"karavanCanteen/internal/apperr"
	"karavanCanteen/internal/lifecycle"
	"karavanCanteen/models"

	"github.com/shopspring/decimal"
)

// Line is one distinct selection: a menu item with a given set of customizations.
type Line struct {
	Key            string          `json:"key"`
	Item           models.MenuItem `json:"item"`
	Customizations []string        `json:"customizations,omitempty"`
	Quantity       int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	lines map[string]*Line
	order []string // keys in insertion order
}

func New() *Cart {
	return &Cart{lines: map[string]*Line{}}
}

// normalize sorts and de-duplicates customizations, dropping blanks.
func normalize(customizations []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range customizations {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Key derives the line key from item identity and customizations. Order and duplicates
// in customizations do not matter.
func Key(itemID int64, customizations []string) string {
	k := strconv.FormatInt(itemID, 10)
	if c := normalize(customizations); len(c) > 0 {
		k += "|" + strings.Join(c, ",")
	}
	return k
}

// Add puts one more of item into the cart and returns the line key.
func (c *Cart) Add(item models.MenuItem, customizations ...string) string {
	if c.lines == nil {
		c.lines = map[string]*Line{}
	}
	key := Key(item.ID, customizations)
	if l, ok := c.lines[key]; ok {
		l.Quantity++
		return key
	}
	c.lines[key] = &Line{Key: key, Item: item, Customizations: normalize(customizations), Quantity: 1}
	c.order = append(c.order, key)
	return key
}

// SetQuantity sets the quantity of a line; q <= 0 removes it. It reports whether the
// key was in the cart.
func (c *Cart) SetQuantity(key string, q int) bool {
	l, ok := c.lines[key]
	if !ok {
		return false
	}
	if q > 0 {
		l.Quantity = q
		return true
	}
	delete(c.lines, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Cart) Clear() {
	c.lines = map[string]*Line{}
	c.order = nil
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, k := range c.order {
		l := *c.lines[k]
		l.Customizations = append([]string(nil), l.Customizations...)
		out = append(out, l)
	}
	return out
}

// Details is what the requester fills in at checkout.
type Details struct {
	DeliveryLocation    string
	SpecialInstructions string
	PaymentMethod       models.PaymentMethod
}

// OrderPlacer creates orders; implemented by *lifecycle.Engine.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID int64, c lifecycle.Checkout) (*models.Order, error)
}

// Checkout places the cart as an order for userID. On success the cart is cleared; on
// any failure it is left untouched so the caller can retry.
func (c *Cart) Checkout(ctx context.Context, placer OrderPlacer, userID int64, d Details) (*models.Order, error) {
	if c.IsEmpty() {
		return nil, apperr.Validation("cart is empty")
	}
	if strings.TrimSpace(d.DeliveryLocation) == "" {
		return nil, apperr.Validation("delivery location is required")
	}
	o, err := placer.PlaceOrder(ctx, userID, c.checkout(d))
	if err != nil {
		return nil, err
	}
	c.Clear()
	return o, nil
}

// checkout builds the order request. Customizations are not part of the order item
// snapshot, so they travel in the special instructions.
func (c *Cart) checkout(d Details) lifecycle.Checkout {
	out := lifecycle.Checkout{
		DeliveryLocation: d.DeliveryLocation,
		PaymentMethod:    d.PaymentMethod,
	}
	var notes []string
	if s := strings.TrimSpace(d.SpecialInstructions); s != "" {
		notes = append(notes, s)
	}
	for _, l := range c.Lines() {
		out.Lines = append(out.Lines, lifecycle.Line{Item: l.Item, Quantity: l.Quantity})
		if len(l.Customizations) > 0 {
			notes = append(notes, l.Item.Name+": "+strings.Join(l.Customizations, ", "))
		}
	}
	out.SpecialInstructions = strings.Join(notes, "; ")
	return out
}

// Selection is one requested line of a remote checkout: an item by ID, how many, and
// optional customizations.
type Selection struct {
	MenuItemID     int64    `json:"menu_item_id"`
	Quantity       int      `json:"quantity"`
	Customizations []string `json:"customizations,omitempty"`
}

// Catalog resolves menu items by ID.
type Catalog interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]models.MenuItem, error)
}

// Build fills a new cart from selections using the live catalog. Unknown or unavailable
// items and non-positive quantities are ValidationErrors; a catalog failure is
// ErrStoreUnavailable. Selections of the same item and customizations are merged.
func Build(ctx context.Context, catalog Catalog, sels []Selection) (*Cart, error) {
	ids := make([]int64, 0, len(sels))
	for _, s := range sels {
		if s.Quantity <= 0 {
			return nil, apperr.Validation("quantity for menu item %d must be positive", s.MenuItemID)
		}
		ids = append(ids, s.MenuItemID)
	}
	items, err := catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Store("load menu items", err)
	}
	c := New()
	qty := map[string]int{}
	for _, s := range sels {
		item, ok := items[s.MenuItemID]
		if !ok {
			return nil, apperr.Validation("unknown menu item %d", s.MenuItemID)
		}
		if !item.Available {
			return nil, apperr.Validation("%q is not available", item.Name)
		}
		key := c.Add(item, s.Customizations...)
		qty[key] += s.Quantity
		c.SetQuantity(key, qty[key])
	}
	return c, nil
}

type cartJSON struct {
	Lines []Line `json:"lines"`
}

// MarshalJSON stores the lines in insertion order.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartJSON{Lines: c.Lines()})
}

// UnmarshalJSON restores a cart. Keys are recomputed and lines that collapse onto the
// same key are merged; lines with non-positive quantity are dropped.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var in cartJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Clear()
	for _, l := range in.Lines {
		if l.Quantity <= 0 {
			continue
		}
		key := Key(l.Item.ID, l.Customizations)
		if existing, ok := c.lines[key]; ok {
			existing.Quantity += l.Quantity
			continue
		}
		c.lines[key] = &Line{Key: key, Item: l.Item, Customizations: normalize(l.Customizations), Quantity: l.Quantity}
		c.order = append(c.order, key)
	}
	return nil
}
